package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fisiohome/booking-engine/internal/retry"
)

func testResolveStrategy() retry.Strategy {
	return retry.Strategy{Attempts: 3, Delay: time.Millisecond}
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestService(repo Repository) *Service {
	return NewService(repo, &fakeLocker{}, nil, testResolveStrategy(), nopLogger())
}

func identityInputs() (PatientInput, ContactInput, AddressInput) {
	patient := PatientInput{
		Name:        "Siti Rahma",
		DateOfBirth: time.Date(1988, 4, 12, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
	}
	contact := ContactInput{
		ContactName:  "Siti Rahma",
		ContactPhone: "+62 812-3456-7890",
		Email:        "siti@example.com",
	}
	address := AddressInput{
		LocationID: uuid.New(),
		Latitude:   -6.2001,
		Longitude:  106.8166,
		PostalCode: "12190",
		Address:    "Jl. Sudirman 10",
	}
	return patient, contact, address
}

func TestReconcileIdentityCreatesEverythingOnce(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	patient, contact, address := identityInputs()

	res, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, res.PatientOutcome)
	assert.Equal(t, OutcomeCreated, res.ContactOutcome)
	assert.Equal(t, OutcomeCreated, res.AddressOutcome)
	require.NotNil(t, res.Patient.ContactID)
	assert.Equal(t, res.Contact.ID, *res.Patient.ContactID)
}

func TestReconcileIdentityIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	patient, contact, address := identityInputs()

	first, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	second, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFound, second.PatientOutcome)
	assert.Equal(t, OutcomeFound, second.ContactOutcome)
	assert.Equal(t, OutcomeFound, second.AddressOutcome)
	assert.Equal(t, first.Patient.ID, second.Patient.ID)
	assert.Equal(t, first.Contact.ID, second.Contact.ID)
	assert.Equal(t, first.Address.ID, second.Address.ID)

	assert.Len(t, repo.patients, 1)
	assert.Len(t, repo.contacts, 1)
	assert.Len(t, repo.addresses, 1)
}

func TestReconcileIdentityMatchesPhoneAcrossFormats(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	patient, contact, address := identityInputs()
	contact.Email = "" // force the phone path

	first, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	// same digits, different patient name, wildly different formatting
	otherPatient := patient
	otherPatient.Name = "Siti R."
	otherContact := contact
	otherContact.ContactPhone = "6281234567890"

	second, err := svc.ReconcileIdentity(context.Background(), otherPatient, otherContact, address)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, second.PatientOutcome)
	assert.Equal(t, OutcomeFound, second.ContactOutcome)
	assert.Equal(t, first.Contact.ID, second.Contact.ID)
	assert.Len(t, repo.contacts, 1)
}

func TestReconcileIdentityOverwritesAddressDetails(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	patient, contact, address := identityInputs()

	_, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	updated := address
	updated.PostalCode = "12210"
	updated.Address = "Jl. Sudirman 10, Tower B"

	res, err := svc.ReconcileIdentity(context.Background(), patient, contact, updated)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFound, res.AddressOutcome)
	assert.Equal(t, "12210", res.Address.PostalCode)
	assert.Equal(t, "Jl. Sudirman 10, Tower B", res.Address.Address)
	assert.Len(t, repo.addresses, 1)
}

func TestReconcileIdentityActivatesExactlyOneAddress(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	patient, contact, address := identityInputs()

	first, err := svc.ReconcileIdentity(context.Background(), patient, contact, address)
	require.NoError(t, err)

	moved := address
	moved.Latitude = -6.3000
	moved.Longitude = 106.9000

	second, err := svc.ReconcileIdentity(context.Background(), patient, contact, moved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, second.AddressOutcome)

	active := 0
	for _, pa := range repo.patientAddresses {
		if pa.PatientID == first.Patient.ID && pa.Active {
			active++
			assert.Equal(t, second.Address.ID, pa.AddressID)
		}
	}
	assert.Equal(t, 1, active)
}

func TestNormalizePhoneDigits(t *testing.T) {
	tests := map[string]string{
		"+62 812-3456-7890": "6281234567890",
		"6281234567890":     "6281234567890",
		"+62-812 3456 7890": "6281234567890",
		"":                  "",
		"ext. 12":           "12",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhoneDigits(in), "input %q", in)
	}
}
