package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome distinguishes a reused record from a newly minted one, so callers
// can assert reconciliation behavior instead of inferring it from row counts.
type Outcome string

const (
	OutcomeFound   Outcome = "found"
	OutcomeCreated Outcome = "created"
)

// PatientInput is the loosely-structured identity fragment arriving with a
// booking.
type PatientInput struct {
	Name        string
	DateOfBirth time.Time
	Gender      Gender
}

type ContactInput struct {
	ContactName  string
	ContactPhone string
	Email        string
}

type AddressInput struct {
	LocationID uuid.UUID
	Latitude   float64
	Longitude  float64
	PostalCode string
	Address    string
}

// IdentityResult reports the reconciled records and whether each was found
// or created.
type IdentityResult struct {
	Patient        *Patient
	PatientOutcome Outcome
	Contact        *PatientContact
	ContactOutcome Outcome
	Address        *Address
	AddressOutcome Outcome
}

// NormalizePhoneDigits strips every non-digit character so "+62 812-1" and
// "628121" compare equal.
func NormalizePhoneDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// identityKey is the natural key used for the reconcile lock.
func identityKey(in PatientInput) string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(in.Name)),
		in.DateOfBirth.Format("2006-01-02"),
		in.Gender,
	)
}

// ReconcileIdentity resolves or creates the Patient, PatientContact, and
// active PatientAddress for a booking without creating duplicates. Re-running
// with identical input is a no-op beyond last-write-wins on the address
// descriptive fields.
func (s *Service) ReconcileIdentity(ctx context.Context, patientIn PatientInput, contactIn ContactInput, addressIn AddressInput) (*IdentityResult, error) {
	res := &IdentityResult{}

	err := s.locker.WithIdentityLock(ctx, identityKey(patientIn), func(ctx context.Context) error {
		patient, patientOutcome, contact, contactOutcome, err := s.resolvePatient(ctx, patientIn, contactIn)
		if err != nil {
			return err
		}
		res.Patient = patient
		res.PatientOutcome = patientOutcome
		res.Contact = contact
		res.ContactOutcome = contactOutcome

		address, addressOutcome, err := s.upsertAddress(ctx, patient.ID, addressIn)
		if err != nil {
			return err
		}
		res.Address = address
		res.AddressOutcome = addressOutcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) resolvePatient(ctx context.Context, in PatientInput, contactIn ContactInput) (*Patient, Outcome, *PatientContact, Outcome, error) {
	patient, err := s.repo.FindPatientByIdentity(ctx, in.Name, in.DateOfBirth, in.Gender)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, "", nil, "", fmt.Errorf("find patient: %w", err)
	}

	if patient != nil {
		// Existing patient is reused verbatim; only resolve the contact.
		contact, contactOutcome, err := s.resolveContact(ctx, patient, contactIn)
		if err != nil {
			return nil, "", nil, "", err
		}
		if patient.ContactID == nil {
			if err := s.repo.LinkPatientContact(ctx, patient.ID, contact.ID); err != nil {
				return nil, "", nil, "", fmt.Errorf("link patient contact: %w", err)
			}
			patient.ContactID = &contact.ID
		}
		return patient, OutcomeFound, contact, contactOutcome, nil
	}

	contact, contactOutcome, err := s.resolveContact(ctx, nil, contactIn)
	if err != nil {
		return nil, "", nil, "", err
	}

	patient = &Patient{
		ID:          uuid.New(),
		Name:        in.Name,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		ContactID:   &contact.ID,
	}
	if err := s.repo.CreatePatient(ctx, patient); err != nil {
		return nil, "", nil, "", fmt.Errorf("create patient: %w", err)
	}

	return patient, OutcomeCreated, contact, contactOutcome, nil
}

// resolveContact looks up a contact in priority order: the patient's linked
// contact, an email match, then a normalized-phone match, before creating a
// new one.
func (s *Service) resolveContact(ctx context.Context, patient *Patient, in ContactInput) (*PatientContact, Outcome, error) {
	if patient != nil && patient.ContactID != nil {
		contact, err := s.repo.GetContactByID(ctx, *patient.ContactID)
		if err == nil {
			return contact, OutcomeFound, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return nil, "", fmt.Errorf("load linked contact: %w", err)
		}
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		contact, err := s.repo.FindContactByEmail(ctx, email)
		if err == nil {
			return contact, OutcomeFound, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return nil, "", fmt.Errorf("find contact by email: %w", err)
		}
	}

	if digits := NormalizePhoneDigits(in.ContactPhone); digits != "" {
		contact, err := s.repo.FindContactByPhoneDigits(ctx, digits)
		if err == nil {
			return contact, OutcomeFound, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return nil, "", fmt.Errorf("find contact by phone: %w", err)
		}
	}

	contact := &PatientContact{
		ID:           uuid.New(),
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
		Email:        strings.TrimSpace(in.Email),
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return nil, "", fmt.Errorf("create contact: %w", err)
	}

	return contact, OutcomeCreated, nil
}

// upsertAddress matches an address by (locationId, latitude, longitude),
// overwriting the mutable descriptive fields on a match, and guarantees the
// patient ends up with exactly this address active.
func (s *Service) upsertAddress(ctx context.Context, patientID uuid.UUID, in AddressInput) (*Address, Outcome, error) {
	address, err := s.repo.FindAddress(ctx, in.LocationID, in.Latitude, in.Longitude)
	if err != nil && !errors.Is(err, ErrAddressNotFound) {
		return nil, "", fmt.Errorf("find address: %w", err)
	}

	outcome := OutcomeFound
	if address != nil {
		if address.PostalCode != in.PostalCode || address.Address != in.Address {
			if err := s.repo.UpdateAddressDetails(ctx, address.ID, in.PostalCode, in.Address); err != nil {
				return nil, "", fmt.Errorf("update address details: %w", err)
			}
			address.PostalCode = in.PostalCode
			address.Address = in.Address
		}
	} else {
		address = &Address{
			ID:         uuid.New(),
			LocationID: in.LocationID,
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			PostalCode: in.PostalCode,
			Address:    in.Address,
		}
		if err := s.repo.CreateAddress(ctx, address); err != nil {
			return nil, "", fmt.Errorf("create address: %w", err)
		}
		outcome = OutcomeCreated
	}

	if err := s.repo.SetActivePatientAddress(ctx, patientID, address.ID); err != nil {
		return nil, "", fmt.Errorf("activate patient address: %w", err)
	}

	return address, outcome, nil
}
