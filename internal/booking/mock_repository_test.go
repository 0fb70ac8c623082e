package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/fisiohome/booking-engine/internal/redis"
)

// memRepo is an in-memory Repository for orchestrator tests.
type memRepo struct {
	patients         map[uuid.UUID]*Patient
	contacts         map[uuid.UUID]*PatientContact
	addresses        map[uuid.UUID]*Address
	patientAddresses map[string]*PatientAddress
	appointments     map[uuid.UUID]*Appointment
	schedules        map[uuid.UUID]*TherapistSchedule
	histories        []StatusHistory
	personsInCharge  map[string]bool
	drafts           map[uuid.UUID]*AppointmentDraft

	// regLookupDelay makes the first N registration-number lookups miss, to
	// mimic the gateway's materialization lag.
	regLookupDelay int
	regLookups     int
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:         make(map[uuid.UUID]*Patient),
		contacts:         make(map[uuid.UUID]*PatientContact),
		addresses:        make(map[uuid.UUID]*Address),
		patientAddresses: make(map[string]*PatientAddress),
		appointments:     make(map[uuid.UUID]*Appointment),
		schedules:        make(map[uuid.UUID]*TherapistSchedule),
		personsInCharge:  make(map[string]bool),
		drafts:           make(map[uuid.UUID]*AppointmentDraft),
	}
}

func paKey(patientID, addressID uuid.UUID) string {
	return patientID.String() + "|" + addressID.String()
}

// WithTx has no rollback; it runs fn and then verifies visit-number
// uniqueness per series, mirroring the deferred constraint's commit check.
func (m *memRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	if err := fn(m); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, a := range m.appointments {
		key := fmt.Sprintf("%s#%d", a.RegistrationNumber, a.VisitNumber)
		if seen[key] {
			return fmt.Errorf("duplicate visit number %d in series %s", a.VisitNumber, a.RegistrationNumber)
		}
		seen[key] = true
	}
	return nil
}

func (m *memRepo) FindPatientByIdentity(ctx context.Context, name string, dateOfBirth time.Time, gender Gender) (*Patient, error) {
	for _, p := range m.patients {
		if p.Name == name && p.DateOfBirth.Equal(dateOfBirth) && p.Gender == gender {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *memRepo) CreatePatient(ctx context.Context, p *Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memRepo) LinkPatientContact(ctx context.Context, patientID, contactID uuid.UUID) error {
	p, ok := m.patients[patientID]
	if !ok {
		return ErrPatientNotFound
	}
	id := contactID
	p.ContactID = &id
	return nil
}

func (m *memRepo) GetContactByID(ctx context.Context, id uuid.UUID) (*PatientContact, error) {
	c, ok := m.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) FindContactByEmail(ctx context.Context, email string) (*PatientContact, error) {
	for _, c := range m.contacts {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrContactNotFound
}

func (m *memRepo) FindContactByPhoneDigits(ctx context.Context, digits string) (*PatientContact, error) {
	for _, c := range m.contacts {
		if NormalizePhoneDigits(c.ContactPhone) == digits {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrContactNotFound
}

func (m *memRepo) CreateContact(ctx context.Context, c *PatientContact) error {
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *memRepo) FindAddress(ctx context.Context, locationID uuid.UUID, latitude, longitude float64) (*Address, error) {
	for _, a := range m.addresses {
		if a.LocationID == locationID && a.Latitude == latitude && a.Longitude == longitude {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAddressNotFound
}

func (m *memRepo) CreateAddress(ctx context.Context, a *Address) error {
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

func (m *memRepo) UpdateAddressDetails(ctx context.Context, id uuid.UUID, postalCode, addressText string) error {
	a, ok := m.addresses[id]
	if !ok {
		return ErrAddressNotFound
	}
	a.PostalCode = postalCode
	a.Address = addressText
	return nil
}

func (m *memRepo) SetActivePatientAddress(ctx context.Context, patientID, addressID uuid.UUID) error {
	// deactivate-first ordering, like the SQL against the partial unique index
	key := paKey(patientID, addressID)
	for k, pa := range m.patientAddresses {
		if pa.PatientID == patientID && k != key {
			pa.Active = false
		}
	}
	if pa, ok := m.patientAddresses[key]; ok {
		pa.Active = true
	} else {
		m.patientAddresses[key] = &PatientAddress{
			PatientID: patientID,
			AddressID: addressID,
			Active:    true,
		}
	}
	return nil
}

func (m *memRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) FindRootByRegistrationNumber(ctx context.Context, registrationNumber string) (*Appointment, error) {
	m.regLookups++
	if m.regLookups <= m.regLookupDelay {
		return nil, ErrAppointmentNotFound
	}
	for _, a := range m.appointments {
		if a.RegistrationNumber == registrationNumber && a.ReferenceAppointmentID == nil {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) ListSeries(ctx context.Context, registrationNumber string) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.appointments {
		if a.RegistrationNumber == registrationNumber {
			result = append(result, *a)
		}
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].VisitNumber < result[i].VisitNumber {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *memRepo) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	cp := *a
	// visit numbers only move through UpdateVisitNumbers, as in SQL
	cp.VisitNumber = m.appointments[a.ID].VisitNumber
	m.appointments[a.ID] = &cp
	return nil
}

func (m *memRepo) UpdateVisitNumbers(ctx context.Context, numbers map[uuid.UUID]int) error {
	for id, n := range numbers {
		a, ok := m.appointments[id]
		if !ok {
			return ErrAppointmentNotFound
		}
		a.VisitNumber = n
	}
	return nil
}

func (m *memRepo) ListTherapistSchedules(ctx context.Context, therapistIDs []uuid.UUID) (map[uuid.UUID]*TherapistSchedule, error) {
	result := make(map[uuid.UUID]*TherapistSchedule)
	for _, id := range therapistIDs {
		if s, ok := m.schedules[id]; ok {
			cp := *s
			result[id] = &cp
		}
	}
	return result, nil
}

func (m *memRepo) InsertStatusHistory(ctx context.Context, h StatusHistory) error {
	h.ID = int64(len(m.histories) + 1)
	h.CreatedAt = time.Now()
	m.histories = append(m.histories, h)
	return nil
}

func (m *memRepo) ListStatusHistory(ctx context.Context, appointmentID uuid.UUID) ([]StatusHistory, error) {
	var result []StatusHistory
	for _, h := range m.histories {
		if h.AppointmentID == appointmentID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *memRepo) AssociatePersonInCharge(ctx context.Context, appointmentID, adminID uuid.UUID) error {
	m.personsInCharge[appointmentID.String()+"|"+adminID.String()] = true
	return nil
}

func (m *memRepo) ExpireDraft(ctx context.Context, draftID uuid.UUID, appointmentID *uuid.UUID) (bool, error) {
	d, ok := m.drafts[draftID]
	if !ok || d.Status != DraftActive {
		return false, nil
	}
	d.Status = DraftExpired
	if appointmentID != nil {
		id := *appointmentID
		d.AppointmentID = &id
	}
	return true, nil
}

func (m *memRepo) FindOverdueActiveDrafts(ctx context.Context, now time.Time) ([]AppointmentDraft, error) {
	var result []AppointmentDraft
	for _, d := range m.drafts {
		if d.Status == DraftActive && d.ExpiresAt.Before(now) {
			result = append(result, *d)
		}
	}
	return result, nil
}

// fakeLocker runs the critical section inline; busy simulates contention.
type fakeLocker struct {
	busy bool
}

func (f *fakeLocker) WithSeriesLock(ctx context.Context, registrationNumber string, fn func(ctx context.Context) error) error {
	if f.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func (f *fakeLocker) WithIdentityLock(ctx context.Context, patientKey string, fn func(ctx context.Context) error) error {
	if f.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

// seedSeries installs a series of visits and returns them keyed by visit
// number.
func (m *memRepo) seedSeries(registrationNumber string, visits ...*Appointment) map[int]*Appointment {
	byNumber := make(map[int]*Appointment)
	var rootID uuid.UUID
	for i, v := range visits {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.RegistrationNumber = registrationNumber
		if i == 0 {
			rootID = v.ID
		} else {
			ref := rootID
			v.ReferenceAppointmentID = &ref
		}
		m.appointments[v.ID] = v
		byNumber[v.VisitNumber] = v
	}
	return byNumber
}
