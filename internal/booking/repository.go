package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrContactNotFound     = errors.New("patient contact not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all storage interactions needed by the orchestrators.
type Repository interface {
	// WithTx runs fn against a transaction-scoped repository. Writes that
	// must land together (appointment update, status history, renumbering)
	// go through it; constraint checks deferred to commit apply there.
	WithTx(ctx context.Context, fn func(Repository) error) error

	// Identity reconciliation
	FindPatientByIdentity(ctx context.Context, name string, dateOfBirth time.Time, gender Gender) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) error
	LinkPatientContact(ctx context.Context, patientID, contactID uuid.UUID) error

	GetContactByID(ctx context.Context, id uuid.UUID) (*PatientContact, error)
	FindContactByEmail(ctx context.Context, email string) (*PatientContact, error)
	FindContactByPhoneDigits(ctx context.Context, digits string) (*PatientContact, error)
	CreateContact(ctx context.Context, c *PatientContact) error

	FindAddress(ctx context.Context, locationID uuid.UUID, latitude, longitude float64) (*Address, error)
	CreateAddress(ctx context.Context, a *Address) error
	UpdateAddressDetails(ctx context.Context, id uuid.UUID, postalCode, addressText string) error
	// SetActivePatientAddress deactivates every other address link of the
	// patient, then upserts the target join row as active.
	SetActivePatientAddress(ctx context.Context, patientID, addressID uuid.UUID) error

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindRootByRegistrationNumber(ctx context.Context, registrationNumber string) (*Appointment, error)
	ListSeries(ctx context.Context, registrationNumber string) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error
	UpdateVisitNumbers(ctx context.Context, numbers map[uuid.UUID]int) error

	ListTherapistSchedules(ctx context.Context, therapistIDs []uuid.UUID) (map[uuid.UUID]*TherapistSchedule, error)

	InsertStatusHistory(ctx context.Context, h StatusHistory) error
	ListStatusHistory(ctx context.Context, appointmentID uuid.UUID) ([]StatusHistory, error)
	AssociatePersonInCharge(ctx context.Context, appointmentID, adminID uuid.UUID) error

	// Drafts
	// ExpireDraft marks an active draft expired and links it to the resulting
	// appointment. Returns false without error when the draft is missing or
	// already non-active.
	ExpireDraft(ctx context.Context, draftID uuid.UUID, appointmentID *uuid.UUID) (bool, error)
	FindOverdueActiveDrafts(ctx context.Context, now time.Time) ([]AppointmentDraft, error)
}
