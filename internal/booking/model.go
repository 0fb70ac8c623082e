package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusUnscheduled                AppointmentStatus = "UNSCHEDULED"
	StatusPendingTherapistAssignment AppointmentStatus = "PENDING_THERAPIST_ASSIGNMENT"
	StatusPendingPatientApproval     AppointmentStatus = "PENDING_PATIENT_APPROVAL"
	StatusPaid                       AppointmentStatus = "PAID"
	StatusCompleted                  AppointmentStatus = "COMPLETED"
	StatusCancelled                  AppointmentStatus = "CANCELLED"
	StatusNoShow                     AppointmentStatus = "NO_SHOW"
)

// Sticky statuses survive time/therapist edits: the edit is persisted but the
// status field itself is left untouched.
func (s AppointmentStatus) Sticky() bool {
	switch s {
	case StatusPaid, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// TherapistGenderPreference values accepted on intake. "NO PREFERENCE" is
// normalized to "OTHER" before transmission to the booking gateway.
const (
	PreferenceMale         = "MALE"
	PreferenceFemale       = "FEMALE"
	PreferenceNoPreference = "NO PREFERENCE"
	PreferenceOther        = "OTHER"
)

type DraftStatus string

const (
	DraftActive  DraftStatus = "active"
	DraftExpired DraftStatus = "expired"
)

// DefaultStatusReason is recorded whenever a time or therapist edit carries no
// caller-supplied reason.
const DefaultStatusReason = "RESCHEDULED"

// Appointment is one visit within a booking series. All visits of one booked
// package share a RegistrationNumber; VisitNumber is the 1-based position in
// the series. ReferenceAppointmentID is nil for the root visit and points to
// the root for every later visit.
type Appointment struct {
	ID                       uuid.UUID
	RegistrationNumber       string
	VisitNumber              int
	ReferenceAppointmentID   *uuid.UUID
	PatientID                uuid.UUID
	TherapistID              *uuid.UUID
	AppointmentDateTime      *time.Time // nil means unscheduled
	LocationID               uuid.UUID
	ServiceID                uuid.UUID
	PackageID                uuid.UUID
	PreferredTherapistGender string
	Status                   AppointmentStatus
	StatusReason             string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (a *Appointment) Scheduled() bool {
	return a.AppointmentDateTime != nil
}

// TherapistSchedule is the per-therapist configuration consumed by the slot
// duration calculator. Availability windows and booking-window constraints are
// owned by the configuration screens; the engine only reads durations.
type TherapistSchedule struct {
	TherapistID                  uuid.UUID
	AppointmentDurationInMinutes int
	BufferTimeInMinutes          int
	MaxAdvanceBookingInDays      int
	MinBookingBeforeInHours      int
	MaxDailyAppointments         int
}

type Patient struct {
	ID          uuid.UUID
	Name        string
	DateOfBirth time.Time
	Gender      Gender
	ContactID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PatientContact struct {
	ID           uuid.UUID
	ContactName  string
	ContactPhone string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Address is a physical location row shared across patients.
type Address struct {
	ID         uuid.UUID
	LocationID uuid.UUID
	Latitude   float64
	Longitude  float64
	PostalCode string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PatientAddress links a patient to an address. At most one link per patient
// is active at a time.
type PatientAddress struct {
	PatientID uuid.UUID
	AddressID uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDraft is the resumable wizard state for an in-progress booking.
// Not a system of record: once the real appointment exists the draft is
// expired and linked to it for audit.
type AppointmentDraft struct {
	ID            uuid.UUID
	CurrentStep   int
	FormData      []byte
	Status        DraftStatus
	AppointmentID *uuid.UUID
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatusHistory is the append-only audit row written on every status change.
type StatusHistory struct {
	ID            int64
	AppointmentID uuid.UUID
	OldStatus     AppointmentStatus
	NewStatus     AppointmentStatus
	Reason        string
	ChangedBy     string
	CreatedAt     time.Time
}
