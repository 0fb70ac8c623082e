package booking

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// SeriesVisitInput is one caller-supplied additional visit in a new booking.
type SeriesVisitInput struct {
	VisitNumber         int `validate:"min=2"`
	TherapistID         *uuid.UUID
	AppointmentDateTime *time.Time
}

// CreateCommand is the immutable input of the creation orchestrator. Built
// once from the inbound "appointment" parameter group and validated at
// construction.
type CreateCommand struct {
	RequestedBy uuid.UUID `validate:"required"`

	Patient PatientInput `validate:"required"`
	Contact ContactInput `validate:"required"`
	Address AddressInput `validate:"required"`

	ServiceID  uuid.UUID `validate:"required"`
	PackageID  uuid.UUID `validate:"required"`
	LocationID uuid.UUID `validate:"required"`

	TherapistID              *uuid.UUID
	AppointmentDateTime      *time.Time
	PreferredTherapistGender string `validate:"required,oneof=MALE FEMALE 'NO PREFERENCE' OTHER"`

	VoucherCode         string
	Notes               string
	ReferralSource      string
	OtherReferralSource string

	FisiohomePartnerBooking bool
	FisiohomePartnerName    string

	PatientIllnessOnsetDate     string
	PatientComplaintDescription string
	PatientMedicalHistory       string

	SeriesVisits []SeriesVisitInput `validate:"dive"`

	AdminIDs string // comma-delimited admin user ids to associate as PIC
	DraftID  *uuid.UUID
}

// NewCreateCommand validates the command once, up front. Validation failures
// surface as RecordInvalid.
func NewCreateCommand(c CreateCommand) (CreateCommand, error) {
	if err := validate.Struct(c); err != nil {
		return CreateCommand{}, &RecordInvalidError{Reason: err.Error()}
	}
	if err := validatePatientInput(c.Patient); err != nil {
		return CreateCommand{}, err
	}
	return c, nil
}

func validatePatientInput(in PatientInput) error {
	if in.Name == "" {
		return &RecordInvalidError{Reason: "patient name can't be blank"}
	}
	if in.DateOfBirth.IsZero() {
		return &RecordInvalidError{Reason: "patient date of birth can't be blank"}
	}
	if in.Gender != GenderMale && in.Gender != GenderFemale {
		return &RecordInvalidError{Reason: "patient gender is not included in the list"}
	}
	return nil
}

// UpdateCommand is the immutable input of the update orchestrator. Absent
// fields keep their current values; ClearTherapist distinguishes "unassign"
// from "leave as is".
type UpdateCommand struct {
	AppointmentDateTime      *time.Time
	TherapistID              *uuid.UUID
	ClearTherapist           bool
	PreferredTherapistGender *string `validate:"omitempty,oneof=MALE FEMALE 'NO PREFERENCE' OTHER"`
	Reason                   string
	ChangedBy                string
}

func NewUpdateCommand(c UpdateCommand) (UpdateCommand, error) {
	if err := validate.Struct(c); err != nil {
		return UpdateCommand{}, &RecordInvalidError{Reason: err.Error()}
	}
	if c.ClearTherapist && c.TherapistID != nil {
		return UpdateCommand{}, &RecordInvalidError{Reason: "therapist id and clear therapist are mutually exclusive"}
	}
	return c, nil
}
