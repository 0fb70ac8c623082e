package api

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fisiohome/booking-engine/internal/booking"
)

type PatientParams struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
	Gender      string `json:"gender"`
}

type ContactParams struct {
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`
	Email        string `json:"email"`
}

type AddressParams struct {
	LocationID string  `json:"locationId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	PostalCode string  `json:"postalCode"`
	Address    string  `json:"address"`
}

type SeriesVisitParams struct {
	VisitNumber         int        `json:"visitNumber"`
	TherapistID         string     `json:"therapistId,omitempty"`
	AppointmentDateTime *time.Time `json:"appointmentDateTime,omitempty"`
}

type AppointmentParams struct {
	Patient        PatientParams `json:"patient"`
	PatientContact ContactParams `json:"patientContact"`
	PatientAddress AddressParams `json:"patientAddress"`

	ServiceID  string `json:"serviceId"`
	PackageID  string `json:"packageId"`
	LocationID string `json:"locationId"`

	TherapistID              string     `json:"therapistId,omitempty"`
	AppointmentDateTime      *time.Time `json:"appointmentDateTime,omitempty"`
	PreferredTherapistGender string     `json:"preferredTherapistGender"`

	VoucherCode         string `json:"voucherCode,omitempty"`
	Notes               string `json:"notes,omitempty"`
	ReferralSource      string `json:"referralSource,omitempty"`
	OtherReferralSource string `json:"otherReferralSource,omitempty"`

	FisiohomePartnerBooking bool   `json:"fisiohomePartnerBooking,omitempty"`
	FisiohomePartnerName    string `json:"fisiohomePartnerName,omitempty"`

	PatientIllnessOnsetDate     string `json:"patientIllnessOnsetDate,omitempty"`
	PatientComplaintDescription string `json:"patientComplaintDescription,omitempty"`
	PatientMedicalHistory       string `json:"patientMedicalHistory,omitempty"`

	SeriesVisits []SeriesVisitParams `json:"seriesVisits,omitempty"`
}

type CreateBookingRequest struct {
	Appointment *AppointmentParams `json:"appointment"`
	RequestedBy string             `json:"requestedBy"`
	AdminIDs    string             `json:"adminIds"`
	DraftID     string             `json:"draftId,omitempty"`
}

// OptionalString distinguishes a JSON null (clear the value) from an absent
// key (leave the value as is).
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

type UpdateAppointmentParams struct {
	AppointmentDateTime      *time.Time     `json:"appointmentDateTime,omitempty"`
	TherapistID              OptionalString `json:"therapistId"`
	PreferredTherapistGender *string        `json:"preferredTherapistGender,omitempty"`
	Reason                   string         `json:"reason,omitempty"`
}

type UpdateAppointmentRequest struct {
	Appointment *UpdateAppointmentParams `json:"appointment"`
	ChangedBy   string                   `json:"changedBy,omitempty"`
}

type AppointmentResponse struct {
	ID                       uuid.UUID  `json:"id"`
	RegistrationNumber       string     `json:"registrationNumber"`
	VisitNumber              int        `json:"visitNumber"`
	ReferenceAppointmentID   *uuid.UUID `json:"referenceAppointmentId,omitempty"`
	PatientID                uuid.UUID  `json:"patientId"`
	TherapistID              *uuid.UUID `json:"therapistId,omitempty"`
	AppointmentDateTime      *time.Time `json:"appointmentDateTime,omitempty"`
	LocationID               uuid.UUID  `json:"locationId"`
	ServiceID                uuid.UUID  `json:"serviceId"`
	PackageID                uuid.UUID  `json:"packageId"`
	PreferredTherapistGender string     `json:"preferredTherapistGender"`
	Status                   string     `json:"status"`
	StatusReason             string     `json:"statusReason,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                       a.ID,
		RegistrationNumber:       a.RegistrationNumber,
		VisitNumber:              a.VisitNumber,
		ReferenceAppointmentID:   a.ReferenceAppointmentID,
		PatientID:                a.PatientID,
		TherapistID:              a.TherapistID,
		AppointmentDateTime:      a.AppointmentDateTime,
		LocationID:               a.LocationID,
		ServiceID:                a.ServiceID,
		PackageID:                a.PackageID,
		PreferredTherapistGender: a.PreferredTherapistGender,
		Status:                   string(a.Status),
		StatusReason:             a.StatusReason,
	}
}

type CreateBookingResponse struct {
	Pending            bool                 `json:"pending"`
	RegistrationNumber string               `json:"registrationNumber,omitempty"`
	Appointment        *AppointmentResponse `json:"appointment,omitempty"`
	PatientOutcome     string               `json:"patientOutcome,omitempty"`
	ContactOutcome     string               `json:"contactOutcome,omitempty"`
	AddressOutcome     string               `json:"addressOutcome,omitempty"`
}

type UpdateResultResponse struct {
	Success     bool                 `json:"success"`
	Changed     bool                 `json:"changed"`
	Error       string               `json:"error,omitempty"`
	Type        string               `json:"type,omitempty"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

type StatusHistoryResponse struct {
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Reason    string    `json:"reason,omitempty"`
	ChangedBy string    `json:"changedBy,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
