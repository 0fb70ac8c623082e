package gateway

// BookingPayload is the normalized booking submission for the external
// service. Field names follow its API contract.
type BookingPayload struct {
	RequestedByID               string         `json:"requested_by_id"`
	PatientID                   string         `json:"patient_id"`
	PatientAddressID            string         `json:"patient_address_id"`
	ServiceID                   string         `json:"service_id"`
	PackageID                   string         `json:"package_id"`
	LocationID                  string         `json:"location_id"`
	PaymentMethod               string         `json:"payment_method"`
	VoucherCode                 string         `json:"voucher_code,omitempty"`
	Notes                       string         `json:"notes,omitempty"`
	ReferralSource              string         `json:"referral_source,omitempty"`
	OtherReferralSource         string         `json:"other_referral_source,omitempty"`
	FisiohomePartnerBooking     bool           `json:"fisiohome_partner_booking"`
	FisiohomePartnerName        string         `json:"fisiohome_partner_name,omitempty"`
	PatientIllnessOnsetDate     string         `json:"patient_illness_onset_date,omitempty"`
	PatientComplaintDescription string         `json:"patient_complaint_description,omitempty"`
	PatientMedicalHistory       string         `json:"patient_medical_history,omitempty"`
	PreferredTherapistGender    string         `json:"preferred_therapist_gender"`
	Visits                      []VisitPayload `json:"visits"`
}

type VisitPayload struct {
	VisitNumber              int    `json:"visit_number"`
	TherapistID              string `json:"therapist_id,omitempty"`
	AppointmentDateTime      string `json:"appointment_date_time,omitempty"`
	PreferredTherapistGender string `json:"preferred_therapist_gender,omitempty"`
}

// PaymentMethodBankTransfer is the only payment method this flow submits.
const PaymentMethodBankTransfer = "bank_transfer"

// NormalizeTherapistGenderPreference maps the intake value "NO PREFERENCE"
// onto the wire value "OTHER". MALE and FEMALE pass through unchanged.
func NormalizeTherapistGenderPreference(pref string) string {
	if pref == "NO PREFERENCE" {
		return "OTHER"
	}
	return pref
}

// BookingResponse is the 2xx gateway reply. Either Appointments carries the
// created appointment ids, or only RegistrationNumber is present and the
// local rows must be found by that.
type BookingResponse struct {
	RegistrationNumber string               `json:"registration_number"`
	Appointments       []AppointmentSummary `json:"appointments"`
}

type AppointmentSummary struct {
	AppointmentID string `json:"appointment_id"`
}

// AppointmentIDs collects the non-empty ids from the response.
func (r *BookingResponse) AppointmentIDs() []string {
	var ids []string
	for _, a := range r.Appointments {
		if a.AppointmentID != "" {
			ids = append(ids, a.AppointmentID)
		}
	}
	return ids
}
