package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fisiohome/booking-engine/internal/booking"
	"github.com/fisiohome/booking-engine/internal/gateway"
)

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.Appointment == nil {
			err := &booking.MissingParameterError{Param: "appointment"}
			writeError(w, http.StatusBadRequest, "missing_parameter", err.Error())
			return
		}

		cmd, err := buildCreateCommand(&req)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		result, err := svc.CreateBooking(r.Context(), cmd)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := CreateBookingResponse{
			Pending:            result.Appointment == nil,
			RegistrationNumber: result.RegistrationNumber,
		}
		if result.Identity != nil {
			resp.PatientOutcome = string(result.Identity.PatientOutcome)
			resp.ContactOutcome = string(result.Identity.ContactOutcome)
			resp.AddressOutcome = string(result.Identity.AddressOutcome)
		}

		// An unresolved booking is accepted, not failed: the gateway owns the
		// record and materializes it shortly.
		if result.Appointment == nil {
			writeJSON(w, http.StatusAccepted, resp)
			return
		}

		appt := toAppointmentResponse(result.Appointment)
		resp.Appointment = &appt
		writeJSON(w, http.StatusCreated, resp)
	}
}

func buildCreateCommand(req *CreateBookingRequest) (booking.CreateCommand, error) {
	p := req.Appointment

	dob, err := time.Parse("2006-01-02", p.Patient.DateOfBirth)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "patient date of birth must be YYYY-MM-DD"}
	}

	requestedBy, err := uuid.Parse(req.RequestedBy)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "requestedBy must be a valid UUID"}
	}

	serviceID, err := uuid.Parse(p.ServiceID)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "serviceId must be a valid UUID"}
	}
	packageID, err := uuid.Parse(p.PackageID)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "packageId must be a valid UUID"}
	}
	locationID, err := uuid.Parse(p.LocationID)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "locationId must be a valid UUID"}
	}
	addressLocationID, err := uuid.Parse(p.PatientAddress.LocationID)
	if err != nil {
		return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "patientAddress.locationId must be a valid UUID"}
	}

	cmd := booking.CreateCommand{
		RequestedBy: requestedBy,
		Patient: booking.PatientInput{
			Name:        p.Patient.Name,
			DateOfBirth: dob,
			Gender:      booking.Gender(p.Patient.Gender),
		},
		Contact: booking.ContactInput{
			ContactName:  p.PatientContact.ContactName,
			ContactPhone: p.PatientContact.ContactPhone,
			Email:        p.PatientContact.Email,
		},
		Address: booking.AddressInput{
			LocationID: addressLocationID,
			Latitude:   p.PatientAddress.Latitude,
			Longitude:  p.PatientAddress.Longitude,
			PostalCode: p.PatientAddress.PostalCode,
			Address:    p.PatientAddress.Address,
		},
		ServiceID:                   serviceID,
		PackageID:                   packageID,
		LocationID:                  locationID,
		AppointmentDateTime:         p.AppointmentDateTime,
		PreferredTherapistGender:    p.PreferredTherapistGender,
		VoucherCode:                 p.VoucherCode,
		Notes:                       p.Notes,
		ReferralSource:              p.ReferralSource,
		OtherReferralSource:         p.OtherReferralSource,
		FisiohomePartnerBooking:     p.FisiohomePartnerBooking,
		FisiohomePartnerName:        p.FisiohomePartnerName,
		PatientIllnessOnsetDate:     p.PatientIllnessOnsetDate,
		PatientComplaintDescription: p.PatientComplaintDescription,
		PatientMedicalHistory:       p.PatientMedicalHistory,
		AdminIDs:                    req.AdminIDs,
	}

	if p.TherapistID != "" {
		therapistID, err := uuid.Parse(p.TherapistID)
		if err != nil {
			return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "therapistId must be a valid UUID"}
		}
		cmd.TherapistID = &therapistID
	}

	if req.DraftID != "" {
		draftID, err := uuid.Parse(req.DraftID)
		if err != nil {
			return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "draftId must be a valid UUID"}
		}
		cmd.DraftID = &draftID
	}

	for _, v := range p.SeriesVisits {
		visit := booking.SeriesVisitInput{
			VisitNumber:         v.VisitNumber,
			AppointmentDateTime: v.AppointmentDateTime,
		}
		if v.TherapistID != "" {
			therapistID, err := uuid.Parse(v.TherapistID)
			if err != nil {
				return booking.CreateCommand{}, &booking.RecordInvalidError{Reason: "series visit therapistId must be a valid UUID"}
			}
			visit.TherapistID = &therapistID
		}
		cmd.SeriesVisits = append(cmd.SeriesVisits, visit)
	}

	return booking.NewCreateCommand(cmd)
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.Appointment == nil {
			err := &booking.MissingParameterError{Param: "appointment"}
			writeError(w, http.StatusBadRequest, "missing_parameter", err.Error())
			return
		}

		cmd := booking.UpdateCommand{
			AppointmentDateTime:      req.Appointment.AppointmentDateTime,
			PreferredTherapistGender: req.Appointment.PreferredTherapistGender,
			Reason:                   req.Appointment.Reason,
			ChangedBy:                req.ChangedBy,
		}
		if req.Appointment.TherapistID.Set {
			if req.Appointment.TherapistID.Value == nil {
				cmd.ClearTherapist = true
			} else {
				therapistID, err := uuid.Parse(*req.Appointment.TherapistID.Value)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_therapist_id", "therapistId must be a valid UUID or null")
					return
				}
				cmd.TherapistID = &therapistID
			}
		}

		cmd, err = booking.NewUpdateCommand(cmd)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		result, err := svc.UpdateVisit(r.Context(), id, cmd)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := UpdateResultResponse{
			Success: result.Success,
			Changed: result.Changed,
			Error:   result.Error,
			Type:    result.Type,
		}
		if result.Appointment != nil {
			appt := toAppointmentResponse(result.Appointment)
			resp.Appointment = &appt
		}

		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, history, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		histResp := make([]StatusHistoryResponse, 0, len(history))
		for _, h := range history {
			histResp = append(histResp, StatusHistoryResponse{
				OldStatus: string(h.OldStatus),
				NewStatus: string(h.NewStatus),
				Reason:    h.Reason,
				ChangedBy: h.ChangedBy,
				ChangedAt: h.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, struct {
			Appointment   AppointmentResponse     `json:"appointment"`
			StatusHistory []StatusHistoryResponse `json:"statusHistory"`
		}{
			Appointment:   toAppointmentResponse(appt),
			StatusHistory: histResp,
		})
	}
}

func getSeriesHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registrationNumber := chi.URLParam(r, "registrationNumber")
		if registrationNumber == "" {
			writeError(w, http.StatusBadRequest, "invalid_registration_number", "registration number is required")
			return
		}

		series, err := svc.GetSeries(r.Context(), registrationNumber)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		visits := make([]AppointmentResponse, 0, len(series))
		for i := range series {
			visits = append(visits, toAppointmentResponse(&series[i]))
		}

		writeJSON(w, http.StatusOK, struct {
			RegistrationNumber string                `json:"registrationNumber"`
			Visits             []AppointmentResponse `json:"visits"`
		}{
			RegistrationNumber: registrationNumber,
			Visits:             visits,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var (
		missingErr   *booking.MissingParameterError
		invalidErr   *booking.RecordInvalidError
		collisionErr *booking.TimeCollisionError
		gatewayErr   *gateway.ResponseError
	)

	switch {
	case errors.As(err, &missingErr):
		writeError(w, http.StatusBadRequest, "missing_parameter", err.Error())
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusUnprocessableEntity, "record_invalid", err.Error())
	case errors.As(err, &collisionErr):
		writeError(w, http.StatusUnprocessableEntity, "time_collision", err.Error())
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, "booking_gateway_error", gatewayErr.Message)
	case errors.Is(err, booking.ErrSeriesBusy):
		writeError(w, http.StatusConflict, "series_busy", "series is being updated, please retry shortly")
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
