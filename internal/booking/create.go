package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fisiohome/booking-engine/internal/gateway"
	"github.com/fisiohome/booking-engine/internal/retry"
)

// CreateResult reports the outcome of a booking creation. Appointment is nil
// when the gateway accepted the booking but the local row had not
// materialized within the polling budget; callers must treat that as
// success-with-uncertainty, not failure.
type CreateResult struct {
	Appointment        *Appointment
	RegistrationNumber string
	Identity           *IdentityResult
}

// CreateBooking runs the full creation pipeline: identity reconciliation,
// gateway submission, eventual-consistency resolution, admin association, and
// draft expiry.
func (s *Service) CreateBooking(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	identity, err := s.ReconcileIdentity(ctx, cmd.Patient, cmd.Contact, cmd.Address)
	if err != nil {
		return nil, fmt.Errorf("reconcile identity: %w", err)
	}

	payload := buildPayload(cmd, identity)

	resp, err := s.gw.CreateBooking(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.log.Info("booking accepted by gateway",
		zap.String("registration_number", resp.RegistrationNumber),
		zap.Int("appointments", len(resp.Appointments)),
	)

	appt, err := s.resolveAppointment(ctx, resp)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{
		Appointment:        appt,
		RegistrationNumber: resp.RegistrationNumber,
		Identity:           identity,
	}
	if appt != nil && result.RegistrationNumber == "" {
		result.RegistrationNumber = appt.RegistrationNumber
	}

	if appt == nil {
		s.log.Warn("booking not yet materialized locally, returning pending outcome",
			zap.String("registration_number", resp.RegistrationNumber),
		)
		return result, nil
	}

	s.associateAdmins(ctx, appt.ID, cmd.AdminIDs)

	if cmd.DraftID != nil {
		s.expireDraft(ctx, *cmd.DraftID, appt.ID)
	}

	return result, nil
}

func buildPayload(cmd CreateCommand, identity *IdentityResult) gateway.BookingPayload {
	pref := gateway.NormalizeTherapistGenderPreference(cmd.PreferredTherapistGender)

	visits := []gateway.VisitPayload{{
		VisitNumber:              1,
		TherapistID:              uuidString(cmd.TherapistID),
		AppointmentDateTime:      timeString(cmd.AppointmentDateTime),
		PreferredTherapistGender: pref,
	}}
	for _, v := range cmd.SeriesVisits {
		visits = append(visits, gateway.VisitPayload{
			VisitNumber:              v.VisitNumber,
			TherapistID:              uuidString(v.TherapistID),
			AppointmentDateTime:      timeString(v.AppointmentDateTime),
			PreferredTherapistGender: pref,
		})
	}

	return gateway.BookingPayload{
		RequestedByID:               cmd.RequestedBy.String(),
		PatientID:                   identity.Patient.ID.String(),
		PatientAddressID:            identity.Address.ID.String(),
		ServiceID:                   cmd.ServiceID.String(),
		PackageID:                   cmd.PackageID.String(),
		LocationID:                  cmd.LocationID.String(),
		PaymentMethod:               gateway.PaymentMethodBankTransfer,
		VoucherCode:                 cmd.VoucherCode,
		Notes:                       cmd.Notes,
		ReferralSource:              cmd.ReferralSource,
		OtherReferralSource:         cmd.OtherReferralSource,
		FisiohomePartnerBooking:     cmd.FisiohomePartnerBooking,
		FisiohomePartnerName:        cmd.FisiohomePartnerName,
		PatientIllnessOnsetDate:     cmd.PatientIllnessOnsetDate,
		PatientComplaintDescription: cmd.PatientComplaintDescription,
		PatientMedicalHistory:       cmd.PatientMedicalHistory,
		PreferredTherapistGender:    pref,
		Visits:                      visits,
	}
}

// resolveAppointment polls local storage for the row the gateway materializes
// asynchronously: first by the appointment ids embedded in the response, then
// by registration number. Exhausting the polling budget returns nil, not an
// error.
func (s *Service) resolveAppointment(ctx context.Context, resp *gateway.BookingResponse) (*Appointment, error) {
	ids := make([]uuid.UUID, 0, len(resp.Appointments))
	for _, raw := range resp.AppointmentIDs() {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.log.Warn("gateway returned malformed appointment id", zap.String("appointment_id", raw))
			continue
		}
		ids = append(ids, id)
	}

	appt, found, err := retry.Poll(ctx, s.resolve, func(ctx context.Context) (*Appointment, bool, error) {
		for _, id := range ids {
			a, err := s.repo.GetAppointmentByID(ctx, id)
			if err == nil {
				return a, true, nil
			}
			if !errors.Is(err, ErrAppointmentNotFound) {
				return nil, false, fmt.Errorf("resolve appointment %s: %w", id, err)
			}
		}

		if resp.RegistrationNumber != "" {
			a, err := s.repo.FindRootByRegistrationNumber(ctx, resp.RegistrationNumber)
			if err == nil {
				return a, true, nil
			}
			if !errors.Is(err, ErrAppointmentNotFound) {
				return nil, false, fmt.Errorf("resolve registration %s: %w", resp.RegistrationNumber, err)
			}
		}

		return nil, false, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return appt, nil
}

// associateAdmins links every id in the comma-delimited list as a
// person-in-charge. Malformed ids are logged and skipped; association errors
// do not fail the booking that already exists.
func (s *Service) associateAdmins(ctx context.Context, appointmentID uuid.UUID, adminIDs string) {
	for _, part := range strings.Split(adminIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		adminID, err := uuid.Parse(part)
		if err != nil {
			s.log.Warn("skipping malformed admin id", zap.String("admin_id", part))
			continue
		}
		if err := s.repo.AssociatePersonInCharge(ctx, appointmentID, adminID); err != nil {
			s.log.Error("associate person in charge",
				zap.String("appointment_id", appointmentID.String()),
				zap.String("admin_id", adminID.String()),
				zap.Error(err),
			)
		}
	}
}

// expireDraft retires the wizard draft once the real appointment exists. A
// missing or already non-active draft is a quiet no-op.
func (s *Service) expireDraft(ctx context.Context, draftID, appointmentID uuid.UUID) {
	expired, err := s.repo.ExpireDraft(ctx, draftID, &appointmentID)
	if err != nil {
		s.log.Error("expire draft",
			zap.String("draft_id", draftID.String()),
			zap.Error(err),
		)
		return
	}
	if expired {
		s.log.Info("draft expired",
			zap.String("draft_id", draftID.String()),
			zap.String("appointment_id", appointmentID.String()),
		)
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
