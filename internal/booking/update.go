package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/fisiohome/booking-engine/internal/redis"
)

// UpdateResult is the caller-facing outcome of a visit update. Domain
// failures (collision, validation) come back as Success=false with a Type
// tag; infrastructure failures are returned as errors by UpdateVisit itself.
type UpdateResult struct {
	Success     bool
	Changed     bool
	Error       string
	Type        string
	Appointment *Appointment
}

func failedResult(err error) *UpdateResult {
	return &UpdateResult{
		Success: false,
		Changed: false,
		Error:   err.Error(),
		Type:    errorType(err),
	}
}

// UpdateVisit mutates one visit's time/therapist assignment under the series
// lock, preserving the non-overlap and visit-number ordering invariants of
// the whole series.
func (s *Service) UpdateVisit(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*UpdateResult, error) {
	target, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *UpdateResult
	err = s.locker.WithSeriesLock(ctx, target.RegistrationNumber, func(ctx context.Context) error {
		r, err := s.applyUpdate(ctx, id, cmd)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSeriesBusy
		}
		return nil, err
	}

	return result, nil
}

func (s *Service) applyUpdate(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*UpdateResult, error) {
	// Reload inside the critical section so the collision check runs against
	// the freshest series snapshot.
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newTime := appt.AppointmentDateTime
	if cmd.AppointmentDateTime != nil {
		newTime = cmd.AppointmentDateTime
	}
	newTherapist := appt.TherapistID
	switch {
	case cmd.ClearTherapist:
		newTherapist = nil
	case cmd.TherapistID != nil:
		newTherapist = cmd.TherapistID
	}

	timeChanged := !equalTimePtr(appt.AppointmentDateTime, newTime)
	therapistChanged := !equalUUIDPtr(appt.TherapistID, newTherapist)
	prefChanged := cmd.PreferredTherapistGender != nil && *cmd.PreferredTherapistGender != appt.PreferredTherapistGender

	if !timeChanged && !therapistChanged && !prefChanged {
		return &UpdateResult{Success: true, Changed: false, Appointment: appt}, nil
	}

	series, err := s.repo.ListSeries(ctx, appt.RegistrationNumber)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	if newTime != nil && newTherapist != nil {
		duration, schedules, err := s.loadDurations(ctx, newTherapist, series)
		if err != nil {
			return nil, err
		}
		if err := DetectCollision(appt, *newTime, duration, series, schedules); err != nil {
			return failedResult(err), nil
		}
	}

	appt.AppointmentDateTime = newTime
	appt.TherapistID = newTherapist
	if prefChanged {
		appt.PreferredTherapistGender = *cmd.PreferredTherapistGender
	}

	if timeChanged || therapistChanged {
		if cmd.Reason != "" {
			appt.StatusReason = cmd.Reason
		} else {
			appt.StatusReason = DefaultStatusReason
		}
	}

	oldStatus, statusChanged := ApplyStatus(appt)

	// One transaction: a renumbering that fails must not leave the updated
	// row or its history behind, and the deferred visit-number constraint is
	// only checked at commit.
	err = s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.UpdateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		if statusChanged {
			history := StatusHistory{
				AppointmentID: appt.ID,
				OldStatus:     oldStatus,
				NewStatus:     appt.Status,
				Reason:        appt.StatusReason,
				ChangedBy:     cmd.ChangedBy,
			}
			if err := repo.InsertStatusHistory(ctx, history); err != nil {
				return fmt.Errorf("insert status history: %w", err)
			}
		}

		return s.renumberSeries(ctx, repo, appt, series)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("visit updated",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("registration_number", appt.RegistrationNumber),
		zap.Int("visit_number", appt.VisitNumber),
		zap.String("status", string(appt.Status)),
	)

	return &UpdateResult{Success: true, Changed: true, Appointment: appt}, nil
}

// loadDurations resolves the candidate's slot duration and the schedules of
// every sibling therapist in one pass.
func (s *Service) loadDurations(ctx context.Context, therapistID *uuid.UUID, series []Appointment) (duration time.Duration, schedules map[uuid.UUID]*TherapistSchedule, err error) {
	ids := make(map[uuid.UUID]bool)
	if therapistID != nil {
		ids[*therapistID] = true
	}
	for i := range series {
		if series[i].TherapistID != nil {
			ids[*series[i].TherapistID] = true
		}
	}

	list := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	schedules, err = s.repo.ListTherapistSchedules(ctx, list)
	if err != nil {
		return 0, nil, fmt.Errorf("list therapist schedules: %w", err)
	}

	var sched *TherapistSchedule
	if therapistID != nil {
		sched = schedules[*therapistID]
	}
	return SlotDuration(therapistID, sched), schedules, nil
}

// renumberSeries refreshes the series after the update and persists any
// visit-number moves. Safe to re-run: numbering is derived from stored state.
func (s *Service) renumberSeries(ctx context.Context, repo Repository, updated *Appointment, series []Appointment) error {
	for i := range series {
		if series[i].ID == updated.ID {
			series[i] = *updated
		}
	}

	changed := Renumber(series)
	if len(changed) == 0 {
		return nil
	}

	if err := repo.UpdateVisitNumbers(ctx, changed); err != nil {
		return fmt.Errorf("update visit numbers: %w", err)
	}

	if n, ok := changed[updated.ID]; ok {
		updated.VisitNumber = n
	}

	return nil
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalUUIDPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
