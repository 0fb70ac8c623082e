package booking

import (
	"time"

	"github.com/google/uuid"
)

// TotalSlotDuration is the occupied-time fallback used when a sibling visit's
// therapist schedule is unknown at comparison time.
const TotalSlotDuration = 120 * time.Minute

// SlotDuration derives the occupied window of a candidate visit from its
// therapist's configured appointment duration plus buffer. A visit with no
// assigned therapist has no footprint yet and occupies zero time.
func SlotDuration(therapistID *uuid.UUID, sched *TherapistSchedule) time.Duration {
	if therapistID == nil {
		return 0
	}
	if sched == nil {
		return TotalSlotDuration
	}
	return time.Duration(sched.AppointmentDurationInMinutes+sched.BufferTimeInMinutes) * time.Minute
}

// siblingSlotDuration is the window applied to other visits in the series;
// an unknown schedule falls back to TotalSlotDuration.
func siblingSlotDuration(sched *TherapistSchedule) time.Duration {
	if sched == nil {
		return TotalSlotDuration
	}
	return time.Duration(sched.AppointmentDurationInMinutes+sched.BufferTimeInMinutes) * time.Minute
}

// DetectCollision checks the candidate window [start, start+duration) against
// every scheduled, non-cancelled sibling in the same series. schedules maps
// therapist id to configuration; missing entries fall back to
// TotalSlotDuration. A zero-length candidate window never collides.
func DetectCollision(candidate *Appointment, start time.Time, duration time.Duration, siblings []Appointment, schedules map[uuid.UUID]*TherapistSchedule) error {
	if duration <= 0 {
		return nil
	}
	end := start.Add(duration)

	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == candidate.ID {
			continue
		}
		if sib.AppointmentDateTime == nil {
			continue
		}
		if sib.Status == StatusCancelled {
			continue
		}

		var sched *TherapistSchedule
		if sib.TherapistID != nil {
			sched = schedules[*sib.TherapistID]
		}
		sibStart := *sib.AppointmentDateTime
		sibEnd := sibStart.Add(siblingSlotDuration(sched))

		// half-open interval intersection
		if start.Before(sibEnd) && sibStart.Before(end) {
			return &TimeCollisionError{
				CandidateVisit: candidate.VisitNumber,
				SiblingVisit:   sib.VisitNumber,
			}
		}
	}

	return nil
}
