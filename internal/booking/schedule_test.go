package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotDuration(t *testing.T) {
	therapist := uuid.New()

	t.Run("no therapist means no footprint", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), SlotDuration(nil, nil))
	})

	t.Run("therapist without schedule falls back", func(t *testing.T) {
		assert.Equal(t, TotalSlotDuration, SlotDuration(&therapist, nil))
	})

	t.Run("duration plus buffer", func(t *testing.T) {
		sched := &TherapistSchedule{
			TherapistID:                  therapist,
			AppointmentDurationInMinutes: 50,
			BufferTimeInMinutes:          15,
		}
		assert.Equal(t, 65*time.Minute, SlotDuration(&therapist, sched))
	})
}

func TestDetectCollision(t *testing.T) {
	therapistA := uuid.New()
	therapistB := uuid.New()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	schedules := map[uuid.UUID]*TherapistSchedule{
		therapistA: {TherapistID: therapistA, AppointmentDurationInMinutes: 50, BufferTimeInMinutes: 15},
		therapistB: {TherapistID: therapistB, AppointmentDurationInMinutes: 45, BufferTimeInMinutes: 15},
	}

	sibTime := base
	sibling := Appointment{
		ID:                  uuid.New(),
		VisitNumber:         2,
		TherapistID:         &therapistA,
		AppointmentDateTime: &sibTime,
		Status:              StatusPendingPatientApproval,
	}
	candidate := &Appointment{ID: uuid.New(), VisitNumber: 3, TherapistID: &therapistB}

	t.Run("start inside sibling window collides", func(t *testing.T) {
		// sibling occupies [09:00, 10:05)
		start := base.Add(30 * time.Minute)
		err := DetectCollision(candidate, start, time.Hour, []Appointment{sibling}, schedules)

		var collision *TimeCollisionError
		require.ErrorAs(t, err, &collision)
		assert.Equal(t, 3, collision.CandidateVisit)
		assert.Equal(t, 2, collision.SiblingVisit)
		assert.Contains(t, err.Error(), "schedule conflict")
	})

	t.Run("window well clear of sibling passes", func(t *testing.T) {
		start := base.Add(5 * time.Hour)
		err := DetectCollision(candidate, start, time.Hour, []Appointment{sibling}, schedules)
		assert.NoError(t, err)
	})

	t.Run("half-open boundary is not a collision", func(t *testing.T) {
		// candidate starts exactly when the sibling window ends
		start := base.Add(65 * time.Minute)
		err := DetectCollision(candidate, start, time.Hour, []Appointment{sibling}, schedules)
		assert.NoError(t, err)
	})

	t.Run("zero-length candidate never collides", func(t *testing.T) {
		err := DetectCollision(candidate, base, 0, []Appointment{sibling}, schedules)
		assert.NoError(t, err)
	})

	t.Run("cancelled sibling is ignored", func(t *testing.T) {
		cancelled := sibling
		cancelled.Status = StatusCancelled
		err := DetectCollision(candidate, base, time.Hour, []Appointment{cancelled}, schedules)
		assert.NoError(t, err)
	})

	t.Run("unscheduled sibling is ignored", func(t *testing.T) {
		unscheduled := sibling
		unscheduled.AppointmentDateTime = nil
		err := DetectCollision(candidate, base, time.Hour, []Appointment{unscheduled}, schedules)
		assert.NoError(t, err)
	})

	t.Run("candidate excluded from its own siblings", func(t *testing.T) {
		self := *candidate
		selfTime := base
		self.AppointmentDateTime = &selfTime
		err := DetectCollision(candidate, base, time.Hour, []Appointment{self}, schedules)
		assert.NoError(t, err)
	})

	t.Run("unknown sibling schedule falls back to the slot constant", func(t *testing.T) {
		unknownTherapist := uuid.New()
		sib := sibling
		sib.TherapistID = &unknownTherapist

		// 100 minutes in: inside the 120-minute fallback window
		err := DetectCollision(candidate, base.Add(100*time.Minute), time.Hour, []Appointment{sib}, schedules)
		var collision *TimeCollisionError
		assert.ErrorAs(t, err, &collision)

		// 120 minutes in: just past it
		err = DetectCollision(candidate, base.Add(120*time.Minute), time.Hour, []Appointment{sib}, schedules)
		assert.NoError(t, err)
	})
}
