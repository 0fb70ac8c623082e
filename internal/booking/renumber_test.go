package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func visitAt(number int, status AppointmentStatus, at *time.Time) Appointment {
	return Appointment{
		ID:                  uuid.New(),
		VisitNumber:         number,
		Status:              status,
		AppointmentDateTime: at,
	}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRenumberChronologicalOrder(t *testing.T) {
	// visit 3 moved before visit 1 in time
	series := []Appointment{
		visitAt(1, StatusPendingPatientApproval, ts("2025-06-10T09:00:00Z")),
		visitAt(2, StatusPendingPatientApproval, ts("2025-06-12T09:00:00Z")),
		visitAt(3, StatusPendingPatientApproval, ts("2025-06-01T09:00:00Z")),
	}

	changed := Renumber(series)

	byTime := map[string]int{}
	for _, v := range series {
		byTime[v.AppointmentDateTime.Format(time.RFC3339)] = v.VisitNumber
	}
	assert.Equal(t, 1, byTime["2025-06-01T09:00:00Z"])
	assert.Equal(t, 2, byTime["2025-06-10T09:00:00Z"])
	assert.Equal(t, 3, byTime["2025-06-12T09:00:00Z"])
	assert.Len(t, changed, 3)
}

func TestRenumberPinsCompletedVisits(t *testing.T) {
	series := []Appointment{
		visitAt(1, StatusCompleted, ts("2025-06-01T09:00:00Z")),
		visitAt(2, StatusPendingPatientApproval, ts("2025-06-20T09:00:00Z")),
		visitAt(3, StatusPendingPatientApproval, ts("2025-06-05T09:00:00Z")),
	}
	completedID := series[0].ID

	changed := Renumber(series)

	for _, v := range series {
		if v.ID == completedID {
			assert.Equal(t, 1, v.VisitNumber, "completed visit must keep its number")
		}
	}
	_, completedMoved := changed[completedID]
	assert.False(t, completedMoved)

	byTime := map[string]int{}
	for _, v := range series[1:] {
		byTime[v.AppointmentDateTime.Format(time.RFC3339)] = v.VisitNumber
	}
	assert.Equal(t, 2, byTime["2025-06-05T09:00:00Z"])
	assert.Equal(t, 3, byTime["2025-06-20T09:00:00Z"])
}

func TestRenumberUnscheduledSortLast(t *testing.T) {
	series := []Appointment{
		visitAt(1, StatusUnscheduled, nil),
		visitAt(2, StatusUnscheduled, nil),
		visitAt(3, StatusPendingPatientApproval, ts("2025-06-05T09:00:00Z")),
		visitAt(4, StatusPendingPatientApproval, ts("2025-06-01T09:00:00Z")),
	}
	firstUnscheduled := series[0].ID
	secondUnscheduled := series[1].ID

	Renumber(series)

	numbers := map[uuid.UUID]int{}
	var maxScheduled int
	for _, v := range series {
		numbers[v.ID] = v.VisitNumber
		if v.Scheduled() && v.VisitNumber > maxScheduled {
			maxScheduled = v.VisitNumber
		}
	}

	// every unscheduled number exceeds every scheduled number
	assert.Greater(t, numbers[firstUnscheduled], maxScheduled)
	assert.Greater(t, numbers[secondUnscheduled], maxScheduled)
	// unscheduled visits keep their prior relative order
	assert.Less(t, numbers[firstUnscheduled], numbers[secondUnscheduled])
}

func TestRenumberStableWhenAlreadyOrdered(t *testing.T) {
	series := []Appointment{
		visitAt(1, StatusPendingPatientApproval, ts("2025-06-01T09:00:00Z")),
		visitAt(2, StatusPendingPatientApproval, ts("2025-06-08T09:00:00Z")),
	}

	changed := Renumber(series)

	assert.Empty(t, changed)
	assert.Equal(t, 1, series[0].VisitNumber)
	assert.Equal(t, 2, series[1].VisitNumber)
}
