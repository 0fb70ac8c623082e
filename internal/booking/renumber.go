package booking

import (
	"sort"

	"github.com/google/uuid"
)

// Renumber re-sequences visit numbers within one series after a reschedule.
//
// Completed visits are pinned: they keep their numbers and those numbers are
// withheld from the pool. The remaining numbers are dealt in ascending order
// first to scheduled visits sorted by appointment time, then to unscheduled
// visits in their prior relative order.
//
// Mutates the slice in place and returns the new number per appointment id
// for the visits whose number actually changed.
func Renumber(series []Appointment) map[uuid.UUID]int {
	pinnedNumbers := make(map[int]bool)
	var reorderable []*Appointment

	for i := range series {
		v := &series[i]
		if v.Status == StatusCompleted {
			pinnedNumbers[v.VisitNumber] = true
			continue
		}
		reorderable = append(reorderable, v)
	}

	// Pool: every reorderable visit's current number, minus any that collide
	// with a pinned number, ascending.
	var pool []int
	for _, v := range reorderable {
		if !pinnedNumbers[v.VisitNumber] {
			pool = append(pool, v.VisitNumber)
		}
	}
	sort.Ints(pool)

	var scheduled, unscheduled []*Appointment
	for _, v := range reorderable {
		if v.Scheduled() {
			scheduled = append(scheduled, v)
		} else {
			unscheduled = append(unscheduled, v)
		}
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		return scheduled[i].AppointmentDateTime.Before(*scheduled[j].AppointmentDateTime)
	})
	sort.SliceStable(unscheduled, func(i, j int) bool {
		return unscheduled[i].VisitNumber < unscheduled[j].VisitNumber
	})

	changed := make(map[uuid.UUID]int)
	idx := 0
	assign := func(v *Appointment) {
		if idx >= len(pool) {
			return
		}
		n := pool[idx]
		idx++
		if v.VisitNumber != n {
			v.VisitNumber = n
			changed[v.ID] = n
		}
	}

	for _, v := range scheduled {
		assign(v)
	}
	for _, v := range unscheduled {
		assign(v)
	}

	return changed
}
