package booking

// DeriveStatus computes the lifecycle status implied by the current therapist
// and time assignment.
func DeriveStatus(a *Appointment) AppointmentStatus {
	switch {
	case a.TherapistID == nil && a.AppointmentDateTime == nil:
		return StatusUnscheduled
	case a.AppointmentDateTime != nil && a.TherapistID == nil:
		return StatusPendingTherapistAssignment
	case a.TherapistID != nil && a.AppointmentDateTime != nil:
		return StatusPendingPatientApproval
	default:
		// therapist assigned but no time yet
		return StatusUnscheduled
	}
}

// ApplyStatus re-derives the appointment status after an edit, honoring the
// sticky terminal statuses: for those the edit persists but the status field
// is left untouched. Returns the previous status and whether it changed.
func ApplyStatus(a *Appointment) (old AppointmentStatus, changed bool) {
	old = a.Status
	if old.Sticky() {
		return old, false
	}

	next := DeriveStatus(a)
	if next == old {
		return old, false
	}
	a.Status = next
	return old, true
}
