package appointment

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInVitals   Status = "IN_VITALS"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
	StatusNoShow     Status = "NO_SHOW"
)

var allStatuses = []Status{
	StatusScheduled, StatusInVitals, StatusInProgress, StatusReady,
	StatusCompleted, StatusCanceled, StatusNoShow,
}

// sourceOf maps each reachable status to the only status it can be entered from.
var sourceOf = map[Status]Status{
	StatusInVitals:   StatusScheduled,
	StatusInProgress: StatusInVitals,
	StatusReady:      StatusInProgress,
	StatusCompleted:  StatusReady,
	StatusCanceled:   StatusScheduled,
	StatusNoShow:     StatusScheduled,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown appointment status %q", ErrInvalidInput, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Blocking statuses occupy the practitioner's calendar for conflict checks.
func (s Status) Blocking() bool {
	return s == StatusScheduled || s == StatusInVitals || s == StatusInProgress
}

// OccupiesSlot decides slot availability: everything except cancellations
// and no-shows keeps its slot marked unavailable.
func (s Status) OccupiesSlot() bool {
	return s != StatusCanceled && s != StatusNoShow
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusNoShow
}

func (s Status) CanTransitionTo(to Status) bool {
	from, ok := sourceOf[to]
	return ok && from == s
}

// Advance moves the appointment to the target status and stamps the
// milestone timestamp that belongs to it.
func (a *Appointment) Advance(to Status, at time.Time) error {
	if !a.Status.CanTransitionTo(to) {
		return transitionError(a, to)
	}

	switch to {
	case StatusInVitals:
		a.VitalsTakenAt = &at
	case StatusInProgress:
		a.ConsultationStartedAt = &at
	case StatusReady:
		a.ConsultationEndedAt = &at
	}
	a.Status = to
	a.UpdatedAt = at
	return nil
}

func transitionError(a *Appointment, to Status) error {
	from, ok := sourceOf[to]
	if !ok {
		return fmt.Errorf("%w: appointment %s cannot move to %s", ErrInvalidTransition, a.ID, to)
	}
	return fmt.Errorf("%w: appointment %s is %s, moving to %s requires %s",
		ErrInvalidTransition, a.ID, a.Status, to, from)
}
