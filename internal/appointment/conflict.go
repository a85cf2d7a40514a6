package appointment

import "github.com/google/uuid"

// Interval is a half-open [Start, End) range of wall clock time.
type Interval struct {
	Start Clock
	End   Clock
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// FindConflict returns the first active, blocking appointment in day that
// overlaps candidate. exclude skips one appointment, the one being edited.
func FindConflict(day []Appointment, candidate Interval, exclude uuid.UUID) (*Appointment, bool) {
	for i := range day {
		a := &day[i]
		if !a.Active || !a.Status.Blocking() {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		if a.Interval().Overlaps(candidate) {
			return a, true
		}
	}
	return nil, false
}
