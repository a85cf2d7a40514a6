package appointment

import (
	"iter"
	"time"
)

type Slot struct {
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
	Available bool  `json:"available"`
}

// Window is the working day slots are cut from.
type Window struct {
	Start Clock
	End   Clock
	Step  time.Duration
}

// GenerateSlots yields every Step-sized slot fully contained in w, marking a
// slot unavailable when it overlaps a booked appointment that still holds
// its place. The sequence is computed from day on every iteration.
func GenerateSlots(w Window, day []Appointment) iter.Seq[Slot] {
	step := Clock(w.Step / time.Minute)

	return func(yield func(Slot) bool) {
		if step <= 0 {
			return
		}
		for start := w.Start; start+step <= w.End; start += step {
			slot := Slot{Start: start, End: start + step, Available: true}
			iv := Interval{Start: slot.Start, End: slot.End}
			for i := range day {
				a := &day[i]
				if a.Active && a.Status.OccupiesSlot() && a.Interval().Overlaps(iv) {
					slot.Available = false
					break
				}
			}
			if !yield(slot) {
				return
			}
		}
	}
}
