package appointment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackgods/clinic-appointment-core/internal/config"
)

// Clock is a wall clock time in whole minutes since midnight, 00:00..24:00.
type Clock int

const (
	minutesPerDay = 24 * 60
	EndOfDay      = Clock(minutesPerDay)
)

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

func ClockFromDuration(d time.Duration) Clock {
	return Clock(d / time.Minute)
}

func ParseClock(s string) (Clock, error) {
	d, err := config.ParseClock(s)
	if err != nil {
		return 0, err
	}
	return ClockFromDuration(d), nil
}

func (c Clock) Valid() bool {
	return c >= 0 && c <= EndOfDay
}

func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// Sub returns c - o as a duration.
func (c Clock) Sub(o Clock) time.Duration {
	return time.Duration(c-o) * time.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of c on the given civil date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(c) * time.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("clock must be a HH:MM string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
