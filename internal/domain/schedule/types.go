package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Reference data owned by the administrative side of the system. The
// lifecycle core only ever reads it.

type Space struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// TimeOfDay is a wall-clock offset from midnight.
type TimeOfDay time.Duration

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func (t TimeOfDay) On(date time.Time) time.Time {
	return DateOf(date).Add(time.Duration(t))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04")
}

type Timeslot struct {
	ID     uuid.UUID
	Start  TimeOfDay
	End    TimeOfDay
	Active bool
}

// WindowOn resolves the slot to concrete instants on the given date.
func (s Timeslot) WindowOn(date time.Time) (time.Time, time.Time) {
	return s.Start.On(date), s.End.On(date)
}

func (s Timeslot) Hours() int {
	return int(time.Duration(s.End-s.Start) / time.Hour)
}

// DateOf truncates an instant to its civil date, preserving location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
