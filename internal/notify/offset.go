package notify

import (
	"fmt"
	"time"

	"calendario/internal/apperr"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// Offset is the days/hours/minutes decomposition of a lead time.
type Offset struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ToOffsetMinutes folds days, hours and minutes into total minutes. Inputs
// are expected to be clamped already; negative values are rejected.
func ToOffsetMinutes(days, hours, minutes int) (int, error) {
	if days < 0 || hours < 0 || minutes < 0 {
		return 0, fmt.Errorf("offset %dd %dh %dm: %w", days, hours, minutes, apperr.ErrInvalidArgument)
	}
	return days*minutesPerDay + hours*minutesPerHour + minutes, nil
}

// FromOffsetMinutes is the inverse of ToOffsetMinutes.
func FromOffsetMinutes(total int) (Offset, error) {
	if total < 0 {
		return Offset{}, fmt.Errorf("offset %d minutes: %w", total, apperr.ErrInvalidArgument)
	}
	rem := total % minutesPerDay
	return Offset{
		Days:    total / minutesPerDay,
		Hours:   rem / minutesPerHour,
		Minutes: rem % minutesPerHour,
	}, nil
}

// Total converts o back to total minutes.
func (o Offset) Total() (int, error) {
	return ToOffsetMinutes(o.Days, o.Hours, o.Minutes)
}

// Clamp applies the input-boundary rules: days >= 0, hours in [0,23],
// minutes in [0,59].
func Clamp(days, hours, minutes int) Offset {
	return Offset{
		Days:    clamp(days, 0, -1),
		Hours:   clamp(hours, 0, 23),
		Minutes: clamp(minutes, 0, 59),
	}
}

// clamp bounds v to [lo, hi]; hi < 0 means unbounded.
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi >= 0 && v > hi {
		return hi
	}
	return v
}

// FireTime is the instant a reminder for an event at date fires.
func FireTime(date time.Time, offsetMinutes int) time.Time {
	return date.Add(-time.Duration(offsetMinutes) * time.Minute)
}

// IsPast reports whether fireTime is not strictly in the future. An instant
// equal to now counts as past.
func IsPast(fireTime, now time.Time) bool {
	return !fireTime.After(now)
}
