// Package timeofday implements wall-clock arithmetic with minute resolution.
package timeofday

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of one wall-clock day.
const MinutesPerDay = 24 * 60

// ErrInvalid is returned when a string is not a valid HH:MM or HH.MM time.
var ErrInvalid = errors.New("invalid time of day")

var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3])[:.]([0-5][0-9])$`)

// Time is a time of day expressed as minutes since midnight.
type Time int

// New returns the time for the given hour and minute.
func New(hour, minute int) Time {
	return Time(0).Add(hour*60 + minute)
}

// FromClock truncates t to the minute and drops the date.
func FromClock(t time.Time) Time {
	return Time(t.Hour()*60 + t.Minute())
}

// Parse accepts "9:05", "09:05" and "09.05".
func Parse(s string) (Time, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q (expected HH:MM)", ErrInvalid, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return Time(hour*60 + minute), nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Ptr returns a pointer to a copy of t.
func Ptr(t Time) *Time {
	return &t
}

func (t Time) Hour() int   { return int(t) / 60 }
func (t Time) Minute() int { return int(t) % 60 }

// Add moves t by the given number of minutes, wrapping at midnight.
func (t Time) Add(minutes int) Time {
	v := (int(t) + minutes) % MinutesPerDay
	if v < 0 {
		v += MinutesPerDay
	}
	return Time(v)
}

// Before reports whether t is earlier in the day than u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t is later in the day than u.
func (t Time) After(u Time) bool { return t > u }

// Valid reports whether t lies within a single day.
func (t Time) Valid() bool { return t >= 0 && t < MinutesPerDay }

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText encodes t as HH:MM.
func (t Time) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalid, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes HH:MM or HH.MM.
func (t *Time) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Between returns the signed number of minutes from "from" to "to".
// No wrapping is applied: an end before its start yields a negative value.
func Between(from, to Time) int {
	return int(to) - int(from)
}

// On places t on the calendar day of date, in date's location.
func (t Time) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

// FormatDuration renders minutes as HH:MM, prefixed with "-" when negative.
func FormatDuration(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// FormatDurationText renders minutes for humans: "45 min", "2h", "2h 30min".
func FormatDurationText(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dmin", hours, rest)
}
