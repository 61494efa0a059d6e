// Package slot holds the time arithmetic behind bookings: wall-clock times of day,
// half-open intervals, the business-hours window and conflict detection.
package slot

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	layout         = "15:04"
)

var (
	ErrMalformedTime = errors.New("time must be in HH:MM format")
	ErrDayOverflow   = errors.New("time does not fit on the same day")
)

// TimeOfDay is a wall-clock time, stored as minutes since midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from an hour and minute that are known to be valid.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*minutesPerHour + minute)
}

// ParseTimeOfDay accepts exactly two digits, a colon and two digits.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	if len(value) != len(layout) || value[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	hour, ok := twoDigits(value[0], value[1])
	if !ok || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	minute, ok := twoDigits(value[3], value[4])
	if !ok || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	return Clock(hour, minute), nil
}

func twoDigits(tens, ones byte) (int, bool) {
	if tens < '0' || tens > '9' || ones < '0' || ones > '9' {
		return 0, false
	}

	return int(tens-'0')*10 + int(ones-'0'), true
}

// AddMinutes returns t shifted forward by n minutes. It never wraps past midnight.
func (t TimeOfDay) AddMinutes(n int) (TimeOfDay, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative duration %d", ErrDayOverflow, n)
	}

	if n >= minutesPerDay-int(t) {
		return 0, fmt.Errorf("%w: %s + %d minutes", ErrDayOverflow, t, n)
	}

	return TimeOfDay(int(t) + n), nil
}

func (t TimeOfDay) Hour() int {
	return int(t) / minutesPerHour
}

func (t TimeOfDay) Minute() int {
	return int(t) % minutesPerHour
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	year, month, day := date.Date()

	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, date.Location())
}

// Scan reads a Postgres TIME column.
func (t *TimeOfDay) Scan(src any) error {
	switch val := src.(type) {
	case time.Time:
		*t = Clock(val.Hour(), val.Minute())

		return nil
	case []byte:
		return t.scanText(string(val))
	case string:
		return t.scanText(val)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// scanText accepts the HH:MM:SS form drivers return, dropping seconds.
func (t *TimeOfDay) scanText(value string) error {
	if len(value) > len(layout) {
		value = value[:len(layout)]
	}

	parsed, err := ParseTimeOfDay(value)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedTime, string(data))
	}

	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}
