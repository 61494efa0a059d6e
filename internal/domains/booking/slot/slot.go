package slot

import (
	"errors"
	"fmt"
)

var (
	Open  = Clock(8, 0)
	Close = Clock(22, 0)
)

var ErrOutsideBusinessHours = errors.New("please book between 08:00 and 22:00")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

func (i Interval) Duration() int {
	return i.End.Minutes() - i.Start.Minutes()
}

func (i Interval) String() string {
	return i.Start.String() + "–" + i.End.String()
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return max(aStart, bStart) < min(aEnd, bEnd)
}

// ValidateHours checks that [start, end) is non-empty and lies within opening hours.
func ValidateHours(start, end TimeOfDay) error {
	if start < Open || start >= Close || end <= Open || end > Close || start >= end {
		return ErrOutsideBusinessHours
	}

	return nil
}

// FindConflict returns the first existing interval that overlaps candidate.
func FindConflict(existing []Interval, candidate Interval) (Interval, bool) {
	for _, booked := range existing {
		if booked.Overlaps(candidate) {
			return booked, true
		}
	}

	return Interval{}, false
}

// ConflictError rejects a booking that overlaps a confirmed one.
type ConflictError struct {
	Existing Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("selected time overlaps with an existing booking: %s", e.Existing)
}
