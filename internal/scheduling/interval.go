// Package scheduling holds the overlap, time-of-day and recurrence rules shared by the
// meeting and consultation services.
package scheduling

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd) intersect.
// Adjacent intervals (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Interval is a half-open time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether two intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// FirstOverlap returns the index of the first interval in existing that overlaps candidate, or -1.
func FirstOverlap(candidate Interval, existing []Interval) int {
	for idx, item := range existing {
		if candidate.Overlaps(item) {
			return idx
		}
	}
	return -1
}
