package scheduling

import (
	"fmt"
	"strings"
)

const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hours, ok := twoDigits(parts[0])
	if !ok {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, ok := twoDigits(parts[1])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		if seconds, ok := twoDigits(parts[2]); !ok || seconds != 0 {
			return 0, fmt.Errorf("seconds not supported in %q", raw)
		}
	}
	total := hours*60 + minutes
	if total > minutesPerDay {
		return 0, fmt.Errorf("time of day out of range %q", raw)
	}
	return total, nil
}

// twoDigits parses exactly two ASCII digits.
func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock parses and re-renders a time of day in canonical "HH:MM" form.
func NormalizeClock(raw string) (string, error) {
	m, err := ParseClock(raw)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}

// ClockRange is a half-open time-of-day range in minutes since midnight.
type ClockRange struct {
	Start int
	End   int
}

// ParseClockRange parses both bounds and requires end > start.
func ParseClockRange(start, end string) (ClockRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ClockRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ClockRange{}, err
	}
	if e <= s {
		return ClockRange{}, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return ClockRange{Start: s, End: e}, nil
}

// Overlaps reports whether two ranges intersect. Touching ranges do not overlap.
func (r ClockRange) Overlaps(other ClockRange) bool {
	return r.Start < other.End && r.End > other.Start
}

// Contains reports whether other lies entirely within r.
func (r ClockRange) Contains(other ClockRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// String renders the range as "HH:MM-HH:MM".
func (r ClockRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}
