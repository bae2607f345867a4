package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var weekdayAliases = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday resolves a weekday name case-insensitively, accepting short forms.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

// CanonicalWeekdays validates names and returns them de-duplicated in Monday-first order.
func CanonicalWeekdays(names []string) ([]string, error) {
	seen := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		seen[day] = true
	}
	out := make([]string, 0, len(seen))
	for _, day := range mondayFirst {
		if seen[day] {
			out = append(out, day.String())
		}
	}
	return out, nil
}

var mondayFirst = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// WeekdayName returns the English weekday name of a YYYY-MM-DD date.
func WeekdayName(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.Weekday().String(), nil
}

// DayAllowed reports whether the weekday of date appears in days.
func DayAllowed(date string, days []string) (bool, error) {
	name, err := WeekdayName(date)
	if err != nil {
		return false, err
	}
	for _, day := range days {
		parsed, err := ParseWeekday(day)
		if err != nil {
			continue
		}
		if parsed.String() == name {
			return true, nil
		}
	}
	return false, nil
}

// StartOfWeek returns the Monday on or before t, at midnight in t's location.
func StartOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
