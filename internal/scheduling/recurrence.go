package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// MaxOccurrences caps the size of a materialised meeting series.
const MaxOccurrences = 52

// maxScanDays bounds the day walk so sparse rules cannot loop indefinitely.
const maxScanDays = 5 * 366

var (
	// ErrUnboundedRecurrence indicates a rule with neither until nor count.
	ErrUnboundedRecurrence = errors.New("recurrence requires until or count")
	// ErrInvalidFrequency indicates an unsupported frequency.
	ErrInvalidFrequency = errors.New("recurrence frequency must be DAILY or WEEKLY")
	// ErrTooManyOccurrences indicates the rule expands beyond MaxOccurrences.
	ErrTooManyOccurrences = fmt.Errorf("recurrence expands to more than %d occurrences", MaxOccurrences)
)

// Expand materialises the occurrences of rule for a series whose first instance spans [start, end).
// Occurrences keep the wall-clock time of start in its location. Until is inclusive by date.
func Expand(rule models.RecurrenceRule, start, end time.Time) ([]Interval, error) {
	if !end.After(start) {
		return nil, errors.New("recurrence base interval must have end after start")
	}
	if rule.Frequency != models.RecurrenceDaily && rule.Frequency != models.RecurrenceWeekly {
		return nil, ErrInvalidFrequency
	}
	if rule.Until == nil && rule.Count <= 0 {
		return nil, ErrUnboundedRecurrence
	}
	if rule.Count > MaxOccurrences {
		return nil, ErrTooManyOccurrences
	}
	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	loc := start.Location()
	duration := end.Sub(start)
	firstDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	var lastDay time.Time
	if rule.Until != nil {
		u := rule.Until.In(loc)
		lastDay = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)
		if lastDay.Before(firstDay) {
			return nil, errors.New("recurrence until must not precede the first occurrence")
		}
	}

	weekdays := make(map[time.Weekday]bool, len(rule.Weekdays))
	for _, name := range rule.Weekdays {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		weekdays[day] = true
	}
	if rule.Frequency == models.RecurrenceWeekly && len(weekdays) == 0 {
		weekdays[start.Weekday()] = true
	}

	firstWeek := StartOfWeek(firstDay)
	occurrences := make([]Interval, 0)
	for offset := 0; offset < maxScanDays; offset++ {
		day := firstDay.AddDate(0, 0, offset)
		if !lastDay.IsZero() && day.After(lastDay) {
			break
		}
		if !includeDay(rule.Frequency, interval, weekdays, firstWeek, offset, day) {
			continue
		}
		occStart := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), loc)
		occurrences = append(occurrences, Interval{Start: occStart, End: occStart.Add(duration)})
		if len(occurrences) > MaxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		if rule.Count > 0 && len(occurrences) == rule.Count {
			break
		}
	}
	return occurrences, nil
}

func includeDay(freq models.RecurrenceFrequency, interval int, weekdays map[time.Weekday]bool, firstWeek time.Time, offset int, day time.Time) bool {
	switch freq {
	case models.RecurrenceDaily:
		if offset%interval != 0 {
			return false
		}
		return len(weekdays) == 0 || weekdays[day.Weekday()]
	case models.RecurrenceWeekly:
		weeks := int(StartOfWeek(day).Sub(firstWeek).Hours()/24+0.5) / 7
		return weeks%interval == 0 && weekdays[day.Weekday()]
	default:
		return false
	}
}
