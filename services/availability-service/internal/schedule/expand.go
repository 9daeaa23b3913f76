package schedule

import (
	"fmt"
	"time"

	"github.com/litespace/availability/libs/timex"
)

// Expand returns the occurrences of rule whose start lies in [from, to),
// ascending by start. Activation and deletion flags are ignored here; Unpack
// applies them.
func Expand(rule Rule, from, to time.Time) ([]Event, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}
	return expand(rule, from.UTC(), to.UTC()), nil
}

// expand assumes a valid rule and window.
func expand(rule Rule, from, to time.Time) []Event {
	lo := timex.Max(rule.Start.UTC(), from)
	last := rule.lastDay()
	var out []Event

	emit := func(day time.Time) bool {
		start := rule.Time.On(day)
		if start.Before(lo) {
			return true
		}
		if !start.Before(to) {
			return false
		}
		out = append(out, Event{RuleID: rule.ID, Start: start, End: start.Add(rule.length())})
		return true
	}

	switch f := rule.Frequency.(type) {
	case Daily:
		for day := timex.StartOfDay(lo); !day.After(last); day = timex.AddDays(day, 1) {
			if !emit(day) {
				break
			}
		}
	case Weekly:
		for day := timex.StartOfDay(lo); !day.After(last); day = timex.AddDays(day, 1) {
			if !f.has(day.Weekday()) {
				continue
			}
			if !emit(day) {
				break
			}
		}
	case Monthly:
		for month := timex.StartOfMonth(lo); !month.After(last); month = timex.AddMonths(month, 1) {
			d := min(f.Monthday, timex.DaysInMonth(month.Year(), month.Month()))
			day := timex.AddDays(month, d-1)
			if day.After(last) {
				break
			}
			if !emit(day) {
				break
			}
		}
	}
	return out
}
