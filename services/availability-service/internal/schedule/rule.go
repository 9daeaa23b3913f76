// Package schedule expands recurring availability rules into concrete events,
// detects overlapping rules and selects the events that can still be booked.
//
// Everything here is a pure function of its arguments and safe for
// concurrent use. Callers own persistence and must serialize rule writes per
// user themselves.
package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/litespace/availability/libs/timex"
)

// MaxDuration bounds an occurrence to one day so a rule never overlaps itself.
const MaxDuration = 24 * 60

type FrequencyKind string

const (
	KindDaily   FrequencyKind = "daily"
	KindWeekly  FrequencyKind = "weekly"
	KindMonthly FrequencyKind = "monthly"
)

// Frequency is one of Daily, Weekly or Monthly.
type Frequency interface {
	Kind() FrequencyKind
	validate() error
}

type Daily struct{}

type Weekly struct {
	Weekdays []time.Weekday
}

// Monthly repeats on Monthday, clamped to the last day of shorter months.
type Monthly struct {
	Monthday int
}

func (Daily) Kind() FrequencyKind   { return KindDaily }
func (Weekly) Kind() FrequencyKind  { return KindWeekly }
func (Monthly) Kind() FrequencyKind { return KindMonthly }

func (Daily) validate() error { return nil }

func (w Weekly) validate() error {
	if len(w.Weekdays) == 0 {
		return fmt.Errorf("%w: weekly rule needs at least one weekday", ErrInvalidRule)
	}
	for _, d := range w.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, d)
		}
	}
	return nil
}

func (m Monthly) validate() error {
	if m.Monthday < 1 || m.Monthday > 31 {
		return fmt.Errorf("%w: monthday %d out of range", ErrInvalidRule, m.Monthday)
	}
	return nil
}

func (w Weekly) has(d time.Weekday) bool {
	return slices.Contains(w.Weekdays, d)
}

// NewFrequency builds a Frequency from its stored columns. Columns that do not
// belong to kind make the combination invalid.
func NewFrequency(kind string, weekdays []int, monthday *int) (Frequency, error) {
	var f Frequency
	switch FrequencyKind(kind) {
	case KindDaily:
		if len(weekdays) > 0 || monthday != nil {
			return nil, fmt.Errorf("%w: daily rule cannot carry weekdays or monthday", ErrInvalidRule)
		}
		f = Daily{}
	case KindWeekly:
		if monthday != nil {
			return nil, fmt.Errorf("%w: weekly rule cannot carry a monthday", ErrInvalidRule)
		}
		days := make([]time.Weekday, 0, len(weekdays))
		for _, d := range weekdays {
			if !slices.Contains(days, time.Weekday(d)) {
				days = append(days, time.Weekday(d))
			}
		}
		slices.Sort(days)
		f = Weekly{Weekdays: days}
	case KindMonthly:
		if len(weekdays) > 0 {
			return nil, fmt.Errorf("%w: monthly rule cannot carry weekdays", ErrInvalidRule)
		}
		if monthday == nil {
			return nil, fmt.Errorf("%w: monthly rule needs a monthday", ErrInvalidRule)
		}
		f = Monthly{Monthday: *monthday}
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, kind)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Rule is a recurring availability definition owned by one tutor or
// interviewer.
//
// Occurrences start at Time on every matching UTC day from Start's day to
// End's day inclusive, never before Start. End bounds occurrence starts only;
// the last occurrence may end after End.
type Rule struct {
	ID        string
	UserID    string
	Title     string
	Frequency Frequency
	Start     time.Time
	End       time.Time
	Time      timex.TimeOfDay
	Duration  int // minutes
	Activated bool
	Deleted   bool
}

func (r Rule) Validate() error {
	if r.Frequency == nil {
		return fmt.Errorf("%w: missing frequency", ErrInvalidRule)
	}
	if err := r.Frequency.validate(); err != nil {
		return err
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: missing start or end", ErrInvalidRule)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start is after end", ErrInvalidRule)
	}
	if r.Duration <= 0 || r.Duration > MaxDuration {
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidRule, MaxDuration)
	}
	if !r.Time.Valid() {
		return fmt.Errorf("%w: invalid time of day %s", ErrInvalidRule, r.Time)
	}
	return nil
}

// Live reports whether the rule takes part in expansion and booking.
func (r Rule) Live() bool {
	return r.Activated && !r.Deleted
}

func (r Rule) length() time.Duration {
	return time.Duration(r.Duration) * time.Minute
}

// lastDay is the UTC midnight of the last day that may hold an occurrence.
func (r Rule) lastDay() time.Time {
	return timex.StartOfDay(r.End)
}

// span is the half-open interval covered by any possible occurrence.
func (r Rule) span() (time.Time, time.Time) {
	return r.Start.UTC(), timex.AddDays(r.lastDay(), 1).Add(r.length())
}

// Event is one concrete occurrence of a rule.
type Event struct {
	RuleID string
	Start  time.Time
	End    time.Time
}

func (e Event) Overlaps(o Event) bool {
	return timex.Overlaps(e.Start, e.End, o.Start, o.End)
}

func (e Event) Length() time.Duration {
	return e.End.Sub(e.Start)
}

// ValidateWindow checks a query window. maxSpan <= 0 disables the horizon cap.
func ValidateWindow(from, to time.Time, maxSpan time.Duration) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidWindow)
	}
	if from.After(to) {
		return fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}
	if maxSpan > 0 && to.Sub(from) > maxSpan {
		return fmt.Errorf("%w: window exceeds %s", ErrInvalidWindow, maxSpan)
	}
	return nil
}
