package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/litespace/availability/libs/timex"
	"github.com/teambition/rrule-go"
)

const describeDateLayout = "02 January, 2006"

// Describe renders rule as an English sentence, e.g.
// "Every day from 10:00 until 11:00 starting from 01 January, 2025 until 03 January, 2025."
func Describe(r Rule) string {
	endMinutes := (r.Time.Minutes() + r.Duration) % (24 * 60)
	until := timex.TimeOfDay{Hour: endMinutes / 60, Minute: endMinutes % 60}
	hours := fmt.Sprintf("from %s until %s", r.Time, until)
	dates := fmt.Sprintf("starting from %s until %s.", r.Start.UTC().Format(describeDateLayout), r.End.UTC().Format(describeDateLayout))

	var head string
	switch f := r.Frequency.(type) {
	case Daily:
		head = "Every day"
	case Weekly:
		names := make([]string, len(f.Weekdays))
		for i, d := range f.Weekdays {
			names[i] = d.String()
		}
		if len(names) == 1 {
			head = "Every " + names[0]
		} else {
			head = "On " + strings.Join(names, " or ")
		}
	case Monthly:
		head = fmt.Sprintf("Day %d of the month", f.Monthday)
	default:
		head = "Never"
	}
	return strings.Join([]string{head, hours, dates}, " ")
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// RecurrenceRule converts r to an RFC 5545 recurrence for calendar export.
// Monthdays past 28 use BYSETPOS=-1 over 28..monthday so short months get
// their last day, matching Expand's clamping.
func RecurrenceRule(r Rule) (*rrule.RRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	opt := rrule.ROption{
		Dtstart:  r.Start.UTC(),
		Until:    timex.AddDays(r.lastDay(), 1).Add(-time.Second),
		Interval: 1,
		Byhour:   []int{r.Time.Hour},
		Byminute: []int{r.Time.Minute},
		Bysecond: []int{0},
	}
	switch f := r.Frequency.(type) {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range f.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		if f.Monthday <= 28 {
			opt.Bymonthday = []int{f.Monthday}
		} else {
			for d := 28; d <= f.Monthday; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return rr, nil
}

// RRule returns the DTSTART and RRULE lines for r.
func RRule(r Rule) (string, error) {
	rr, err := RecurrenceRule(r)
	if err != nil {
		return "", err
	}
	return rr.String(), nil
}
