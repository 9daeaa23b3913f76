package model

import (
	"fmt"
	"time"

	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

// Rule is a row of the rules table.
type Rule struct {
	ID        string
	UserID    string
	Title     string
	Frequency string
	Start     time.Time
	End       time.Time
	Time      string // HH:MM, UTC
	Duration  int    // minutes
	Weekdays  []int
	Monthday  *int
	Activated bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule converts the row into an engine rule, validating every column.
func (r Rule) Schedule() (schedule.Rule, error) {
	freq, err := schedule.NewFrequency(r.Frequency, r.Weekdays, r.Monthday)
	if err != nil {
		return schedule.Rule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	at, err := timex.ParseTimeOfDay(r.Time)
	if err != nil {
		return schedule.Rule{}, fmt.Errorf("rule %s: %w: %v", r.ID, schedule.ErrInvalidRule, err)
	}
	out := schedule.Rule{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Frequency: freq,
		Start:     r.Start.UTC(),
		End:       r.End.UTC(),
		Time:      at,
		Duration:  r.Duration,
		Activated: r.Activated,
		Deleted:   r.Deleted,
	}
	if err := out.Validate(); err != nil {
		return schedule.Rule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return out, nil
}

// BookedSlot mirrors a lesson booked against one of a tutor's rules.
type BookedSlot struct {
	LessonID    string
	RuleID      string
	UserID      string
	Start       time.Time
	End         time.Time
	CancelledAt *time.Time
}

func (b BookedSlot) Event() schedule.Event {
	return schedule.Event{RuleID: b.RuleID, Start: b.Start.UTC(), End: b.End.UTC()}
}

func Events(slots []BookedSlot) []schedule.Event {
	out := make([]schedule.Event, len(slots))
	for i, s := range slots {
		out[i] = s.Event()
	}
	return out
}

// Tutor holds the booking preferences of a rule owner.
type Tutor struct {
	UserID string
	Notice int // minutes
}
