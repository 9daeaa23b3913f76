package model

import (
	"errors"
	"testing"
	"time"

	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

func TestRuleSchedule(t *testing.T) {
	row := Rule{
		ID:        "r1",
		UserID:    "tutor-1",
		Frequency: "weekly",
		Start:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC),
		Time:      "09:00",
		Duration:  30,
		Weekdays:  []int{1, 3},
		Activated: true,
	}
	r, err := row.Schedule()
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if r.Frequency.Kind() != schedule.KindWeekly || r.Time.Hour != 9 || !r.Live() {
		t.Fatalf("unexpected rule %+v", r)
	}

	bad := row
	bad.Time = "9am"
	if _, err := bad.Schedule(); !errors.Is(err, schedule.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for bad time, got %v", err)
	}
	bad = row
	bad.Weekdays = nil
	if _, err := bad.Schedule(); !errors.Is(err, schedule.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for weekly without weekdays, got %v", err)
	}
}
