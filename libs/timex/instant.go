// Package timex holds the UTC calendar arithmetic used by the scheduling
// engine. Every function is pure and works on UTC instants; callers normalize
// at the boundary with ParseInstant.
package timex

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidInstant = errors.New("invalid instant")

// ParseInstant accepts RFC 3339 timestamps (with or without fractional
// seconds) and bare dates, returning the instant in UTC.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidInstant)
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, raw)
}

// FormatInstant renders t in UTC with millisecond precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// TimeOfDay is a wall-clock time in UTC with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (seconds must be zero).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Second() != 0 {
			break
		}
		return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
	}
	return TimeOfDay{}, fmt.Errorf("%w: time of day %q", ErrInvalidInstant, raw)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// On returns the instant at t on the UTC calendar day of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	return StartOfDay(day).Add(time.Duration(t.Minutes()) * time.Minute)
}
