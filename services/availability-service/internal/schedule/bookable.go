package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/litespace/availability/libs/timex"
)

// ShortLessonDuration is the shortest lesson a student can book.
const ShortLessonDuration = 15 * time.Minute

// BookableEvent is an event a student may still reserve.
type BookableEvent struct {
	Event
	UserID string
	Notice int // minutes
}

// BookingPolicy describes who owns the events and when the booking happens.
type BookingPolicy struct {
	UserID string
	Notice int // minutes of lead time the owner requires
	Now    time.Time
	// ShortLesson is the time that must remain for a late join. Zero means
	// ShortLessonDuration.
	ShortLesson time.Duration
}

// SelectBookable keeps the events that start at or after Now+Notice, plus
// running events that can still fit a short lesson after Now+Notice. The
// result is ascending by start; ties keep their input order.
func SelectBookable(events []Event, p BookingPolicy) ([]BookableEvent, error) {
	if p.Notice < 0 {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidNotice, p.Notice)
	}
	short := p.ShortLesson
	if short <= 0 {
		short = ShortLessonDuration
	}
	adjusted := timex.AddMinutes(p.Now.UTC(), p.Notice)

	out := make([]BookableEvent, 0, len(events))
	for _, e := range events {
		upcoming := !e.Start.Before(adjusted)
		lateJoin := timex.IsBetween(adjusted, e.Start, e.End.Add(-short), timex.Inclusive)
		if upcoming || lateJoin {
			out = append(out, BookableEvent{Event: e, UserID: p.UserID, Notice: p.Notice})
		}
	}
	slices.SortStableFunc(out, func(a, b BookableEvent) int {
		return a.Start.Compare(b.Start)
	})
	return out, nil
}
