package schedule

import (
	"slices"
	"time"
)

// Mask removes the booked intervals from every event, splitting an event
// around each booked interval. Empty remainders are dropped. Booked intervals
// may overlap each other and need not be sorted.
func Mask(events, booked []Event) []Event {
	if len(booked) == 0 {
		return slices.Clone(events)
	}
	var out []Event
	for _, e := range events {
		out = append(out, subtract(e, booked)...)
	}
	return out
}

func subtract(base Event, blocks []Event) []Event {
	if !base.End.After(base.Start) {
		return nil
	}

	var clipped []Event
	for _, b := range blocks {
		s, e := b.Start.UTC(), b.End.UTC()
		if !e.After(base.Start) || !s.Before(base.End) {
			continue
		}
		if s.Before(base.Start) {
			s = base.Start
		}
		if e.After(base.End) {
			e = base.End
		}
		if e.After(s) {
			clipped = append(clipped, Event{Start: s, End: e})
		}
	}
	if len(clipped) == 0 {
		return []Event{base}
	}

	sortEvents(clipped)
	merged := make([]Event, 0, len(clipped))
	for _, cur := range clipped {
		if len(merged) == 0 {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.Start.After(last.End) {
			merged = append(merged, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}

	var out []Event
	cursor := base.Start
	for _, m := range merged {
		if m.Start.After(cursor) {
			out = append(out, piece(base, cursor, m.Start))
		}
		cursor = m.End
	}
	if base.End.After(cursor) {
		out = append(out, piece(base, cursor, base.End))
	}
	return out
}

func piece(base Event, start, end time.Time) Event {
	return Event{RuleID: base.RuleID, Start: start, End: end}
}

func sortEvents(in []Event) {
	slices.SortStableFunc(in, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
}
