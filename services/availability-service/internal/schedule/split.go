package schedule

import "time"

// Split cuts every event into consecutive slots of length lesson starting at
// the event start. A trailing remainder shorter than lesson is dropped.
func Split(events []Event, lesson time.Duration) []Event {
	if lesson <= 0 {
		return nil
	}
	var out []Event
	for _, e := range events {
		for t := e.Start; !t.Add(lesson).After(e.End); t = t.Add(lesson) {
			out = append(out, Event{RuleID: e.RuleID, Start: t, End: t.Add(lesson)})
		}
	}
	return out
}
