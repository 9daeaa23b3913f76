package schedule

import (
	"fmt"
	"time"
)

// Unpack expands every live rule over [from, to), removes the rule's own
// booked intervals and returns the remaining events ascending by start.
// booked entries are matched to rules by RuleID.
func Unpack(rules []Rule, booked []Event, from, to time.Time) ([]Event, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}

	byRule := map[string][]Event{}
	for _, b := range booked {
		byRule[b.RuleID] = append(byRule[b.RuleID], b)
	}

	var out []Event
	for _, r := range rules {
		if !r.Live() {
			continue
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		out = append(out, Mask(expand(r, from.UTC(), to.UTC()), byRule[r.ID])...)
	}
	sortEvents(out)
	return out, nil
}
