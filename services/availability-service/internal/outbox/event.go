package outbox

import (
	"encoding/json"
	"time"
)

const (
	AggregateRule = "rule"

	TopicRuleCreated = "availability.rule.created.v1"
	TopicRuleUpdated = "availability.rule.updated.v1"
	TopicRuleDeleted = "availability.rule.deleted.v1"
)

// Event is the envelope written to the outbox table. The Kafka topic equals
// EventType and the message key is AggregateID.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// RulePayload is the body of every availability.rule.* event.
type RulePayload struct {
	RuleID      string    `json:"rule_id"`
	UserID      string    `json:"user_id"`
	Frequency   string    `json:"frequency,omitempty"`
	Start       time.Time `json:"start,omitzero"`
	End         time.Time `json:"end,omitzero"`
	Time        string    `json:"time,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	Weekdays    []int     `json:"weekdays,omitempty"`
	Monthday    *int      `json:"monthday,omitempty"`
	Activated   bool      `json:"activated"`
	SoftDeleted bool      `json:"soft_deleted,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewRuleEvent(eventType string, p RulePayload) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateRule,
		AggregateID:   p.RuleID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
