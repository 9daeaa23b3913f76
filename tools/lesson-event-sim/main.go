package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/litespace/availability/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		brokers  = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma separated kafka brokers")
		evtType  = flag.String("type", getenv("LESSON_EVENT_TYPE", "lesson.booked.v1"), "lesson.booked.v1 or lesson.cancelled.v1")
		lessonID = flag.String("lesson-id", getenv("LESSON_ID", ""), "lesson id (generated when empty)")
		tutorID  = flag.String("tutor-id", getenv("TUTOR_ID", ""), "tutor owning the rule")
		ruleID   = flag.String("rule-id", getenv("RULE_ID", ""), "rule the lesson was booked against")
		start    = flag.String("start", getenv("LESSON_START", ""), "lesson start, RFC 3339")
		duration = flag.Int("duration", 30, "lesson length in minutes")
	)
	flag.Parse()

	if strings.TrimSpace(*lessonID) == "" {
		if *evtType == "lesson.cancelled.v1" {
			fatal("LESSON_ID is required to cancel")
		}
		*lessonID = uuid.NewString()
	}

	payload, err := buildEventJSON(*evtType, *lessonID, *tutorID, *ruleID, *start, *duration)
	if err != nil {
		fatal(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	writer := kafkax.NewWriter(kafkax.SplitBrokers(*brokers))
	defer writer.Close()

	eventID := uuid.NewString()
	err = writer.WriteMessages(ctx, kafka.Message{
		Topic:   *evtType,
		Key:     []byte(*lessonID),
		Value:   payload,
		Headers: kafkax.EventHeaders(eventID, *evtType),
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("published event_id=%s lesson_id=%s\n", eventID, *lessonID)
}

func buildEventJSON(eventType, lessonID, tutorID, ruleID, start string, duration int) ([]byte, error) {
	switch eventType {
	case "lesson.booked.v1":
		if tutorID == "" || ruleID == "" {
			return nil, fmt.Errorf("TUTOR_ID and RULE_ID are required to book")
		}
		at, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("invalid start: %w", err)
		}
		return json.Marshal(map[string]any{
			"lesson_id": lessonID,
			"tutor_id":  tutorID,
			"rule_id":   ruleID,
			"start":     at.UTC(),
			"duration":  duration,
		})
	case "lesson.cancelled.v1":
		return json.Marshal(map[string]any{
			"lesson_id":    lessonID,
			"cancelled_at": time.Now().UTC(),
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
