package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{Topic: "lesson.booked.v1", Key: []byte("k1"), Headers: EventHeaders("e1", "lesson.booked.v1")}
	if got := ExtractEventMeta(msg); got.EventID != "e1" || got.EventType != "lesson.booked.v1" {
		t.Fatalf("unexpected meta: %+v", got)
	}

	bare := kafka.Message{Topic: "lesson.cancelled.v1", Key: []byte("k2")}
	if got := ExtractEventMeta(bare); got.EventID != "k2" || got.EventType != "lesson.cancelled.v1" {
		t.Fatalf("expected fallbacks, got %+v", got)
	}
}

func TestEventHeaders_GeneratesID(t *testing.T) {
	h := EventHeaders("", "availability.rule.created.v1")
	if HeaderValue(h, HeaderEventID) == "" {
		t.Fatal("expected generated event id")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka2:9092 ")
	if len(got) != 2 || got[0] != "kafka:9092" || got[1] != "kafka2:9092" {
		t.Fatalf("unexpected brokers: %#v", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := propagation.MapCarrier{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), parent)

	headers := InjectTraceHeaders(ctx, EventHeaders("e1", "t"))
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if got.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id %s", got.TraceID())
	}
}
