package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/litespace/availability/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     MessageReader
	logger     *slog.Logger
	handler    Handler
	backoff    time.Duration
	maxBackoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

func New(logger *slog.Logger, cfg Config, handler Handler) *Consumer {
	reader := kafkax.NewGroupReader(kafkax.SplitBrokers(cfg.Brokers), cfg.GroupID, cfg.Topics)
	return NewWithReader(logger, reader, handler)
}

func NewWithReader(logger *slog.Logger, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		handler:    handler,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run reads until ctx is cancelled. An offset is committed only once its
// message is handled or rejected as malformed; other handler failures are
// retried with backoff so no lesson event is dropped.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !c.sleep(ctx, c.backoff) {
				return
			}
			continue
		}
		if !c.process(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka commit error", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// process handles msg until it succeeds or is malformed. It returns false
// when ctx ends first, leaving the message uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.consume(ctx, msg)
		if err == nil {
			return true
		}
		meta := kafkax.ExtractEventMeta(msg)
		if errors.Is(err, ErrMalformed) {
			c.logger.Error("dropping malformed event", "err", err, "event_id", meta.EventID, "topic", msg.Topic)
			return true
		}
		c.logger.Error("handler error, retrying", "err", err, "event_id", meta.EventID, "topic", msg.Topic, "attempt", attempt)
		if !c.sleep(ctx, wait) {
			return false
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	err := c.handler(ctxSpan, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
