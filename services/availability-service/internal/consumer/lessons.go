package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/litespace/availability/libs/kafkax"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	TopicLessonBooked    = "lesson.booked.v1"
	TopicLessonCancelled = "lesson.cancelled.v1"
)

var ErrMalformed = errors.New("malformed lesson event")

// LessonPayload is the body of lesson.booked.v1 and lesson.cancelled.v1.
type LessonPayload struct {
	LessonID    string     `json:"lesson_id" validate:"required"`
	TutorID     string     `json:"tutor_id" validate:"required"`
	RuleID      string     `json:"rule_id" validate:"required"`
	Start       time.Time  `json:"start" validate:"required"`
	Duration    int        `json:"duration" validate:"gt=0,lte=1440"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Store applies lesson events exactly once.
type Store interface {
	// WithEvent records the event in the inbox and runs fn in the same
	// transaction. It returns false without calling fn for a replayed event.
	WithEvent(ctx context.Context, eventID, eventType string, fn func(Tx) error) (bool, error)
}

// Tx is the set of writes available inside WithEvent. The booked and
// cancelled topics are not ordered relative to each other, so a
// cancellation may be consumed before its booking.
type Tx interface {
	// UpsertSlot stores a booking. An existing cancellation is kept.
	UpsertSlot(ctx context.Context, s model.BookedSlot) error
	// CancelSlot returns the owner of the cancelled lesson, or "" when the
	// lesson is unknown.
	CancelSlot(ctx context.Context, lessonID string, at time.Time) (string, error)
	RememberCancellation(ctx context.Context, lessonID string, at time.Time) error
	PendingCancellation(ctx context.Context, lessonID string) (*time.Time, error)
}

type Invalidator interface {
	Bump(ctx context.Context, userID string) error
}

// LessonHandler mirrors booked lessons into booked_slots.
type LessonHandler struct {
	store    Store
	cache    Invalidator
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewLessonHandler builds the handler. cache may be nil.
func NewLessonHandler(store Store, cache Invalidator, logger *slog.Logger) *LessonHandler {
	return &LessonHandler{
		store:    store,
		cache:    cache,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (h *LessonHandler) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.Topic != TopicLessonBooked && msg.Topic != TopicLessonCancelled {
		h.logger.Debug("ignoring message", "topic", msg.Topic)
		return nil
	}

	var p LessonPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := h.check(msg.Topic, p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		return fmt.Errorf("%w: missing event id", ErrMalformed)
	}

	var userID string
	applied, err := h.store.WithEvent(ctx, meta.EventID, meta.EventType, func(tx Tx) error {
		switch msg.Topic {
		case TopicLessonBooked:
			userID = p.TutorID
			cancelled, err := tx.PendingCancellation(ctx, p.LessonID)
			if err != nil {
				return err
			}
			start := p.Start.UTC()
			return tx.UpsertSlot(ctx, model.BookedSlot{
				LessonID:    p.LessonID,
				RuleID:      p.RuleID,
				UserID:      p.TutorID,
				Start:       start,
				End:         start.Add(time.Duration(p.Duration) * time.Minute),
				CancelledAt: cancelled,
			})
		default:
			at := h.now().UTC()
			if p.CancelledAt != nil {
				at = p.CancelledAt.UTC()
			}
			var err error
			userID, err = tx.CancelSlot(ctx, p.LessonID, at)
			if err != nil || userID != "" {
				return err
			}
			return tx.RememberCancellation(ctx, p.LessonID, at)
		}
	})
	if err != nil {
		return err
	}
	if !applied {
		h.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	if userID == "" {
		h.logger.Info("cancellation kept until booking arrives", "lesson_id", p.LessonID)
		return nil
	}

	if h.cache != nil {
		if err := h.cache.Bump(ctx, userID); err != nil {
			h.logger.Warn("cache invalidation failed", "user_id", userID, "err", err)
		}
	}
	h.logger.Info("lesson mirrored", "topic", msg.Topic, "lesson_id", p.LessonID, "user_id", userID)
	return nil
}

// check validates the whole payload of a booking; a cancellation only needs
// the lesson id.
func (h *LessonHandler) check(topic string, p LessonPayload) error {
	if topic == TopicLessonCancelled {
		return h.validate.StructPartial(p, "LessonID")
	}
	return h.validate.Struct(p)
}
