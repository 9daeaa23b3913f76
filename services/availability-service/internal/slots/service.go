package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

const (
	DefaultLesson = 15 * time.Minute
	MinLesson     = 15 * time.Minute
	MaxLesson     = 240 * time.Minute
)

var ErrInvalidLesson = errors.New("invalid lesson duration")

// Cache stores split availability per user version. *cache.Cache satisfies it.
type Cache interface {
	Version(ctx context.Context, userID string) (int64, error)
	Key(userID string, version int64, from, to time.Time, lesson time.Duration) string
	Get(ctx context.Context, key string) ([]schedule.Event, bool, error)
	Set(ctx context.Context, key string, events []schedule.Event) error
}

type Config struct {
	MaxWindow     time.Duration
	ShortLesson   time.Duration
	DefaultNotice int
}

type Service struct {
	source Source
	cache  Cache
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

// NewService builds the slot query service. cache may be nil.
func NewService(source Source, cache Cache, logger *slog.Logger, cfg Config) *Service {
	return &Service{source: source, cache: cache, logger: logger, cfg: cfg, now: time.Now}
}

// Unpacked is a user's rules with their events left after booked lessons.
type Unpacked struct {
	Rules  []model.Rule
	Events []schedule.Event
}

func (s *Service) Unpacked(ctx context.Context, userID string, from, to time.Time) (Unpacked, error) {
	if err := schedule.ValidateWindow(from, to, s.cfg.MaxWindow); err != nil {
		return Unpacked{}, err
	}
	rows, err := s.source.ListRules(ctx, userID)
	if err != nil {
		return Unpacked{}, err
	}
	events, err := s.unpack(ctx, userID, rows, from.UTC(), to.UTC())
	if err != nil {
		return Unpacked{}, err
	}
	return Unpacked{Rules: rows, Events: events}, nil
}

type Query struct {
	UserID string
	From   time.Time
	To     time.Time
	Lesson time.Duration
}

type Result struct {
	Slots  []schedule.BookableEvent
	Notice int
	Lesson time.Duration
	Cached bool
}

// Bookable answers which lesson slots of a user can be booked right now.
func (s *Service) Bookable(ctx context.Context, q Query) (Result, error) {
	lesson := q.Lesson
	if lesson == 0 {
		lesson = DefaultLesson
	}
	if lesson < MinLesson || lesson > MaxLesson || lesson%time.Minute != 0 {
		return Result{}, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidLesson, lesson, MinLesson, MaxLesson)
	}
	if err := schedule.ValidateWindow(q.From, q.To, s.cfg.MaxWindow); err != nil {
		return Result{}, err
	}
	from, to := q.From.UTC(), q.To.UTC()

	notice, found, err := s.source.Notice(ctx, q.UserID)
	if err != nil {
		return Result{}, err
	}
	if !found {
		notice = s.cfg.DefaultNotice
	}

	events, cached, err := s.split(ctx, q.UserID, from, to, lesson)
	if err != nil {
		return Result{}, err
	}
	// Each slot is exactly one lesson long, so a slot already running at
	// now+notice can never hold the whole lesson.
	bookable, err := schedule.SelectBookable(events, schedule.BookingPolicy{
		UserID:      q.UserID,
		Notice:      notice,
		Now:         s.now(),
		ShortLesson: max(lesson, s.cfg.ShortLesson),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Slots: bookable, Notice: notice, Lesson: lesson, Cached: cached}, nil
}

// SetNotice stores the lead time a user requires before a lesson. Cached
// entries stay valid because bookability is evaluated per request.
func (s *Service) SetNotice(ctx context.Context, userID string, minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: %d minutes", schedule.ErrInvalidNotice, minutes)
	}
	return s.source.SetNotice(ctx, userID, minutes)
}

// split returns the unpacked events cut into lessons, served from the cache
// when possible. Cache failures only cost a recomputation.
func (s *Service) split(ctx context.Context, userID string, from, to time.Time, lesson time.Duration) ([]schedule.Event, bool, error) {
	key := ""
	if s.cache != nil {
		version, err := s.cache.Version(ctx, userID)
		if err != nil {
			s.logger.Warn("slot cache version failed", "user_id", userID, "err", err)
		} else {
			key = s.cache.Key(userID, version, from, to, lesson)
			events, ok, err := s.cache.Get(ctx, key)
			if err != nil {
				s.logger.Warn("slot cache read failed", "user_id", userID, "err", err)
			} else if ok {
				return events, true, nil
			}
		}
	}

	rows, err := s.source.ListRules(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	unpacked, err := s.unpack(ctx, userID, rows, from, to)
	if err != nil {
		return nil, false, err
	}
	events := schedule.Split(unpacked, lesson)

	if key != "" {
		if err := s.cache.Set(ctx, key, events); err != nil {
			s.logger.Warn("slot cache write failed", "user_id", userID, "err", err)
		}
	}
	return events, false, nil
}

func (s *Service) unpack(ctx context.Context, userID string, rows []model.Rule, from, to time.Time) ([]schedule.Event, error) {
	rules := make([]schedule.Rule, 0, len(rows))
	for _, row := range rows {
		r, err := row.Schedule()
		if err != nil {
			s.logger.Warn("skipping invalid stored rule", "rule_id", row.ID, "err", err)
			continue
		}
		rules = append(rules, r)
	}

	// Events starting before to may run up to a day past it.
	booked, err := s.source.ListBooked(ctx, userID, from, to.Add(schedule.MaxDuration*time.Minute))
	if err != nil {
		return nil, err
	}
	return schedule.Unpack(rules, model.Events(booked), from, to)
}
