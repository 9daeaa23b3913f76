package slots

import (
	"context"
	"time"

	"github.com/litespace/availability/libs/db"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/storage"
)

// Source reads what slot queries need from storage.
type Source interface {
	ListRules(ctx context.Context, userID string) ([]model.Rule, error)
	ListBooked(ctx context.Context, userID string, from, to time.Time) ([]model.BookedSlot, error)
	// Notice returns the owner's notice in minutes and false when the user
	// has no profile row.
	Notice(ctx context.Context, userID string) (int, bool, error)
	SetNotice(ctx context.Context, userID string, minutes int) error
}

type PGSource struct {
	pool   *db.Pool
	rules  *storage.RuleRepository
	booked *storage.BookedSlotRepository
	tutors *storage.TutorRepository
}

func NewPGSource(pool *db.Pool, rules *storage.RuleRepository, booked *storage.BookedSlotRepository, tutors *storage.TutorRepository) *PGSource {
	return &PGSource{pool: pool, rules: rules, booked: booked, tutors: tutors}
}

func (s *PGSource) ListRules(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.rules.ListByUser(ctx, s.pool, userID)
}

func (s *PGSource) ListBooked(ctx context.Context, userID string, from, to time.Time) ([]model.BookedSlot, error) {
	return s.booked.ListActive(ctx, s.pool, userID, from, to)
}

func (s *PGSource) Notice(ctx context.Context, userID string) (int, bool, error) {
	t, err := s.tutors.Get(ctx, s.pool, userID)
	if storage.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return t.Notice, true, nil
}

func (s *PGSource) SetNotice(ctx context.Context, userID string, minutes int) error {
	return s.tutors.SetNotice(ctx, s.pool, userID, minutes)
}
