package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/litespace/availability/libs/db"
	"github.com/litespace/availability/services/availability-service/internal/inbox"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/storage"
)

type PGStore struct {
	pool   *db.Pool
	inbox  *inbox.Repository
	booked *storage.BookedSlotRepository
}

func NewPGStore(pool *db.Pool, inboxRepo *inbox.Repository, booked *storage.BookedSlotRepository) *PGStore {
	return &PGStore{pool: pool, inbox: inboxRepo, booked: booked}
}

func (s *PGStore) WithEvent(ctx context.Context, eventID, eventType string, fn func(Tx) error) (bool, error) {
	var applied bool
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.inbox.Record(ctx, tx, eventID, eventType)
		if err != nil || !ok {
			return err
		}
		applied = true
		return fn(&pgTx{booked: s.booked, tx: tx})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

type pgTx struct {
	booked *storage.BookedSlotRepository
	tx     pgx.Tx
}

func (t *pgTx) UpsertSlot(ctx context.Context, s model.BookedSlot) error {
	return t.booked.Upsert(ctx, t.tx, s)
}

func (t *pgTx) PendingCancellation(ctx context.Context, lessonID string) (*time.Time, error) {
	return t.booked.PendingCancellation(ctx, t.tx, lessonID)
}

func (t *pgTx) RememberCancellation(ctx context.Context, lessonID string, at time.Time) error {
	return t.booked.RememberCancellation(ctx, t.tx, lessonID, at)
}

func (t *pgTx) CancelSlot(ctx context.Context, lessonID string, at time.Time) (string, error) {
	userID, err := t.booked.Cancel(ctx, t.tx, lessonID, at)
	if storage.IsNotFound(err) {
		return "", nil
	}
	return userID, err
}
