package rules

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/litespace/availability/libs/db"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/outbox"
	"github.com/litespace/availability/services/availability-service/internal/storage"
)

// Store is the persistence the service needs.
type Store interface {
	// WithUserLock runs fn in one transaction holding userID's write lock.
	WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error
	ListRules(ctx context.Context, userID string) ([]model.Rule, error)
	GetRule(ctx context.Context, id string) (model.Rule, error)
}

// Tx is the set of writes available inside WithUserLock.
type Tx interface {
	ListRules(ctx context.Context, userID string) ([]model.Rule, error)
	GetRule(ctx context.Context, id string) (model.Rule, error)
	InsertRule(ctx context.Context, r model.Rule) (model.Rule, error)
	UpdateRule(ctx context.Context, r model.Rule) (model.Rule, error)
	SoftDeleteRule(ctx context.Context, id string) error
	DeleteRule(ctx context.Context, id string) error
	CountBookedSlots(ctx context.Context, ruleID string) (int, error)
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// PGStore implements Store on Postgres.
type PGStore struct {
	pool   *db.Pool
	rules  *storage.RuleRepository
	booked *storage.BookedSlotRepository
	outbox *outbox.Repository
}

func NewPGStore(pool *db.Pool, rules *storage.RuleRepository, booked *storage.BookedSlotRepository, outboxRepo *outbox.Repository) *PGStore {
	return &PGStore{pool: pool, rules: rules, booked: booked, outbox: outboxRepo}
}

func (s *PGStore) WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := storage.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		return fn(&pgTx{store: s, tx: tx})
	})
}

func (s *PGStore) ListRules(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.rules.ListByUser(ctx, s.pool, userID)
}

func (s *PGStore) GetRule(ctx context.Context, id string) (model.Rule, error) {
	r, err := s.rules.Get(ctx, s.pool, id)
	return r, notFound(err)
}

type pgTx struct {
	store *PGStore
	tx    pgx.Tx
}

func (t *pgTx) ListRules(ctx context.Context, userID string) ([]model.Rule, error) {
	return t.store.rules.ListByUser(ctx, t.tx, userID)
}

func (t *pgTx) GetRule(ctx context.Context, id string) (model.Rule, error) {
	r, err := t.store.rules.Get(ctx, t.tx, id)
	return r, notFound(err)
}

func (t *pgTx) InsertRule(ctx context.Context, r model.Rule) (model.Rule, error) {
	out, err := t.store.rules.Create(ctx, t.tx, r)
	return out, conflict(err)
}

func (t *pgTx) UpdateRule(ctx context.Context, r model.Rule) (model.Rule, error) {
	out, err := t.store.rules.Update(ctx, t.tx, r)
	return out, notFound(err)
}

func (t *pgTx) SoftDeleteRule(ctx context.Context, id string) error {
	return notFound(t.store.rules.SoftDelete(ctx, t.tx, id))
}

func (t *pgTx) DeleteRule(ctx context.Context, id string) error {
	return notFound(t.store.rules.Delete(ctx, t.tx, id))
}

func (t *pgTx) CountBookedSlots(ctx context.Context, ruleID string) (int, error) {
	return t.store.booked.CountActiveByRule(ctx, t.tx, ruleID)
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.store.outbox.Insert(ctx, t.tx, evt)
}

func conflict(err error) error {
	if storage.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func notFound(err error) error {
	if storage.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
