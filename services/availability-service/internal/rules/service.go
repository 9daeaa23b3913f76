package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/outbox"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

var (
	ErrNotFound  = errors.New("rule not found")
	ErrForbidden = errors.New("forbidden")
	ErrOverlap   = errors.New("rule overlaps an existing rule")
	ErrConflict  = errors.New("rule already exists")
)

// RuleOwnerRoles may own availability rules.
var RuleOwnerRoles = []string{"tutor", "interviewer"}

// Invalidator drops cached availability of a user.
type Invalidator interface {
	Bump(ctx context.Context, userID string) error
}

type Config struct {
	// MaxRuleSpan caps End-Start of a rule. Zero disables the cap.
	MaxRuleSpan time.Duration
}

type Service struct {
	store  Store
	cache  Invalidator
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
	newID  func() string
}

// NewService wires the rule lifecycle. cache may be nil.
func NewService(store Store, cache Invalidator, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Input is a complete rule definition supplied by its owner.
type Input struct {
	Title     string
	Frequency string
	Start     time.Time
	End       time.Time
	Time      string
	Duration  int
	Weekdays  []int
	Monthday  *int
	Activated bool
}

// Patch changes selected fields of a rule. Changing Frequency resets
// Weekdays and Monthday to the values given in the patch.
type Patch struct {
	Title     *string
	Frequency *string
	Start     *time.Time
	End       *time.Time
	Time      *string
	Duration  *int
	Weekdays  *[]int
	Monthday  *int
	Activated *bool
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (model.Rule, error) {
	if !slices.Contains(RuleOwnerRoles, p.Role) {
		return model.Rule{}, fmt.Errorf("%w: role %q cannot own rules", ErrForbidden, p.Role)
	}
	row := model.Rule{
		ID:        s.newID(),
		UserID:    p.UserID,
		Title:     strings.TrimSpace(in.Title),
		Frequency: in.Frequency,
		Start:     in.Start.UTC(),
		End:       in.End.UTC(),
		Time:      in.Time,
		Duration:  in.Duration,
		Weekdays:  in.Weekdays,
		Monthday:  in.Monthday,
		Activated: in.Activated,
	}
	candidate, err := s.validate(row)
	if err != nil {
		return model.Rule{}, err
	}

	var created model.Rule
	err = s.store.WithUserLock(ctx, p.UserID, func(tx Tx) error {
		if err := s.checkOverlap(ctx, tx, candidate); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertRule(ctx, row)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, outbox.TopicRuleCreated, created, false)
	})
	if err != nil {
		return model.Rule{}, err
	}

	s.invalidate(ctx, p.UserID)
	s.logger.Info("rule created", "rule_id", created.ID, "user_id", created.UserID, "frequency", created.Frequency)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id string, patch Patch) (model.Rule, error) {
	var updated model.Rule
	err := s.store.WithUserLock(ctx, p.UserID, func(tx Tx) error {
		cur, err := s.owned(ctx, tx, p, id)
		if err != nil {
			return err
		}
		row := patch.apply(cur)
		candidate, err := s.validate(row)
		if err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, tx, candidate); err != nil {
			return err
		}
		updated, err = tx.UpdateRule(ctx, row)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, outbox.TopicRuleUpdated, updated, false)
	})
	if err != nil {
		return model.Rule{}, err
	}

	s.invalidate(ctx, p.UserID)
	s.logger.Info("rule updated", "rule_id", id, "user_id", p.UserID)
	return updated, nil
}

// Delete soft-deletes a rule that still has booked lessons and removes it
// otherwise. It reports whether the delete was soft.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) (bool, error) {
	var soft bool
	err := s.store.WithUserLock(ctx, p.UserID, func(tx Tx) error {
		cur, err := s.owned(ctx, tx, p, id)
		if err != nil {
			return err
		}
		booked, err := tx.CountBookedSlots(ctx, id)
		if err != nil {
			return err
		}
		soft = booked > 0
		if soft {
			err = tx.SoftDeleteRule(ctx, id)
		} else {
			err = tx.DeleteRule(ctx, id)
		}
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, outbox.TopicRuleDeleted, cur, soft)
	})
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, p.UserID)
	s.logger.Info("rule deleted", "rule_id", id, "user_id", p.UserID, "soft", soft)
	return soft, nil
}

// List returns the user's non-deleted rules.
func (s *Service) List(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.store.ListRules(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id string) (model.Rule, error) {
	r, err := s.store.GetRule(ctx, id)
	if err != nil {
		return model.Rule{}, err
	}
	if r.Deleted {
		return model.Rule{}, ErrNotFound
	}
	return r, nil
}

// CheckOverlap is a dry run of the create-time overlap gate: it treats in as
// an activated rule of userID and returns the first conflicting rule.
func (s *Service) CheckOverlap(ctx context.Context, userID string, in Input) (model.Rule, bool, error) {
	row := model.Rule{
		UserID:    userID,
		Frequency: in.Frequency,
		Start:     in.Start.UTC(),
		End:       in.End.UTC(),
		Time:      in.Time,
		Duration:  in.Duration,
		Weekdays:  in.Weekdays,
		Monthday:  in.Monthday,
		Activated: true,
	}
	candidate, err := s.validate(row)
	if err != nil {
		return model.Rule{}, false, err
	}
	rows, err := s.store.ListRules(ctx, userID)
	if err != nil {
		return model.Rule{}, false, err
	}
	hit, found, err := schedule.FindOverlap(candidate, s.liveRules(rows))
	if err != nil || !found {
		return model.Rule{}, false, err
	}
	for _, r := range rows {
		if r.ID == hit.ID {
			return r, true, nil
		}
	}
	return model.Rule{}, false, nil
}

func (s *Service) validate(row model.Rule) (schedule.Rule, error) {
	r, err := row.Schedule()
	if err != nil {
		return schedule.Rule{}, err
	}
	if s.cfg.MaxRuleSpan > 0 && r.End.Sub(r.Start) > s.cfg.MaxRuleSpan {
		return schedule.Rule{}, fmt.Errorf("%w: rule spans more than %d days", schedule.ErrInvalidRule, int(s.cfg.MaxRuleSpan.Hours()/24))
	}
	return r, nil
}

func (s *Service) owned(ctx context.Context, tx Tx, p auth.Principal, id string) (model.Rule, error) {
	cur, err := tx.GetRule(ctx, id)
	if err != nil {
		return model.Rule{}, err
	}
	if cur.Deleted {
		return model.Rule{}, ErrNotFound
	}
	if cur.UserID != p.UserID {
		return model.Rule{}, ErrForbidden
	}
	return cur, nil
}

func (s *Service) checkOverlap(ctx context.Context, tx Tx, candidate schedule.Rule) error {
	rows, err := tx.ListRules(ctx, candidate.UserID)
	if err != nil {
		return err
	}
	hit, found, err := schedule.FindOverlap(candidate, s.liveRules(rows))
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: conflicts with rule %s", ErrOverlap, hit.ID)
	}
	return nil
}

// liveRules converts stored rows, skipping rows that no longer validate so a
// single corrupt row cannot block a user's writes.
func (s *Service) liveRules(rows []model.Rule) []schedule.Rule {
	out := make([]schedule.Rule, 0, len(rows))
	for _, row := range rows {
		r, err := row.Schedule()
		if err != nil {
			s.logger.Warn("skipping invalid stored rule", "rule_id", row.ID, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Service) appendEvent(ctx context.Context, tx Tx, topic string, r model.Rule, soft bool) error {
	evt, err := outbox.NewRuleEvent(topic, outbox.RulePayload{
		RuleID:      r.ID,
		UserID:      r.UserID,
		Frequency:   r.Frequency,
		Start:       r.Start,
		End:         r.End,
		Time:        r.Time,
		Duration:    r.Duration,
		Weekdays:    r.Weekdays,
		Monthday:    r.Monthday,
		Activated:   r.Activated && !soft,
		SoftDeleted: soft,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, evt)
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		s.logger.Warn("cache invalidation failed", "user_id", userID, "err", err)
	}
}

func (p Patch) apply(r model.Rule) model.Rule {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Frequency != nil && *p.Frequency != r.Frequency {
		r.Frequency = *p.Frequency
		r.Weekdays, r.Monthday = nil, nil
	}
	if p.Weekdays != nil {
		r.Weekdays = *p.Weekdays
	}
	if p.Monthday != nil {
		r.Monthday = p.Monthday
	}
	if p.Start != nil {
		r.Start = p.Start.UTC()
	}
	if p.End != nil {
		r.End = p.End.UTC()
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.Activated != nil {
		r.Activated = *p.Activated
	}
	return r
}
