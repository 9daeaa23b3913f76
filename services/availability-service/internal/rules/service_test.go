package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/outbox"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

type fakeStore struct {
	mu     sync.Mutex
	rules  map[string]model.Rule
	booked map[string]int
	events []outbox.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{rules: map[string]model.Rule{}, booked: map[string]int{}}
}

func (f *fakeStore) WithUserLock(_ context.Context, _ string, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := maps.Clone(f.rules)
	n := len(f.events)
	if err := fn(fakeTx{f}); err != nil {
		f.rules = snapshot
		f.events = f.events[:n]
		return err
	}
	return nil
}

func (f *fakeStore) ListRules(ctx context.Context, userID string) ([]model.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeTx{f}.ListRules(ctx, userID)
}

func (f *fakeStore) GetRule(ctx context.Context, id string) (model.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeTx{f}.GetRule(ctx, id)
}

type fakeTx struct{ f *fakeStore }

func (t fakeTx) ListRules(_ context.Context, userID string) ([]model.Rule, error) {
	var out []model.Rule
	for _, r := range t.f.rules {
		if r.UserID == userID && !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t fakeTx) GetRule(_ context.Context, id string) (model.Rule, error) {
	r, ok := t.f.rules[id]
	if !ok {
		return model.Rule{}, ErrNotFound
	}
	return r, nil
}

func (t fakeTx) InsertRule(_ context.Context, r model.Rule) (model.Rule, error) {
	if _, ok := t.f.rules[r.ID]; ok {
		return model.Rule{}, ErrConflict
	}
	t.f.rules[r.ID] = r
	return r, nil
}

func (t fakeTx) UpdateRule(_ context.Context, r model.Rule) (model.Rule, error) {
	if _, ok := t.f.rules[r.ID]; !ok {
		return model.Rule{}, ErrNotFound
	}
	t.f.rules[r.ID] = r
	return r, nil
}

func (t fakeTx) SoftDeleteRule(_ context.Context, id string) error {
	r := t.f.rules[id]
	r.Deleted, r.Activated = true, false
	t.f.rules[id] = r
	return nil
}

func (t fakeTx) DeleteRule(_ context.Context, id string) error {
	delete(t.f.rules, id)
	return nil
}

func (t fakeTx) CountBookedSlots(_ context.Context, ruleID string) (int, error) {
	return t.f.booked[ruleID], nil
}

func (t fakeTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.f.events = append(t.f.events, evt)
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	bumped map[string]int
}

func (c *fakeCache) Bump(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bumped == nil {
		c.bumped = map[string]int{}
	}
	c.bumped[userID]++
	return nil
}

var tutor = auth.Principal{UserID: "tutor-1", Role: "tutor"}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeCache) {
	t.Helper()
	store := newFakeStore()
	cache := &fakeCache{}
	svc := NewService(store, cache, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{MaxRuleSpan: 731 * 24 * time.Hour})
	n := 0
	svc.newID = func() string {
		n++
		return "rule-" + string(rune('a'+n-1))
	}
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store, cache
}

func daily(at string, minutes int) Input {
	return Input{
		Title:     "mornings",
		Frequency: "daily",
		Start:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Time:      at,
		Duration:  minutes,
		Activated: true,
	}
}

func TestCreate(t *testing.T) {
	svc, store, cache := newTestService(t)

	r, err := svc.Create(context.Background(), tutor, daily("10:00", 60))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID != "rule-a" || r.UserID != "tutor-1" {
		t.Fatalf("unexpected rule %+v", r)
	}
	if len(store.events) != 1 || store.events[0].EventType != outbox.TopicRuleCreated {
		t.Fatalf("expected one created event, got %+v", store.events)
	}
	var payload outbox.RulePayload
	if err := json.Unmarshal(store.events[0].Payload, &payload); err != nil || payload.RuleID != "rule-a" {
		t.Fatalf("unexpected payload %s (%v)", store.events[0].Payload, err)
	}
	if cache.bumped["tutor-1"] != 1 {
		t.Fatalf("expected cache bump, got %v", cache.bumped)
	}
}

func TestCreate_Rejections(t *testing.T) {
	svc, store, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), tutor, daily("10:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	weekly := daily("15:00", 60)
	weekly.Frequency = "weekly"
	long := daily("15:00", 60)
	long.End = long.Start.AddDate(3, 0, 0)

	tests := []struct {
		name string
		who  auth.Principal
		in   Input
		want error
	}{
		{"student cannot own rules", auth.Principal{UserID: "s1", Role: "student"}, daily("15:00", 60), ErrForbidden},
		{"weekly without weekdays", tutor, weekly, schedule.ErrInvalidRule},
		{"zero duration", tutor, daily("15:00", 0), schedule.ErrInvalidRule},
		{"bad time", tutor, daily("3pm", 60), schedule.ErrInvalidRule},
		{"span too long", tutor, long, schedule.ErrInvalidRule},
		{"overlapping hours", tutor, daily("10:30", 60), ErrOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.who, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(store.rules) != 1 || len(store.events) != 1 {
		t.Fatalf("rejected creates must not write: %d rules, %d events", len(store.rules), len(store.events))
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	svc, store, cache := newTestService(t)
	svc.newID = func() string { return "rule-x" }

	if _, err := svc.Create(context.Background(), tutor, daily("10:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Create(context.Background(), tutor, daily("15:00", 60)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(store.events) != 1 || cache.bumped["tutor-1"] != 1 {
		t.Fatalf("conflicting create must not write: %d events, %d bumps", len(store.events), cache.bumped["tutor-1"])
	}
}

func TestCreate_InactiveRuleSkipsOverlapGate(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), tutor, daily("10:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	in := daily("10:30", 60)
	in.Activated = false
	if _, err := svc.Create(context.Background(), tutor, in); err != nil {
		t.Fatalf("inactive rule should be accepted: %v", err)
	}

	// Activating it afterwards must hit the gate.
	on := true
	if _, err := svc.Update(context.Background(), tutor, "rule-b", Patch{Activated: &on}); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap on activation, got %v", err)
	}
}

func TestCreate_ConcurrentOverlappingRequests(t *testing.T) {
	svc, store, _ := newTestService(t)
	var mu sync.Mutex
	id := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		id++
		return fmt.Sprintf("rule-%d", id)
	}

	var wg sync.WaitGroup
	var okCount int
	var okMu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), tutor, daily("10:00", 60)); err == nil {
				okMu.Lock()
				okCount++
				okMu.Unlock()
			}
		}()
	}
	wg.Wait()
	if okCount != 1 || len(store.rules) != 1 {
		t.Fatalf("expected exactly one rule, got %d successes and %d rules", okCount, len(store.rules))
	}
}

func TestUpdate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, tutor, daily("10:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Create(ctx, tutor, daily("14:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Shifting a rule onto itself is fine.
	at := "10:30"
	r, err := svc.Update(ctx, tutor, "rule-a", Patch{Time: &at})
	if err != nil || r.Time != "10:30" {
		t.Fatalf("update: %+v %v", r, err)
	}

	clash := "13:30"
	if _, err := svc.Update(ctx, tutor, "rule-a", Patch{Time: &clash}); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}

	other := auth.Principal{UserID: "tutor-2", Role: "tutor"}
	if _, err := svc.Update(ctx, other, "rule-a", Patch{Time: &at}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, tutor, "missing", Patch{Time: &at}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	weekly := "weekly"
	days := []int{1, 3}
	r, err = svc.Update(ctx, tutor, "rule-a", Patch{Frequency: &weekly, Weekdays: &days})
	if err != nil || r.Frequency != "weekly" {
		t.Fatalf("frequency change: %+v %v", r, err)
	}
	monthly := "monthly"
	if _, err := svc.Update(ctx, tutor, "rule-a", Patch{Frequency: &monthly}); !errors.Is(err, schedule.ErrInvalidRule) {
		t.Fatalf("monthly without monthday should be invalid, got %v", err)
	}

	last := store.events[len(store.events)-1]
	if last.EventType != outbox.TopicRuleUpdated {
		t.Fatalf("expected updated event, got %s", last.EventType)
	}
}

func TestDelete(t *testing.T) {
	svc, store, cache := newTestService(t)
	ctx := context.Background()
	for _, at := range []string{"08:00", "12:00"} {
		if _, err := svc.Create(ctx, tutor, daily(at, 60)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	store.booked["rule-a"] = 2

	soft, err := svc.Delete(ctx, tutor, "rule-a")
	if err != nil || !soft {
		t.Fatalf("expected soft delete, got %v (%v)", soft, err)
	}
	if r := store.rules["rule-a"]; !r.Deleted {
		t.Fatal("rule with bookings must be kept as deleted")
	}
	if _, err := svc.Get(ctx, "rule-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("soft-deleted rule should be hidden, got %v", err)
	}

	soft, err = svc.Delete(ctx, tutor, "rule-b")
	if err != nil || soft {
		t.Fatalf("expected hard delete, got %v (%v)", soft, err)
	}
	if _, ok := store.rules["rule-b"]; ok {
		t.Fatal("rule without bookings must be removed")
	}
	if _, err := svc.Delete(ctx, tutor, "rule-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting twice should be ErrNotFound, got %v", err)
	}

	var payload outbox.RulePayload
	_ = json.Unmarshal(store.events[2].Payload, &payload)
	if store.events[2].EventType != outbox.TopicRuleDeleted || !payload.SoftDeleted {
		t.Fatalf("unexpected delete event %+v", payload)
	}
	if cache.bumped["tutor-1"] != 4 {
		t.Fatalf("expected 4 cache bumps, got %d", cache.bumped["tutor-1"])
	}

	list, _ := svc.List(ctx, "tutor-1")
	if len(list) != 0 {
		t.Fatalf("expected no listed rules, got %d", len(list))
	}
}

func TestCheckOverlap(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, tutor, daily("10:00", 60)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hit, found, err := svc.CheckOverlap(ctx, "tutor-1", daily("10:59", 30))
	if err != nil || !found || hit.ID != "rule-a" {
		t.Fatalf("expected conflict with rule-a, got %+v %v (%v)", hit, found, err)
	}
	// Inactive flag on the input is ignored by the dry run.
	in := daily("11:00", 30)
	in.Activated = false
	if _, found, _ := svc.CheckOverlap(ctx, "tutor-1", in); found {
		t.Fatal("touching rule should not conflict")
	}
	if len(store.rules) != 1 {
		t.Fatal("dry run must not persist")
	}
}
