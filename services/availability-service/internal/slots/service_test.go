package slots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
)

type fakeSource struct {
	rules  []model.Rule
	booked []model.BookedSlot
	notice map[string]int
	reads  int
}

func (f *fakeSource) ListRules(_ context.Context, userID string) ([]model.Rule, error) {
	f.reads++
	var out []model.Rule
	for _, r := range f.rules {
		if r.UserID == userID && !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) ListBooked(_ context.Context, userID string, from, to time.Time) ([]model.BookedSlot, error) {
	var out []model.BookedSlot
	for _, b := range f.booked {
		if b.UserID == userID && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSource) Notice(_ context.Context, userID string) (int, bool, error) {
	n, ok := f.notice[userID]
	return n, ok, nil
}

func (f *fakeSource) SetNotice(_ context.Context, userID string, minutes int) error {
	if f.notice == nil {
		f.notice = map[string]int{}
	}
	f.notice[userID] = minutes
	return nil
}

type fakeCache struct {
	versions map[string]int64
	entries  map[string][]schedule.Event
	failing  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{versions: map[string]int64{}, entries: map[string][]schedule.Event{}}
}

func (c *fakeCache) Version(_ context.Context, userID string) (int64, error) {
	if c.failing {
		return 0, errors.New("redis down")
	}
	return c.versions[userID], nil
}

func (c *fakeCache) Key(userID string, version int64, from, to time.Time, lesson time.Duration) string {
	return fmt.Sprintf("%s:%d:%d:%d:%s", userID, version, from.Unix(), to.Unix(), lesson)
}

func (c *fakeCache) Get(_ context.Context, key string) ([]schedule.Event, bool, error) {
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, events []schedule.Event) error {
	c.entries[key] = events
	return nil
}

func day(d, h, m int) time.Time {
	return time.Date(2025, 1, d, h, m, 0, 0, time.UTC)
}

func dailyRule() model.Rule {
	return model.Rule{
		ID:        "rule-1",
		UserID:    "tutor-1",
		Frequency: "daily",
		Start:     day(1, 0, 0),
		End:       day(3, 0, 0),
		Time:      "10:00",
		Duration:  60,
		Activated: true,
	}
}

func newTestService(src Source, c Cache, now time.Time) *Service {
	svc := NewService(src, c, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		MaxWindow:   366 * 24 * time.Hour,
		ShortLesson: 15 * time.Minute,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func starts(slots []schedule.BookableEvent) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("02 15:04")
	}
	return out
}

func TestBookable(t *testing.T) {
	src := &fakeSource{
		rules:  []model.Rule{dailyRule()},
		booked: []model.BookedSlot{{LessonID: "l1", RuleID: "rule-1", UserID: "tutor-1", Start: day(2, 10, 0), End: day(2, 10, 30)}},
		notice: map[string]int{"tutor-1": 30},
	}
	svc := newTestService(src, nil, day(1, 9, 0))

	res, err := svc.Bookable(context.Background(), Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(4, 0, 0), Lesson: 30 * time.Minute})
	if err != nil {
		t.Fatalf("bookable: %v", err)
	}
	got := fmt.Sprint(starts(res.Slots))
	want := "[01 10:00 01 10:30 02 10:30 03 10:00 03 10:30]"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if res.Notice != 30 || res.Cached {
		t.Fatalf("unexpected result meta %+v", res)
	}
	for _, s := range res.Slots {
		if s.UserID != "tutor-1" || s.Notice != 30 || s.RuleID != "rule-1" {
			t.Fatalf("unexpected slot %+v", s)
		}
	}
}

func TestBookable_RunningSlotMustFitLesson(t *testing.T) {
	src := &fakeSource{rules: []model.Rule{dailyRule()}}

	tests := []struct {
		name   string
		now    time.Time
		lesson time.Duration
		want   string
	}{
		{"before the event", day(1, 9, 0), time.Hour, "[01 10:00]"},
		{"hour lesson already running", day(1, 10, 1), time.Hour, "[]"},
		{"half hour slot with 20 minutes left", day(1, 10, 10), 30 * time.Minute, "[01 10:30]"},
		{"quarter slot with 10 minutes left", day(1, 10, 5), 15 * time.Minute, "[01 10:15 01 10:30 01 10:45]"},
		{"exactly at a slot start", day(1, 10, 30), 30 * time.Minute, "[01 10:30]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(2, 0, 0), Lesson: tt.lesson}
			res, err := newTestService(src, nil, tt.now).Bookable(context.Background(), q)
			if err != nil {
				t.Fatalf("bookable: %v", err)
			}
			if got := fmt.Sprint(starts(res.Slots)); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestBookable_DefaultNotice(t *testing.T) {
	src := &fakeSource{rules: []model.Rule{dailyRule()}}
	svc := newTestService(src, nil, day(1, 9, 45))
	svc.cfg.DefaultNotice = 20

	res, err := svc.Bookable(context.Background(), Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(2, 0, 0)})
	if err != nil {
		t.Fatalf("bookable: %v", err)
	}
	if res.Notice != 20 || res.Lesson != DefaultLesson {
		t.Fatalf("expected defaults, got notice=%d lesson=%s", res.Notice, res.Lesson)
	}
	// 09:45 + 20m = 10:05 is past the last late-join instant of the 10:00 slot.
	if got := fmt.Sprint(starts(res.Slots)); got != "[01 10:15 01 10:30 01 10:45]" {
		t.Fatalf("unexpected slots %s", got)
	}
}

func TestBookable_InvalidInput(t *testing.T) {
	svc := newTestService(&fakeSource{}, nil, day(1, 0, 0))
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
		want error
	}{
		{"lesson too short", Query{From: day(1, 0, 0), To: day(2, 0, 0), Lesson: 10 * time.Minute}, ErrInvalidLesson},
		{"lesson too long", Query{From: day(1, 0, 0), To: day(2, 0, 0), Lesson: 241 * time.Minute}, ErrInvalidLesson},
		{"reversed window", Query{From: day(2, 0, 0), To: day(1, 0, 0)}, schedule.ErrInvalidWindow},
		{"window past horizon", Query{From: day(1, 0, 0), To: day(1, 0, 0).AddDate(2, 0, 0)}, schedule.ErrInvalidWindow},
		{"missing window", Query{}, schedule.ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Bookable(ctx, tt.q); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBookable_Cache(t *testing.T) {
	src := &fakeSource{rules: []model.Rule{dailyRule()}}
	c := newFakeCache()
	svc := newTestService(src, c, day(1, 0, 0))
	ctx := context.Background()
	q := Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(4, 0, 0), Lesson: time.Hour}

	first, err := svc.Bookable(ctx, q)
	if err != nil || first.Cached {
		t.Fatalf("first query should miss: %+v %v", first, err)
	}
	second, err := svc.Bookable(ctx, q)
	if err != nil || !second.Cached || len(second.Slots) != len(first.Slots) {
		t.Fatalf("second query should hit: %+v %v", second, err)
	}
	if src.reads != 1 {
		t.Fatalf("expected one storage read, got %d", src.reads)
	}

	// A newer version makes the old entry unreachable.
	src.rules[0].Activated = false
	c.versions["tutor-1"]++
	third, err := svc.Bookable(ctx, q)
	if err != nil || third.Cached || len(third.Slots) != 0 {
		t.Fatalf("expected fresh empty result, got %+v %v", third, err)
	}

	// Bookability is re-evaluated against now even on a hit.
	src.rules[0].Activated = true
	c.versions["tutor-1"]++
	if _, err := svc.Bookable(ctx, q); err != nil {
		t.Fatalf("warm: %v", err)
	}
	svc.now = func() time.Time { return day(3, 12, 0) }
	late, err := svc.Bookable(ctx, q)
	if err != nil || !late.Cached || len(late.Slots) != 0 {
		t.Fatalf("expected cached but expired slots to be filtered, got %+v %v", late, err)
	}
}

func TestBookable_CacheFailureFallsBack(t *testing.T) {
	c := newFakeCache()
	c.failing = true
	svc := newTestService(&fakeSource{rules: []model.Rule{dailyRule()}}, c, day(1, 0, 0))

	res, err := svc.Bookable(context.Background(), Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(4, 0, 0), Lesson: time.Hour})
	if err != nil || len(res.Slots) != 3 {
		t.Fatalf("expected 3 slots without cache, got %+v %v", res, err)
	}
	if len(c.entries) != 0 {
		t.Fatal("nothing should be cached without a version")
	}
}

func TestUnpacked(t *testing.T) {
	bad := dailyRule()
	bad.ID, bad.Frequency = "rule-bad", "weekly"
	src := &fakeSource{
		rules:  []model.Rule{dailyRule(), bad},
		booked: []model.BookedSlot{{LessonID: "l1", RuleID: "rule-1", UserID: "tutor-1", Start: day(1, 10, 15), End: day(1, 10, 30)}},
	}
	svc := newTestService(src, nil, day(1, 0, 0))

	res, err := svc.Unpacked(context.Background(), "tutor-1", day(1, 0, 0), day(2, 0, 0))
	if err != nil {
		t.Fatalf("unpacked: %v", err)
	}
	if len(res.Rules) != 2 {
		t.Fatalf("expected both rule rows, got %d", len(res.Rules))
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected the event split around the booking, got %+v", res.Events)
	}
	if !res.Events[0].End.Equal(day(1, 10, 15)) || !res.Events[1].Start.Equal(day(1, 10, 30)) {
		t.Fatalf("unexpected events %+v", res.Events)
	}
}

func TestSetNotice(t *testing.T) {
	src := &fakeSource{rules: []model.Rule{dailyRule()}}
	svc := newTestService(src, nil, day(1, 9, 0))
	ctx := context.Background()

	if err := svc.SetNotice(ctx, "tutor-1", -1); !errors.Is(err, schedule.ErrInvalidNotice) {
		t.Fatalf("expected ErrInvalidNotice, got %v", err)
	}
	if err := svc.SetNotice(ctx, "tutor-1", 120); err != nil {
		t.Fatalf("set notice: %v", err)
	}
	res, err := svc.Bookable(ctx, Query{UserID: "tutor-1", From: day(1, 0, 0), To: day(2, 0, 0), Lesson: time.Hour})
	if err != nil {
		t.Fatalf("bookable: %v", err)
	}
	if res.Notice != 120 || len(res.Slots) != 0 {
		t.Fatalf("expected the 10:00 slot to fall inside the notice, got %+v", res)
	}
}
