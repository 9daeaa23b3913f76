// Package cache keeps unpacked availability per user in Redis.
//
// Entries are addressed by a per-user version number. Every rule mutation and
// every booked or cancelled lesson bumps the version, so stale entries are
// never read again and simply expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/litespace/availability/services/availability-service/internal/schedule"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func New(rdb redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, prefix: "availability"}
}

func (c *Cache) versionKey(userID string) string {
	return c.prefix + ":ver:" + userID
}

// Key addresses one cached window for a user at a version.
func (c *Cache) Key(userID string, version int64, from, to time.Time, lesson time.Duration) string {
	return fmt.Sprintf("%s:slots:%s:%d:%d:%d:%d", c.prefix, userID, version, from.Unix(), to.Unix(), int(lesson.Minutes()))
}

// Version returns the user's current version, zero when never bumped.
func (c *Cache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := c.rdb.Get(ctx, c.versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *Cache) Bump(ctx context.Context, userID string) error {
	return c.rdb.Incr(ctx, c.versionKey(userID)).Err()
}

func (c *Cache) Get(ctx context.Context, key string) ([]schedule.Event, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	events, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return events, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, events []schedule.Event) error {
	raw, err := encode(events)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Ping is used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

type entry struct {
	RuleID string    `json:"r"`
	Start  time.Time `json:"s"`
	End    time.Time `json:"e"`
}

func encode(events []schedule.Event) ([]byte, error) {
	out := make([]entry, len(events))
	for i, e := range events {
		out[i] = entry{RuleID: e.RuleID, Start: e.Start, End: e.End}
	}
	return json.Marshal(out)
}

func decode(raw []byte) ([]schedule.Event, error) {
	var in []entry
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	out := make([]schedule.Event, len(in))
	for i, e := range in {
		out[i] = schedule.Event{RuleID: e.RuleID, Start: e.Start.UTC(), End: e.End.UTC()}
	}
	return out, nil
}
