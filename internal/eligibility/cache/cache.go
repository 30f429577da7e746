// Package cache keeps a short-lived Redis copy of eligibility snapshots for
// the advisory roster views. Enrollment decisions never read from here; they
// snapshot inside the offering lock so the cache can only ever make the
// preview stale, not the decision.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cmms/internal/eligibility"
	id "cmms/pkg/domain"
)

// Source loads the authoritative snapshot on a cache miss.
type Source interface {
	EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error)
}

// SnapshotCache is a read-through cache over a snapshot Source. Redis faults
// degrade to direct reads; a nil client disables caching entirely.
type SnapshotCache struct {
	source Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(c *SnapshotCache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *SnapshotCache) {
		c.logger = logger
	}
}

func New(source Source, client *redis.Client, ttl time.Duration, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func snapshotKey(memberID id.RosterMemberID) string {
	return "eligibility:snapshot:" + memberID.String()
}

// EligibilitySnapshot returns the cached snapshot when present, otherwise
// loads from the source and stores the result for the configured TTL.
func (c *SnapshotCache) EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error) {
	if c.client == nil {
		return c.source.EligibilitySnapshot(ctx, memberID)
	}

	key := snapshotKey(memberID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var attendee eligibility.Attendee
		if err := json.Unmarshal(payload, &attendee); err == nil {
			return attendee, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached snapshot", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "snapshot cache read failed", "key", key, "error", err)
	}

	attendee, err := c.source.EligibilitySnapshot(ctx, memberID)
	if err != nil {
		return eligibility.Attendee{}, err
	}

	if payload, err := json.Marshal(attendee); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "snapshot cache write failed", "key", key, "error", err)
		}
	}
	return attendee, nil
}

// Invalidate drops the cached snapshot after a member's record changes, such
// as an honor sign-off.
func (c *SnapshotCache) Invalidate(ctx context.Context, memberID id.RosterMemberID) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotKey(memberID)).Err()
}
