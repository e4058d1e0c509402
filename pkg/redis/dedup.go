package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL is how long a processed event ID is remembered.
const DefaultDedupTTL = 72 * time.Hour

// Deduplicator remembers processed event IDs so retried deliveries are
// handled once. It satisfies billing.Deduplicator.
type Deduplicator struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewDeduplicator(client redis.UniversalClient, prefix string, ttl time.Duration) *Deduplicator {
	if client == nil {
		panic("redis: client is required")
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduplicator{client: client, prefix: prefix, ttl: ttl}
}

func (d *Deduplicator) key(id string) string {
	if d.prefix == "" {
		return "events:" + id
	}
	return d.prefix + ":events:" + id
}

// Claim marks id as processed and reports whether this caller claimed it first.
func (d *Deduplicator) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(id), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrDedup, err)
	}
	return ok, nil
}

// Release forgets id so a later delivery is processed again.
func (d *Deduplicator) Release(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.key(id)).Err(); err != nil {
		return errors.Join(ErrDedup, err)
	}
	return nil
}
