// Package cache is a redis read-through cache for record queries. It sits on
// the query path only: the memory core stays the source of truth, and every
// cache failure falls through to it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"onsd/internal/registry/models"
	"onsd/pkg/domain"
	"onsd/pkg/platform/sentinel"
)

// RecordCache caches ONSRecord lookups with a bounded TTL. Records are
// immutable, so the only invalidation needed is on delete.
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRecordCache(client *redis.Client, ttl time.Duration) *RecordCache {
	return &RecordCache{client: client, ttl: ttl}
}

func recordCacheKey(key domain.RecordKey) string {
	return "onsd:record:" + key.String()
}

// Find returns a cached record, sentinel.ErrNotFound on a miss, or
// sentinel.ErrUnavailable when redis itself fails.
func (c *RecordCache) Find(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error) {
	payload, err := c.client.Get(ctx, recordCacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ONSRecord{}, fmt.Errorf("record cache %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.ONSRecord{}, fmt.Errorf("record cache %q: %w", key, sentinel.ErrUnavailable)
	}
	var rec models.ONSRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		// A corrupt entry behaves like a miss; the next Save overwrites it.
		return models.ONSRecord{}, fmt.Errorf("record cache %q: %w", key, sentinel.ErrNotFound)
	}
	return rec, nil
}

func (c *RecordCache) Save(ctx context.Context, rec models.ONSRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %q: %w", rec.Key, err)
	}
	if err := c.client.Set(ctx, recordCacheKey(rec.Key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("record cache %q: %w", rec.Key, sentinel.ErrUnavailable)
	}
	return nil
}

func (c *RecordCache) Invalidate(ctx context.Context, key domain.RecordKey) error {
	if err := c.client.Del(ctx, recordCacheKey(key)).Err(); err != nil {
		return fmt.Errorf("record cache %q: %w", key, sentinel.ErrUnavailable)
	}
	return nil
}
