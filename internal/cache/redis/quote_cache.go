package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// QuoteCache implements domain.QuoteCache on Redis strings. Each pair's
// whole quote set is stored as one JSON value at "quotes:{pairKey}" and is
// always replaced wholesale, so readers never see a partially updated set.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// cachedSet is the stored payload. StoredAt lets callers apply their own
// freshness window independent of the Redis expiry.
type cachedSet struct {
	StoredAt time.Time      `json:"stored_at"`
	Quotes   []domain.Quote `json:"quotes"`
}

// NewQuoteCache creates a QuoteCache with the given freshness TTL. The
// Redis key expiry is set to twice the TTL so stale entries still age out
// of the server even if never read again.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(pair domain.Pair) string {
	return "quotes:" + pair.Key()
}

// SetQuotes replaces the pair's cached quote set.
func (qc *QuoteCache) SetQuotes(ctx context.Context, pair domain.Pair, quotes []domain.Quote) error {
	payload, err := json.Marshal(cachedSet{
		StoredAt: time.Now().UTC(),
		Quotes:   quotes,
	})
	if err != nil {
		return fmt.Errorf("redis: marshal quotes %s: %w", pair.Key(), err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(pair), payload, 2*qc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quotes %s: %w", pair.Key(), err)
	}
	return nil
}

// GetQuotes returns the pair's cached quote set and when it was stored.
// It returns domain.ErrNotFound when no entry exists.
func (qc *QuoteCache) GetQuotes(ctx context.Context, pair domain.Pair) ([]domain.Quote, time.Time, error) {
	raw, err := qc.rdb.Get(ctx, quoteKey(pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, domain.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("redis: get quotes %s: %w", pair.Key(), err)
	}

	var set cachedSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: unmarshal quotes %s: %w", pair.Key(), err)
	}
	return set.Quotes, set.StoredAt, nil
}

// Invalidate removes the pair's cached quote set.
func (qc *QuoteCache) Invalidate(ctx context.Context, pair domain.Pair) error {
	if err := qc.rdb.Del(ctx, quoteKey(pair)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate quotes %s: %w", pair.Key(), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
