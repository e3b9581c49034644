package domain

import (
	"context"
	"time"
)

// QuoteCache stores the most recent quote set per pair. Entries are replaced
// wholesale on refresh; there is no partial-entry merging.
type QuoteCache interface {
	// SetQuotes replaces the cached quote set for the pair.
	SetQuotes(ctx context.Context, pair Pair, quotes []Quote) error

	// GetQuotes returns the cached quote set and the time it was stored.
	// It returns ErrNotFound when no entry exists (or the entry expired).
	GetQuotes(ctx context.Context, pair Pair) ([]Quote, time.Time, error)

	// Invalidate drops the cached entry for the pair, if any.
	Invalidate(ctx context.Context, pair Pair) error
}

// LockManager provides per-pair distributed locking so concurrent bot
// instances cannot submit the same pair simultaneously.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
