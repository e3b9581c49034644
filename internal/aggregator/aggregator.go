// Package aggregator collects quotes for a pair from all configured venues.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// Config tunes the per-venue fetch and the cache behaviour.
type Config struct {
	// FetchTimeout bounds each venue fetch independently.
	FetchTimeout time.Duration

	// CacheTTL is how long a cached quote set stays fresh.
	CacheTTL time.Duration
}

// Aggregator fans out quote fetches across venues and caches the result
// per pair. A cache failure is treated as a miss: the aggregator degrades
// to fetch-through rather than failing the cycle.
type Aggregator struct {
	sources []domain.QuoteSource
	cache   domain.QuoteCache
	cfg     Config
	logger  *slog.Logger
}

// New creates an Aggregator. cache may be nil, in which case every call
// fetches live quotes.
func New(sources []domain.QuoteSource, cache domain.QuoteCache, cfg Config, logger *slog.Logger) *Aggregator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Second
	}
	return &Aggregator{
		sources: sources,
		cache:   cache,
		cfg:     cfg,
		logger:  logger.With("component", "aggregator"),
	}
}

// Quotes returns the current quote set for the pair. Cached quotes are
// served while fresh; otherwise every venue is queried concurrently and
// venues that fail or time out are dropped from the result.
func (a *Aggregator) Quotes(ctx context.Context, pair domain.Pair) ([]domain.Quote, error) {
	if cached, ok := a.fromCache(ctx, pair); ok {
		return cached, nil
	}

	quotes := a.fetchAll(ctx, pair)
	if len(quotes) == 0 {
		return nil, domain.ErrInsufficientQuotes
	}

	if a.cache != nil {
		if err := a.cache.SetQuotes(ctx, pair, quotes); err != nil {
			a.logger.Warn("cache write failed", "pair", pair.Key(), "error", err)
		}
	}
	return quotes, nil
}

// fromCache returns the cached quote set if present and still fresh.
func (a *Aggregator) fromCache(ctx context.Context, pair domain.Pair) ([]domain.Quote, bool) {
	if a.cache == nil {
		return nil, false
	}
	quotes, storedAt, err := a.cache.GetQuotes(ctx, pair)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("cache read failed", "pair", pair.Key(), "error", err)
		}
		return nil, false
	}
	if time.Since(storedAt) > a.cfg.CacheTTL {
		return nil, false
	}
	return quotes, true
}

// fetchAll queries every venue concurrently with an independent timeout.
// Results preserve venue configuration order so downstream tie-breaks are
// deterministic.
func (a *Aggregator) fetchAll(ctx context.Context, pair domain.Pair) []domain.Quote {
	type result struct {
		quote domain.Quote
		err   error
	}
	results := make([]result, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src domain.QuoteSource) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
			defer cancel()
			q, err := src.FetchQuote(fetchCtx, pair)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = domain.ErrVenueTimeout
			}
			results[i] = result{quote: q, err: err}
		}(i, src)
	}
	wg.Wait()

	quotes := make([]domain.Quote, 0, len(a.sources))
	for i, r := range results {
		if r.err != nil {
			a.logger.Warn("venue fetch failed",
				"venue", a.sources[i].Name(),
				"pair", pair.Key(),
				"error", r.err)
			continue
		}
		quotes = append(quotes, r.quote)
	}
	return quotes
}
