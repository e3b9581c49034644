package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPair = domain.Pair{TokenA: "SOL", TokenB: "USDC"}

// fakeSource serves a fixed quote or error, optionally after a delay.
type fakeSource struct {
	name  string
	quote domain.Quote
	err   error
	delay time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return f.quote, nil
}

// memCache is an in-memory QuoteCache for tests.
type memCache struct {
	mu       sync.Mutex
	quotes   map[string][]domain.Quote
	storedAt map[string]time.Time
	getErr   error
	setErr   error
	sets     int
}

func newMemCache() *memCache {
	return &memCache{
		quotes:   make(map[string][]domain.Quote),
		storedAt: make(map[string]time.Time),
	}
}

func (m *memCache) SetQuotes(ctx context.Context, pair domain.Pair, quotes []domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.quotes[pair.Key()] = quotes
	m.storedAt[pair.Key()] = time.Now()
	m.sets++
	return nil
}

func (m *memCache) GetQuotes(ctx context.Context, pair domain.Pair) ([]domain.Quote, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, time.Time{}, m.getErr
	}
	quotes, ok := m.quotes[pair.Key()]
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return quotes, m.storedAt[pair.Key()], nil
}

func (m *memCache) Invalidate(ctx context.Context, pair domain.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, pair.Key())
	return nil
}

func goodQuote(venue string) domain.Quote {
	return domain.Quote{
		Venue:     venue,
		PriceAtoB: 1.0,
		PriceBtoA: 1.0,
		Liquidity: 1000,
		FetchedAt: time.Now(),
	}
}

func TestQuotesFetchesAllVenues(t *testing.T) {
	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
		&fakeSource{name: "raydium", quote: goodQuote("raydium")},
	}
	agg := New(sources, nil, Config{FetchTimeout: time.Second, CacheTTL: time.Second}, testLogger())

	quotes, err := agg.Quotes(context.Background(), testPair)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	// Venue configuration order must be preserved.
	if quotes[0].Venue != "orca" || quotes[1].Venue != "raydium" {
		t.Errorf("order = %s, %s, want orca, raydium", quotes[0].Venue, quotes[1].Venue)
	}
}

func TestQuotesDropsFailedVenue(t *testing.T) {
	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
		&fakeSource{name: "raydium", err: errors.New("venue down")},
	}
	agg := New(sources, nil, Config{FetchTimeout: time.Second, CacheTTL: time.Second}, testLogger())

	quotes, err := agg.Quotes(context.Background(), testPair)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Venue != "orca" {
		t.Fatalf("got %+v, want only orca", quotes)
	}
}

func TestQuotesDropsSlowVenue(t *testing.T) {
	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
		&fakeSource{name: "raydium", quote: goodQuote("raydium"), delay: 200 * time.Millisecond},
	}
	agg := New(sources, nil, Config{FetchTimeout: 20 * time.Millisecond, CacheTTL: time.Second}, testLogger())

	quotes, err := agg.Quotes(context.Background(), testPair)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Venue != "orca" {
		t.Fatalf("got %+v, want only orca", quotes)
	}
}

func TestQuotesAllVenuesFailed(t *testing.T) {
	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", err: errors.New("down")},
		&fakeSource{name: "raydium", err: errors.New("down")},
	}
	agg := New(sources, nil, Config{FetchTimeout: time.Second, CacheTTL: time.Second}, testLogger())

	_, err := agg.Quotes(context.Background(), testPair)
	if !errors.Is(err, domain.ErrInsufficientQuotes) {
		t.Fatalf("err = %v, want ErrInsufficientQuotes", err)
	}
}

func TestQuotesServedFromCache(t *testing.T) {
	cache := newMemCache()
	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
	}
	agg := New(sources, cache, Config{FetchTimeout: time.Second, CacheTTL: time.Minute}, testLogger())

	if _, err := agg.Quotes(context.Background(), testPair); err != nil {
		t.Fatalf("first Quotes: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Second call must be a cache hit: no further writes.
	if _, err := agg.Quotes(context.Background(), testPair); err != nil {
		t.Fatalf("second Quotes: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d after hit, want still 1", cache.sets)
	}
}

func TestQuotesStaleCacheRefetches(t *testing.T) {
	cache := newMemCache()
	cache.quotes[testPair.Key()] = []domain.Quote{goodQuote("stale")}
	cache.storedAt[testPair.Key()] = time.Now().Add(-time.Minute)

	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
	}
	agg := New(sources, cache, Config{FetchTimeout: time.Second, CacheTTL: 5 * time.Second}, testLogger())

	quotes, err := agg.Quotes(context.Background(), testPair)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Venue != "orca" {
		t.Fatalf("got %+v, want fresh orca quote", quotes)
	}
}

func TestQuotesCacheErrorDegradesToFetch(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("redis unreachable")
	cache.setErr = errors.New("redis unreachable")

	sources := []domain.QuoteSource{
		&fakeSource{name: "orca", quote: goodQuote("orca")},
	}
	agg := New(sources, cache, Config{FetchTimeout: time.Second, CacheTTL: time.Second}, testLogger())

	quotes, err := agg.Quotes(context.Background(), testPair)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
}
