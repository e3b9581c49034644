package scheduler

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

func enabledPair(tokenA, tokenB string) domain.PairConfig {
	return domain.PairConfig{
		TokenA:           tokenA,
		TokenB:           tokenB,
		MinProfitPercent: 0.5,
		Enabled:          true,
	}
}

// fakeProvider returns canned quotes per pair key, or an error.
type fakeProvider struct {
	mu    sync.Mutex
	errs  map[string]error
	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeProvider) Quotes(ctx context.Context, pair domain.Pair) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pair.Key()]++
	if err := f.errs[pair.Key()]; err != nil {
		return nil, err
	}
	return []domain.Quote{
		{Venue: "orca", PriceAtoB: 1.0, PriceBtoA: 1.1, Liquidity: 1000},
		{Venue: "raydium", PriceAtoB: 1.2, PriceBtoA: 0.9, Liquidity: 1000},
	}, nil
}

func (f *fakeProvider) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// fakeDetector always finds an opportunity for the given pair.
type fakeDetector struct{}

func (fakeDetector) Detect(quotes []domain.Quote, pair domain.PairConfig) (*domain.Opportunity, error) {
	if len(quotes) < 2 {
		return nil, domain.ErrInsufficientQuotes
	}
	return &domain.Opportunity{
		ID:               "opp",
		Pair:             pair.Pair(),
		BuyVenue:         "orca",
		SellVenue:        "orca",
		Amount:           100,
		NetProfitPercent: 1.0,
		DetectedAt:       time.Now(),
	}, nil
}

// fakeExecutor counts executions per pair.
type fakeExecutor struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{calls: make(map[string]int)}
}

func (f *fakeExecutor) Execute(ctx context.Context, opp domain.Opportunity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[opp.Pair.Key()]++
	if f.err != nil {
		return "", f.err
	}
	return "sig", nil
}

func (f *fakeExecutor) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func TestRunPollsAllPairs(t *testing.T) {
	provider := newFakeProvider()
	exec := newFakeExecutor()
	pairs := []domain.PairConfig{
		enabledPair("SOL", "USDC"),
		enabledPair("SOL", "USDT"),
	}

	s := New(provider, fakeDetector{}, exec, pairs, Config{
		Interval:           10 * time.Millisecond,
		MaxConcurrentPairs: 4,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v, want deadline exceeded", err)
	}

	for _, key := range []string{"SOL/USDC", "SOL/USDT"} {
		if provider.callCount(key) == 0 {
			t.Errorf("pair %s never polled", key)
		}
		if exec.callCount(key) == 0 {
			t.Errorf("pair %s never executed", key)
		}
	}
}

func TestRunPairFailureIsolated(t *testing.T) {
	provider := newFakeProvider()
	provider.errs["SOL/USDC"] = errors.New("venue exploded")
	exec := newFakeExecutor()
	pairs := []domain.PairConfig{
		enabledPair("SOL", "USDC"),
		enabledPair("SOL", "USDT"),
	}

	s := New(provider, fakeDetector{}, exec, pairs, Config{
		Interval:           10 * time.Millisecond,
		MaxConcurrentPairs: 4,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if exec.callCount("SOL/USDT") == 0 {
		t.Error("healthy pair starved by failing pair")
	}
	if exec.callCount("SOL/USDC") != 0 {
		t.Error("failing pair should never reach execution")
	}
	// The failing pair keeps being polled: failures do not disable it.
	if provider.callCount("SOL/USDC") < 2 {
		t.Errorf("failing pair polled %d times, want >= 2", provider.callCount("SOL/USDC"))
	}
}

func TestRunSkipsDisabledPairs(t *testing.T) {
	provider := newFakeProvider()
	exec := newFakeExecutor()
	disabled := enabledPair("SOL", "USDC")
	disabled.Enabled = false
	pairs := []domain.PairConfig{disabled, enabledPair("SOL", "USDT")}

	s := New(provider, fakeDetector{}, exec, pairs, Config{
		Interval:           10 * time.Millisecond,
		MaxConcurrentPairs: 4,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if provider.callCount("SOL/USDC") != 0 {
		t.Error("disabled pair was polled")
	}
	if provider.callCount("SOL/USDT") == 0 {
		t.Error("enabled pair was not polled")
	}
}

// blockingExecutor parks in Execute until released and records what the
// execution context looked like at release time.
type blockingExecutor struct {
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	ctxErr    error
	completed bool
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingExecutor) Execute(ctx context.Context, opp domain.Opportunity) (string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctxErr = ctx.Err()
	b.completed = true
	return "sig", nil
}

func TestStopDoesNotCancelInFlightExecution(t *testing.T) {
	provider := newFakeProvider()
	exec := newBlockingExecutor()
	pairs := []domain.PairConfig{enabledPair("SOL", "USDC")}

	s := New(provider, fakeDetector{}, exec, pairs, Config{
		Interval:           10 * time.Millisecond,
		MaxConcurrentPairs: 1,
		ExecutionTimeout:   5 * time.Second,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-exec.entered:
	case <-time.After(time.Second):
		t.Fatal("executor never entered")
	}

	cancel()

	// The scheduler must wait for the in-flight execution rather than
	// force it down with the loop.
	select {
	case err := <-done:
		t.Fatalf("Run returned %v while an execution was in flight", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(exec.release)

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after execution finished")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if !exec.completed {
		t.Fatal("execution never completed")
	}
	if exec.ctxErr != nil {
		t.Fatalf("execution context err = %v, want nil after scheduler stop", exec.ctxErr)
	}
}

func TestRunStopsBetweenCycles(t *testing.T) {
	provider := newFakeProvider()
	exec := newFakeExecutor()
	pairs := []domain.PairConfig{enabledPair("SOL", "USDC")}

	s := New(provider, fakeDetector{}, exec, pairs, Config{
		Interval:           10 * time.Millisecond,
		MaxConcurrentPairs: 1,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
