// Package scheduler drives the poll loop: every interval it runs the
// aggregate, detect, execute pipeline for each enabled pair with bounded
// concurrency. A pair's failure never touches other pairs or the loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// QuoteProvider supplies the current quote set for a pair.
type QuoteProvider interface {
	Quotes(ctx context.Context, pair domain.Pair) ([]domain.Quote, error)
}

// OpportunityDetector evaluates a quote set against a pair's thresholds.
type OpportunityDetector interface {
	Detect(quotes []domain.Quote, pair domain.PairConfig) (*domain.Opportunity, error)
}

// OpportunityExecutor carries an opportunity through submission.
type OpportunityExecutor interface {
	Execute(ctx context.Context, opp domain.Opportunity) (string, error)
}

// Config tunes the loop.
type Config struct {
	// Interval between poll cycles.
	Interval time.Duration

	// MaxConcurrentPairs bounds pair pipelines running at once.
	MaxConcurrentPairs int

	// ExecutionTimeout bounds one opportunity execution, retries and
	// confirmation included.
	ExecutionTimeout time.Duration
}

// Scheduler polls the configured pairs on a fixed interval.
type Scheduler struct {
	quotes   QuoteProvider
	detector OpportunityDetector
	executor OpportunityExecutor
	recorder domain.Recorder
	pairs    []domain.PairConfig
	cfg      Config
	logger   *slog.Logger
	sem      *semaphore.Weighted
}

// New creates a Scheduler over the given pairs. recorder is optional.
func New(
	quotes QuoteProvider,
	detector OpportunityDetector,
	executor OpportunityExecutor,
	pairs []domain.PairConfig,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxConcurrentPairs <= 0 {
		cfg.MaxConcurrentPairs = 4
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 90 * time.Second
	}
	return &Scheduler{
		quotes:   quotes,
		detector: detector,
		executor: executor,
		pairs:    pairs,
		cfg:      cfg,
		logger:   logger.With("component", "scheduler"),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentPairs)),
	}
}

// SetRecorder enables analytics recording of detected opportunities.
func (s *Scheduler) SetRecorder(rec domain.Recorder) { s.recorder = rec }

// Run polls until ctx is cancelled. Cancellation is observed between
// cycles; in-flight pair pipelines are waited for before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"pairs", len(s.pairs),
		"max_concurrent_pairs", s.cfg.MaxConcurrentPairs)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx, &wg)
		}
	}
}

// cycle launches the pipeline for each enabled pair. A pair whose slot is
// unavailable is skipped this cycle rather than queued; the next tick will
// see fresher prices anyway.
func (s *Scheduler) cycle(ctx context.Context, wg *sync.WaitGroup) {
	for _, pair := range s.pairs {
		if !pair.Enabled {
			continue
		}
		if !s.sem.TryAcquire(1) {
			s.logger.Debug("skipping pair, no free slot", "pair", pair.Pair().Key())
			continue
		}
		wg.Add(1)
		go func(pc domain.PairConfig) {
			defer wg.Done()
			defer s.sem.Release(1)
			s.runPair(ctx, pc)
		}(pair)
	}
}

// runPair aggregates, detects, and executes for one pair. All failures are
// contained here.
func (s *Scheduler) runPair(ctx context.Context, pc domain.PairConfig) {
	pair := pc.Pair()

	quotes, err := s.quotes.Quotes(ctx, pair)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientQuotes) {
			s.logger.Debug("no quotes this cycle", "pair", pair.Key())
		} else {
			s.logger.Warn("quote aggregation failed", "pair", pair.Key(), "error", err)
		}
		return
	}

	opp, err := s.detector.Detect(quotes, pc)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientQuotes) {
			s.logger.Debug("not enough quotes to compare", "pair", pair.Key(), "quotes", len(quotes))
		} else {
			s.logger.Warn("detection failed", "pair", pair.Key(), "error", err)
		}
		return
	}
	if opp == nil {
		return
	}

	s.logger.Info("opportunity detected",
		"pair", pair.Key(),
		"buy_venue", opp.BuyVenue,
		"sell_venue", opp.SellVenue,
		"amount", opp.Amount,
		"gross_profit_percent", opp.GrossProfitPercent,
		"net_profit_percent", opp.NetProfitPercent)
	if s.recorder != nil {
		s.recorder.RecordOpportunity(pair, opp.NetProfitPercent)
	}

	// The submission runs on a detached context: stopping the scheduler must
	// not abort an in-flight execution mid-retry or mid-confirmation. The
	// execution timeout is its only deadline.
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ExecutionTimeout)
	defer cancel()
	if _, err := s.executor.Execute(execCtx, *opp); err != nil {
		if errors.Is(err, domain.ErrExecutionInFlight) {
			s.logger.Debug("pair execution already in flight", "pair", pair.Key())
			return
		}
		s.logger.Warn("execution failed", "pair", pair.Key(), "opportunity_id", opp.ID, "error", err)
	}
}
