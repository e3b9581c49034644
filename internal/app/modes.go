package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmarkhas/solarbot/internal/aggregator"
	"github.com/dmarkhas/solarbot/internal/analytics"
	"github.com/dmarkhas/solarbot/internal/detector"
	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/executor"
	"github.com/dmarkhas/solarbot/internal/feed"
	"github.com/dmarkhas/solarbot/internal/scheduler"
	"github.com/dmarkhas/solarbot/internal/solana"
	"github.com/dmarkhas/solarbot/internal/wallet"
)

// MonitorMode runs the full pipeline without touching the chain: detected
// opportunities are logged and recorded but submitted through a dry-run
// submitter.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("monitor mode: opportunities will not be executed")
	submitter := executor.NewDryRunSubmitter(a.logger)
	return a.runPipeline(ctx, deps, submitter)
}

// TradeMode runs the pipeline for real: it loads the signing wallet, checks
// the fee balance, and submits opportunities to the on-chain program.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	kp, err := wallet.LoadKeypair(wallet.KeyConfig{
		KeypairPath:      a.cfg.Wallet.KeypairPath,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: load wallet: %w", err)
	}
	a.logger.Info("wallet loaded", "pubkey", kp.PublicKey())

	if err := a.preflight(ctx, deps, kp); err != nil {
		return err
	}

	submitter := executor.NewOnChainSubmitter(
		deps.RPC,
		kp,
		a.cfg.Program.ProgramID,
		deps.Pools,
		a.cfg.Program.MaxRetries,
		a.logger,
	)
	return a.runPipeline(ctx, deps, submitter)
}

// preflight verifies the wallet holds enough SOL to pay fees before any
// trading starts.
func (a *App) preflight(ctx context.Context, deps *Dependencies, kp wallet.Keypair) error {
	lamports, err := deps.RPC.GetBalance(ctx, kp.PublicKey())
	if err != nil {
		return fmt.Errorf("app: preflight balance check: %w", err)
	}
	balance := float64(lamports) / float64(solana.LamportsPerSOL)
	if balance < a.cfg.Program.MinSOLBalance {
		return fmt.Errorf("app: insufficient SOL balance: have %.4f, need %.4f", balance, a.cfg.Program.MinSOLBalance)
	}
	a.logger.Info("preflight balance ok", "balance_sol", balance)
	return nil
}

// runPipeline assembles aggregator, detector, and orchestrator around the
// given submitter and runs the scheduler plus its supporting loops until
// ctx is cancelled.
func (a *App) runPipeline(ctx context.Context, deps *Dependencies, submitter domain.Submitter) error {
	agg := aggregator.New(deps.Sources, deps.QuoteCache, aggregator.Config{
		FetchTimeout: a.cfg.Scheduler.FetchTimeout.Duration,
		CacheTTL:     a.cfg.Scheduler.CacheTTL.Duration,
	}, a.logger)

	det := detector.New(detector.Config{
		LiquidityFraction: a.cfg.Detector.LiquidityFraction,
	})

	recorder := analytics.NewRecorder(deps.AnalyticsStore, a.logger)
	a.closers = append(a.closers, func() { _ = recorder.Close() })

	orch := executor.New(submitter, executor.Config{
		MaxAttempts: a.cfg.Executor.MaxAttempts,
		BackoffStep: a.cfg.Executor.BackoffStep.Duration,
		LockTTL:     a.cfg.Executor.LockTTL.Duration,
	}, a.logger)
	orch.SetLockManager(deps.LockManager)
	orch.SetRecorder(recorder)
	orch.SetNotifier(deps.Notifier)

	pairs := make([]domain.PairConfig, 0, len(a.cfg.EnabledPairs()))
	for _, p := range a.cfg.EnabledPairs() {
		pairs = append(pairs, domain.PairConfig{
			TokenA:           p.TokenA,
			TokenB:           p.TokenB,
			MinProfitPercent: p.MinProfitPercent,
			MaxAmount:        p.MaxAmount,
			Enabled:          p.Enabled,
		})
	}

	sched := scheduler.New(agg, det, orch, pairs, scheduler.Config{
		Interval:           a.cfg.Scheduler.Interval.Duration,
		MaxConcurrentPairs: a.cfg.Scheduler.MaxConcurrentPairs,
		ExecutionTimeout:   a.cfg.Scheduler.ExecutionTimeout.Duration,
	}, a.logger)
	sched.SetRecorder(recorder)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	if deps.WS != nil {
		poolFeed := feed.New(deps.WS, deps.QuoteCache, deps.SubscribedPools, a.logger)
		g.Go(func() error {
			return poolFeed.Run(ctx)
		})
	}

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return a.archiveLoop(ctx, deps.Archiver)
		})
	}

	return g.Wait()
}

// archiveLoop periodically moves analytics rows past the retention window
// to cold storage. Archive failures are logged and retried next interval.
func (a *App) archiveLoop(ctx context.Context, archiver domain.Archiver) error {
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			if _, err := archiver.ArchiveOpportunities(ctx, cutoff); err != nil {
				a.logger.Error("opportunity archive failed", "error", err)
			}
			if _, err := archiver.ArchiveExecutions(ctx, cutoff); err != nil {
				a.logger.Error("execution archive failed", "error", err)
			}
		}
	}
}
