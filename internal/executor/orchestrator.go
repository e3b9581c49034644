// Package executor carries detected opportunities through submission with
// per-pair serialization, bounded retries, and failure accounting.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// Notifier receives execution outcome events. Implemented by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config tunes retry behaviour and distributed locking.
type Config struct {
	// MaxAttempts bounds submissions per opportunity, including the first.
	MaxAttempts int

	// BackoffStep is multiplied by the attempt number between retries.
	BackoffStep time.Duration

	// LockTTL bounds how long the distributed per-pair lock is held.
	LockTTL time.Duration
}

// Orchestrator executes opportunities. At most one execution runs per pair
// at a time; an opportunity arriving while its pair is busy is dropped, not
// queued, because quotes go stale faster than a queue would drain.
type Orchestrator struct {
	submitter domain.Submitter
	locks     domain.LockManager
	recorder  domain.Recorder
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
	states    *stateTable
}

// New creates an Orchestrator. locks, recorder, and notifier are optional.
func New(submitter domain.Submitter, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Orchestrator{
		submitter: submitter,
		cfg:       cfg,
		logger:    logger.With("component", "executor"),
		states:    newStateTable(),
	}
}

// SetLockManager enables a distributed per-pair lock so that only one bot
// instance executes a given pair at a time.
func (o *Orchestrator) SetLockManager(locks domain.LockManager) { o.locks = locks }

// SetRecorder enables analytics recording of executions.
func (o *Orchestrator) SetRecorder(rec domain.Recorder) { o.recorder = rec }

// SetNotifier enables outcome notifications.
func (o *Orchestrator) SetNotifier(n Notifier) { o.notifier = n }

// Execute submits the opportunity. It returns ErrExecutionInFlight when the
// pair already has an execution running (locally or, with a lock manager, on
// another instance). Transient submission errors are retried up to
// MaxAttempts with linear backoff; permanent errors abort immediately.
func (o *Orchestrator) Execute(ctx context.Context, opp domain.Opportunity) (string, error) {
	key := opp.Pair.Key()

	if !o.states.tryBegin(key) {
		o.logger.Debug("dropping opportunity, pair busy", "pair", key, "opportunity_id", opp.ID)
		return "", domain.ErrExecutionInFlight
	}

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, "exec:"+key, o.cfg.LockTTL)
		if err != nil {
			o.states.release(key)
			if errors.Is(err, domain.ErrLockHeld) {
				o.logger.Debug("dropping opportunity, pair locked elsewhere", "pair", key, "opportunity_id", opp.ID)
				return "", domain.ErrExecutionInFlight
			}
			return "", fmt.Errorf("executor: acquire pair lock: %w", err)
		}
		defer unlock()
	}

	txID, err := o.submit(ctx, opp)
	o.states.finish(key, err == nil)

	if err != nil {
		o.logger.Error("execution failed",
			"pair", key,
			"opportunity_id", opp.ID,
			"consecutive_failures", o.states.failures(key),
			"error", err)
		o.notify(ctx, "execution_failed", "Execution failed",
			fmt.Sprintf("pair %s amount %d: %v", key, opp.Amount, err))
		return "", err
	}

	o.logger.Info("execution confirmed",
		"pair", key,
		"opportunity_id", opp.ID,
		"tx_id", txID,
		"amount", opp.Amount,
		"net_profit_percent", opp.NetProfitPercent)
	if o.recorder != nil {
		profit := opp.NetProfitPercent / 100 * float64(opp.Amount)
		o.recorder.RecordExecution(opp.Pair, opp.Amount, profit, txID)
	}
	o.notify(ctx, "execution_success", "Execution confirmed",
		fmt.Sprintf("pair %s amount %d net %.4f%% tx %s", key, opp.Amount, opp.NetProfitPercent, txID))
	return txID, nil
}

// submit runs the attempt loop. Backoff grows linearly with the attempt
// number and respects context cancellation.
func (o *Orchestrator) submit(ctx context.Context, opp domain.Opportunity) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		txID, err := o.submitter.Submit(ctx, opp)
		if err == nil {
			return txID, nil
		}
		lastErr = err

		if !domain.IsTransient(err) {
			return "", fmt.Errorf("executor: permanent submit failure: %w", err)
		}
		if attempt == o.cfg.MaxAttempts {
			break
		}

		backoff := time.Duration(attempt) * o.cfg.BackoffStep
		o.logger.Warn("transient submit failure, retrying",
			"pair", opp.Pair.Key(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("executor: %d attempts exhausted: %w", o.cfg.MaxAttempts, lastErr)
}

// ConsecutiveFailures reports the pair's current failure streak.
func (o *Orchestrator) ConsecutiveFailures(pair domain.Pair) int {
	return o.states.failures(pair.Key())
}

func (o *Orchestrator) notify(ctx context.Context, event, title, message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, event, title, message); err != nil {
		o.logger.Warn("notification failed", "event", event, "error", err)
	}
}
