// Package analytics records opportunities and executions without blocking
// the trading path. Writes are queued to a worker; when the queue is full
// the event is dropped, because a slow database must never stall a cycle.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkhas/solarbot/internal/domain"
)

const defaultQueueSize = 256

// event is one queued analytics write.
type event struct {
	opportunity *domain.OpportunityRecord
	execution   *domain.ExecutionRecord
}

// Recorder queues analytics writes to a background worker.
type Recorder struct {
	store  domain.AnalyticsStore
	queue  chan event
	logger *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRecorder starts the write worker. Call Close to drain and stop it.
func NewRecorder(store domain.AnalyticsStore, logger *slog.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		queue:  make(chan event, defaultQueueSize),
		logger: logger.With("component", "analytics"),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// RecordOpportunity queues an opportunity sighting. Never blocks.
func (r *Recorder) RecordOpportunity(pair domain.Pair, profitPercent float64) {
	r.enqueue(event{opportunity: &domain.OpportunityRecord{
		ID:            uuid.NewString(),
		Pair:          pair.Key(),
		ProfitPercent: profitPercent,
		DetectedAt:    time.Now().UTC(),
	}})
}

// RecordExecution queues a completed execution. Never blocks.
func (r *Recorder) RecordExecution(pair domain.Pair, amount uint64, profit float64, txID string) {
	r.enqueue(event{execution: &domain.ExecutionRecord{
		ID:         uuid.NewString(),
		Pair:       pair.Key(),
		Amount:     amount,
		Profit:     profit,
		TxID:       txID,
		ExecutedAt: time.Now().UTC(),
	}})
}

// Stats returns aggregate statistics from the backing store.
func (r *Recorder) Stats(ctx context.Context) (domain.AnalyticsStats, error) {
	return r.store.Stats(ctx)
}

func (r *Recorder) enqueue(ev event) {
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("analytics queue full, dropping event")
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		switch {
		case ev.opportunity != nil:
			err = r.store.InsertOpportunity(ctx, *ev.opportunity)
		case ev.execution != nil:
			err = r.store.InsertExecution(ctx, *ev.execution)
		}
		cancel()
		if err != nil {
			r.logger.Warn("analytics write failed", "error", err)
		}
	}
}

// Close drains queued events and stops the worker.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
	return nil
}

var _ domain.Recorder = (*Recorder)(nil)
