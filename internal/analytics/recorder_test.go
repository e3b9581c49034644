package analytics

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// memStore is an in-memory AnalyticsStore for tests.
type memStore struct {
	mu            sync.Mutex
	opportunities []domain.OpportunityRecord
	executions    []domain.ExecutionRecord
}

func (m *memStore) InsertOpportunity(ctx context.Context, rec domain.OpportunityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opportunities = append(m.opportunities, rec)
	return nil
}

func (m *memStore) InsertExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, rec)
	return nil
}

func (m *memStore) Stats(ctx context.Context) (domain.AnalyticsStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.AnalyticsStats{
		TotalOpportunities: int64(len(m.opportunities)),
		TotalExecutions:    int64(len(m.executions)),
	}
	for _, e := range m.executions {
		stats.TotalProfit += e.Profit
	}
	if stats.TotalExecutions > 0 {
		stats.AvgProfit = stats.TotalProfit / float64(stats.TotalExecutions)
	}
	if stats.TotalOpportunities > 0 {
		stats.SuccessRate = float64(stats.TotalExecutions) / float64(stats.TotalOpportunities) * 100
	}
	return stats, nil
}

func (m *memStore) ListOpportunitiesBefore(ctx context.Context, before time.Time) ([]domain.OpportunityRecord, error) {
	return nil, nil
}

func (m *memStore) ListExecutionsBefore(ctx context.Context, before time.Time) ([]domain.ExecutionRecord, error) {
	return nil, nil
}

func (m *memStore) DeleteOpportunitiesBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) DeleteExecutionsBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.opportunities), len(m.executions)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPair = domain.Pair{TokenA: "SOL", TokenB: "USDC"}

func TestRecorderWritesThrough(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, testLogger())

	rec.RecordOpportunity(testPair, 1.5)
	rec.RecordOpportunity(testPair, 0.8)
	rec.RecordExecution(testPair, 50_000, 600, "sig-1")

	// Close drains the queue.
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opps, execs := store.counts()
	if opps != 2 {
		t.Errorf("opportunities = %d, want 2", opps)
	}
	if execs != 1 {
		t.Errorf("executions = %d, want 1", execs)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	exec := store.executions[0]
	if exec.Pair != "SOL/USDC" || exec.Amount != 50_000 || exec.TxID != "sig-1" {
		t.Errorf("execution record = %+v", exec)
	}
	if exec.ID == "" {
		t.Error("expected a generated record ID")
	}
}

func TestRecorderStatsPassthrough(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, testLogger())
	defer rec.Close()

	rec.RecordOpportunity(testPair, 1.0)
	rec.RecordExecution(testPair, 100, 42, "sig")

	// Wait for the async writes to land.
	deadline := time.Now().Add(time.Second)
	for {
		opps, execs := store.counts()
		if opps == 1 && execs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("writes did not land in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats, err := rec.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalOpportunities != 1 || stats.TotalExecutions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalProfit != 42 {
		t.Errorf("total profit = %v, want 42", stats.TotalProfit)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("success rate = %v, want 100", stats.SuccessRate)
	}
}

func TestRecorderCloseIdempotent(t *testing.T) {
	rec := NewRecorder(&memStore{}, testLogger())
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
}
