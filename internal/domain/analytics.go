package domain

import (
	"context"
	"time"
)

// OpportunityRecord is one detected opportunity as persisted by analytics.
type OpportunityRecord struct {
	ID            string
	Pair          string
	ProfitPercent float64
	DetectedAt    time.Time
}

// ExecutionRecord is one completed execution as persisted by analytics.
type ExecutionRecord struct {
	ID         string
	Pair       string
	Amount     uint64
	Profit     float64
	TxID       string
	ExecutedAt time.Time
}

// AnalyticsStats summarizes the run history.
type AnalyticsStats struct {
	TotalOpportunities int64
	TotalExecutions    int64
	TotalProfit        float64
	AvgProfit          float64
	SuccessRate        float64 // executions / opportunities * 100
}

// AnalyticsStore persists opportunity and execution history.
type AnalyticsStore interface {
	InsertOpportunity(ctx context.Context, rec OpportunityRecord) error
	InsertExecution(ctx context.Context, rec ExecutionRecord) error
	Stats(ctx context.Context) (AnalyticsStats, error)

	// Age-ranged reads and deletes used by the cold-storage archiver.
	ListOpportunitiesBefore(ctx context.Context, before time.Time) ([]OpportunityRecord, error)
	ListExecutionsBefore(ctx context.Context, before time.Time) ([]ExecutionRecord, error)
	DeleteOpportunitiesBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteExecutionsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Recorder is the fire-and-forget analytics interface consumed by the
// pipeline. Implementations must never block on persistence latency.
type Recorder interface {
	RecordOpportunity(pair Pair, profitPercent float64)
	RecordExecution(pair Pair, amount uint64, profit float64, txID string)
}
