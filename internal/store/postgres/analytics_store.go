package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// AnalyticsStore implements domain.AnalyticsStore using PostgreSQL.
type AnalyticsStore struct {
	pool *pgxpool.Pool
}

// NewAnalyticsStore creates an AnalyticsStore backed by the given pool.
func NewAnalyticsStore(pool *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{pool: pool}
}

// InsertOpportunity stores one detected opportunity.
func (s *AnalyticsStore) InsertOpportunity(ctx context.Context, rec domain.OpportunityRecord) error {
	const query = `
		INSERT INTO opportunities (id, pair, profit_percent, detected_at)
		VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, rec.ID, rec.Pair, rec.ProfitPercent, rec.DetectedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", rec.ID, err)
	}
	return nil
}

// InsertExecution stores one completed execution.
func (s *AnalyticsStore) InsertExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	const query = `
		INSERT INTO executions (id, pair, amount, profit, tx_id, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, rec.ID, rec.Pair, int64(rec.Amount), rec.Profit, rec.TxID, rec.ExecutedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert execution %s: %w", rec.ID, err)
	}
	return nil
}

// Stats aggregates run history across both tables.
func (s *AnalyticsStore) Stats(ctx context.Context) (domain.AnalyticsStats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM opportunities),
			(SELECT COUNT(*) FROM executions),
			(SELECT COALESCE(SUM(profit), 0) FROM executions),
			(SELECT COALESCE(AVG(profit), 0) FROM executions)`

	var stats domain.AnalyticsStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalOpportunities,
		&stats.TotalExecutions,
		&stats.TotalProfit,
		&stats.AvgProfit,
	)
	if err != nil {
		return domain.AnalyticsStats{}, fmt.Errorf("postgres: stats: %w", err)
	}
	if stats.TotalOpportunities > 0 {
		stats.SuccessRate = float64(stats.TotalExecutions) / float64(stats.TotalOpportunities) * 100
	}
	return stats, nil
}

// ListOpportunitiesBefore returns opportunities detected before the cutoff,
// oldest first.
func (s *AnalyticsStore) ListOpportunitiesBefore(ctx context.Context, before time.Time) ([]domain.OpportunityRecord, error) {
	const query = `
		SELECT id, pair, profit_percent, detected_at
		FROM opportunities
		WHERE detected_at < $1
		ORDER BY detected_at`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before %s: %w", before, err)
	}
	defer rows.Close()

	var recs []domain.OpportunityRecord
	for rows.Next() {
		var rec domain.OpportunityRecord
		if err := rows.Scan(&rec.ID, &rec.Pair, &rec.ProfitPercent, &rec.DetectedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	return recs, nil
}

// ListExecutionsBefore returns executions completed before the cutoff,
// oldest first.
func (s *AnalyticsStore) ListExecutionsBefore(ctx context.Context, before time.Time) ([]domain.ExecutionRecord, error) {
	const query = `
		SELECT id, pair, amount, profit, tx_id, executed_at
		FROM executions
		WHERE executed_at < $1
		ORDER BY executed_at`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions before %s: %w", before, err)
	}
	defer rows.Close()

	var recs []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var amount int64
		if err := rows.Scan(&rec.ID, &rec.Pair, &amount, &rec.Profit, &rec.TxID, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		rec.Amount = uint64(amount)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	return recs, nil
}

// DeleteOpportunitiesBefore removes opportunities older than the cutoff and
// reports how many were deleted.
func (s *AnalyticsStore) DeleteOpportunitiesBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExecutionsBefore removes executions older than the cutoff and
// reports how many were deleted.
func (s *AnalyticsStore) DeleteExecutionsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executions WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete executions before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.AnalyticsStore = (*AnalyticsStore)(nil)
