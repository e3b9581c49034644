package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// ArchiveImpl implements domain.Archiver by moving aged analytics rows to
// object storage. Each run queries rows older than the cutoff, uploads them
// as a JSONL object, and only then deletes them from the database. A failed
// upload leaves the rows in place for the next run.
type ArchiveImpl struct {
	writer domain.BlobWriter
	store  domain.AnalyticsStore
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an ArchiveImpl over the given store and writer.
func NewArchiver(writer domain.BlobWriter, store domain.AnalyticsStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		store:  store,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}
}

// ArchiveOpportunities moves opportunities detected before the cutoff to
// cold storage and returns how many were archived.
func (a *ArchiveImpl) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.store.ListOpportunitiesBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}
	path := archivePath("opportunities", a.now())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.store.DeleteOpportunitiesBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities delete: %w", err)
	}
	a.logger.Info("opportunities archived", "path", path, "archived", len(recs), "deleted", deleted)
	return int64(len(recs)), nil
}

// ArchiveExecutions moves executions completed before the cutoff to cold
// storage and returns how many were archived.
func (a *ArchiveImpl) ArchiveExecutions(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.store.ListExecutionsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions marshal: %w", err)
	}
	path := archivePath("executions", a.now())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive executions upload: %w", err)
	}

	deleted, err := a.store.DeleteExecutionsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions delete: %w", err)
	}
	a.logger.Info("executions archived", "path", path, "archived", len(recs), "deleted", deleted)
	return int64(len(recs)), nil
}

// archivePath builds the object key: bucketed by month for listing, keyed by
// the run timestamp so repeated runs never overwrite an earlier archive.
func archivePath(kind string, runAt time.Time) string {
	ts := runAt.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, ts.Format("2006-01"), ts.Format("20060102T150405Z"))
}

// marshalJSONL serializes a slice as newline-delimited JSON.
func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
