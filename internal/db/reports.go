package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/credit-quality/internal/types"
)

// NewReport maps scoring metadata and the enriched payload to a report row.
// A missing or malformed report id gets a fresh one.
func NewReport(meta *types.Metadata, enriched any) (*Report, error) {
	if meta == nil {
		return nil, fmt.Errorf("report metadata is nil")
	}
	content, err := json.Marshal(enriched)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	id, err := uuid.Parse(meta.ReportID)
	if err != nil {
		id = uuid.New()
	}

	report := &Report{
		ID:             id,
		SourceKey:      meta.SourceKey,
		Accuracy:       meta.Accuracy.Score,
		MeetsThreshold: meta.MeetsThreshold,
		Content:        content,
	}
	if meta.Repair != nil {
		report.RepairTier = meta.Repair.Tier
		report.Degraded = meta.Repair.Degraded
	}
	if meta.ScoredAt != nil {
		report.CreatedAt = *meta.ScoredAt
	}
	return report, nil
}

// SaveReport stores a report, replacing any row with the same id.
func (db *DB) SaveReport(ctx context.Context, report *Report) error {
	var sourceKey *string
	if report.SourceKey != "" {
		sourceKey = &report.SourceKey
	}
	var repairTier *string
	if report.RepairTier != "" {
		repairTier = &report.RepairTier
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO quality_reports (id, source_key, accuracy, meets_threshold, repair_tier, degraded, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		 ON CONFLICT (id) DO UPDATE SET accuracy = $3, meets_threshold = $4, repair_tier = $5, degraded = $6, content = $7`,
		report.ID, sourceKey, report.Accuracy, report.MeetsThreshold, repairTier, report.Degraded, report.Content, nullableTime(report),
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}
	return nil
}

// GetReport retrieves a report by id. It returns nil when not found.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var (
		report     Report
		sourceKey  *string
		repairTier *string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, source_key, accuracy, meets_threshold, repair_tier, degraded, content, created_at
		 FROM quality_reports WHERE id = $1`,
		id,
	).Scan(&report.ID, &sourceKey, &report.Accuracy, &report.MeetsThreshold, &repairTier, &report.Degraded, &report.Content, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if sourceKey != nil {
		report.SourceKey = *sourceKey
	}
	if repairTier != nil {
		report.RepairTier = *repairTier
	}
	return &report, nil
}

// ListReports retrieves recent reports with optional filters. Content is not loaded.
func (db *DB) ListReports(ctx context.Context, filters ReportFilters) ([]Report, error) {
	query, args := buildListReportsQuery(filters)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var (
			report     Report
			sourceKey  *string
			repairTier *string
		)
		if err := rows.Scan(&report.ID, &sourceKey, &report.Accuracy, &report.MeetsThreshold, &repairTier, &report.Degraded, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if sourceKey != nil {
			report.SourceKey = *sourceKey
		}
		if repairTier != nil {
			report.RepairTier = *repairTier
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func buildListReportsQuery(filters ReportFilters) (string, []any) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT id, source_key, accuracy, meets_threshold, repair_tier, degraded, created_at
		FROM quality_reports WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.SourceKey != "" {
		query += fmt.Sprintf(" AND source_key = $%d", argNum)
		args = append(args, filters.SourceKey)
		argNum++
	}
	if filters.OnlyFailing {
		query += " AND meets_threshold = FALSE"
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)
	return query, args
}

func nullableTime(report *Report) any {
	if report.CreatedAt.IsZero() {
		return nil
	}
	return report.CreatedAt
}
