package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/credit-quality/internal/types"
)

// SaveBaseline inserts or replaces the baseline stored under sourceKey.
func (db *DB) SaveBaseline(ctx context.Context, sourceKey string, baseline types.ConsensusBaseline) error {
	content, err := encodeBaseline(sourceKey, baseline)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO baselines (source_key, content, overall_confidence)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_key) DO UPDATE SET content = $2, overall_confidence = $3, updated_at = NOW()`,
		sourceKey, content, baseline.Confidence.Overall,
	)
	if err != nil {
		return fmt.Errorf("failed to save baseline %s: %w", sourceKey, err)
	}
	return nil
}

// SaveCorpus upserts every baseline of corpus in one transaction and returns the count written.
func (db *DB) SaveCorpus(ctx context.Context, corpus types.BaselineCorpus) (int, error) {
	if len(corpus) == 0 {
		return 0, nil
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin corpus transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, key := range sortedKeys(corpus) {
		content, err := encodeBaseline(key, corpus[key])
		if err != nil {
			return 0, err
		}
		batch.Queue(
			`INSERT INTO baselines (source_key, content, overall_confidence)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (source_key) DO UPDATE SET content = $2, overall_confidence = $3, updated_at = NOW()`,
			key, content, corpus[key].Confidence.Overall,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to save baseline: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close baseline batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit corpus: %w", err)
	}
	return len(corpus), nil
}

// GetBaseline retrieves one baseline. It returns nil when none is stored under sourceKey.
func (db *DB) GetBaseline(ctx context.Context, sourceKey string) (*types.ConsensusBaseline, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM baselines WHERE source_key = $1`,
		sourceKey,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get baseline %s: %w", sourceKey, err)
	}

	baseline, err := decodeBaseline(sourceKey, content)
	if err != nil {
		return nil, err
	}
	return &baseline, nil
}

// LoadBaselines reads every stored baseline into a corpus.
func (db *DB) LoadBaselines(ctx context.Context) (types.BaselineCorpus, error) {
	rows, err := db.pool.Query(ctx, `SELECT source_key, content FROM baselines`)
	if err != nil {
		return nil, fmt.Errorf("failed to load baselines: %w", err)
	}
	defer rows.Close()

	corpus := types.BaselineCorpus{}
	for rows.Next() {
		var (
			key     string
			content []byte
		)
		if err := rows.Scan(&key, &content); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		baseline, err := decodeBaseline(key, content)
		if err != nil {
			return nil, err
		}
		corpus[key] = baseline
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate baselines: %w", err)
	}
	return corpus, nil
}

// ListBaselines returns stored baseline keys with their overall confidence.
func (db *DB) ListBaselines(ctx context.Context) ([]BaselineSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT source_key, overall_confidence, updated_at FROM baselines ORDER BY source_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var summaries []BaselineSummary
	for rows.Next() {
		var s BaselineSummary
		if err := rows.Scan(&s.SourceKey, &s.OverallConfidence, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan baseline summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteBaseline removes a stored baseline.
func (db *DB) DeleteBaseline(ctx context.Context, sourceKey string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM baselines WHERE source_key = $1`, sourceKey)
	if err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("baseline not found: %s", sourceKey)
	}
	return nil
}

func encodeBaseline(sourceKey string, baseline types.ConsensusBaseline) ([]byte, error) {
	if sourceKey == "" {
		return nil, fmt.Errorf("baseline source key is empty")
	}
	content, err := json.Marshal(baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline %s: %w", sourceKey, err)
	}
	return content, nil
}

func decodeBaseline(sourceKey string, content []byte) (types.ConsensusBaseline, error) {
	var baseline types.ConsensusBaseline
	if err := json.Unmarshal(content, &baseline); err != nil {
		return types.ConsensusBaseline{}, fmt.Errorf("failed to unmarshal baseline %s: %w", sourceKey, err)
	}
	return baseline, nil
}

func sortedKeys(corpus types.BaselineCorpus) []string {
	keys := make([]string, 0, len(corpus))
	for k := range corpus {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
