package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/config"
	"github.com/jonathan/credit-quality/internal/consensus"
	"github.com/jonathan/credit-quality/internal/db"
	"github.com/jonathan/credit-quality/internal/jsonrepair"
	"github.com/jonathan/credit-quality/internal/llm"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/metrics"
	"github.com/jonathan/credit-quality/internal/quality"
	"github.com/jonathan/credit-quality/internal/schemas"
	"github.com/jonathan/credit-quality/internal/types"
)

// newRegenerator returns the escalation hook, or nil when escalation is off or no API key
// is configured. The returned closer is never nil.
func newRegenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (jsonrepair.Regenerator, func(), error) {
	noop := func() {}
	log = logger.OrNop(log)
	if !cfg.EscalationEnabled {
		return nil, noop, nil
	}
	if cfg.APIKey == "" {
		log.Debug("no API key configured, escalation disabled")
		return nil, noop, nil
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig().WithModels(cfg.Model), cfg.APIKey)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create LLM client: %w", err)
	}
	closer := func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	breaker := llm.NewBreakerClient(client, llm.DefaultBreakerConfig(), log)
	return jsonrepair.ClientRegenerator{Client: breaker}, closer, nil
}

// loadCorpus reads the baseline file and, when a database is given, overlays the stored
// baselines on top of it.
func loadCorpus(ctx context.Context, cfg *config.Config, database *db.DB) (types.BaselineCorpus, error) {
	corpus, err := consensus.LoadCorpus(cfg.BaselinePath)
	if err != nil {
		return nil, err
	}
	if database == nil {
		return corpus, nil
	}

	stored, err := database.LoadBaselines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored baselines: %w", err)
	}
	for key, baseline := range stored {
		corpus[key] = baseline
	}
	return corpus, nil
}

// loadSchema reads the configured regeneration schema, if any.
func loadSchema(cfg *config.Config) (map[string]any, error) {
	if cfg.SchemaPath == "" {
		return nil, nil
	}
	return schemas.LoadSchema(cfg.SchemaPath)
}

// connectDB opens the database when a URL is configured. A nil DB means persistence is off.
func connectDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

type engineDeps struct {
	corpus   types.BaselineCorpus
	regen    jsonrepair.Regenerator
	recorder *metrics.Recorder
}

func newEngine(cfg *config.Config, log *zap.Logger, deps engineDeps) (*quality.Engine, error) {
	weights := cfg.Weights()
	threshold := cfg.MinAccuracyThreshold
	return quality.New(quality.Config{
		Regenerator:          deps.regen,
		Corpus:               deps.corpus,
		Strategy:             cfg.ScoringStrategy(),
		Weights:              &weights,
		MinAccuracyThreshold: &threshold,
		Sentinel:             cfg.PlaceholderSentinel,
		Logger:               log,
		Metrics:              deps.recorder,
	})
}

// readInput reads a file, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	return string(data), nil
}

// sourceKeyFor derives the baseline key for path: the override if set, else the file name
// without its extension. Stdin has no implicit key.
func sourceKeyFor(path, override string) string {
	if override != "" {
		return override
	}
	if path == "-" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// writeJSONFile writes v to path, or to w when path is empty.
func writeJSONFile(w io.Writer, path string, v any) error {
	if path == "" {
		return writeJSON(w, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer f.Close()
	return writeJSON(f, v)
}
