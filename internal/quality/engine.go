// Package quality wires the repair cascade, the placeholder resolver and the scorers into
// a single engine that turns raw generated text into a scored record.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/credit-quality/internal/completeness"
	"github.com/jonathan/credit-quality/internal/consensus"
	"github.com/jonathan/credit-quality/internal/emptiness"
	"github.com/jonathan/credit-quality/internal/jsonrepair"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/metrics"
	"github.com/jonathan/credit-quality/internal/placeholder"
	"github.com/jonathan/credit-quality/internal/prompts"
	"github.com/jonathan/credit-quality/internal/types"
	"github.com/jonathan/credit-quality/internal/validation"
)

// Config configures an Engine. Zero values select the defaults.
type Config struct {
	// Regenerator is called at most once per document when local repair fails.
	// Nil disables escalation.
	Regenerator jsonrepair.Regenerator
	Prompts     *prompts.Store
	// Corpus is read-only after construction.
	Corpus               types.BaselineCorpus
	Strategy             completeness.Strategy
	Weights              *completeness.Weights
	MinAccuracyThreshold *float64
	Sentinel             string
	Logger               *zap.Logger
	Metrics              *metrics.Recorder

	// Test hooks.
	Now   func() time.Time
	NewID func() string
}

// Options are the per-document inputs.
type Options struct {
	// SourceKey selects the consensus baseline; empty means no baseline lookup.
	SourceKey string
	// Schema is only rendered into the regeneration prompt.
	Schema map[string]any
	// ExpectedFields enables the emptiness expected percentage when positive.
	ExpectedFields int
}

// Engine scores generated documents. It holds no per-document state and is safe for
// concurrent use.
type Engine struct {
	repairer  *jsonrepair.Repairer
	resolver  *placeholder.Resolver
	validator *validation.Validator
	matcher   *consensus.Matcher
	scorers   []completeness.Scorer
	primary   completeness.Strategy
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// New builds an Engine. It fails only on invalid scoring configuration.
func New(cfg Config) (*Engine, error) {
	log := logger.OrNop(cfg.Logger)

	strategy := cfg.Strategy
	if strategy == "" {
		strategy = completeness.StrategySectionBalanced
	}
	if _, err := completeness.ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	weights := completeness.DefaultWeights()
	if cfg.Weights != nil {
		weights = *cfg.Weights
	}

	// The primary strategy is scored first so it leads the report.
	order := []completeness.Strategy{strategy}
	for _, s := range completeness.Strategies {
		if s != strategy {
			order = append(order, s)
		}
	}
	scorers := make([]completeness.Scorer, 0, len(order))
	for _, s := range order {
		scorer, err := completeness.NewScorer(s, weights)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s scorer: %w", s, err)
		}
		scorers = append(scorers, scorer)
	}

	threshold := completeness.DefaultMinAccuracyThreshold
	if cfg.MinAccuracyThreshold != nil {
		threshold = *cfg.MinAccuracyThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("accuracy threshold %.2f outside [0, 100]", threshold)
	}

	resolver := placeholder.New(cfg.Sentinel)
	if cfg.NewID != nil {
		resolver.NewID = cfg.NewID
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		repairer: jsonrepair.New(jsonrepair.Options{
			Regenerator: cfg.Regenerator,
			Prompts:     cfg.Prompts,
			Sentinel:    cfg.Sentinel,
			Logger:      log,
		}),
		resolver:  resolver,
		validator: validation.New(),
		matcher:   consensus.NewMatcher(cfg.Corpus, log),
		scorers:   scorers,
		primary:   strategy,
		threshold: threshold,
		logger:    log,
		metrics:   cfg.Metrics,
		now:       now,
	}, nil
}

// Threshold returns the accuracy pass mark in percent.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Process repairs raw, resolves placeholders and scores the result. The only error it
// returns is the cancellation of ctx during escalation; unrecoverable text degrades to an
// empty record scored at zero.
func (e *Engine) Process(ctx context.Context, raw string, opts Options) (*types.QualityReport, error) {
	start := e.now()

	repaired, err := e.repairer.Repair(ctx, raw, opts.Schema)
	if err != nil {
		return nil, err
	}

	value := e.resolver.Resolve(repaired.Value)
	report := e.score(value, opts)

	meta := report.Metadata
	meta.Repair = repaired.Info()
	meta.TokenUsage = repaired.Usage
	if repaired.Degraded {
		meta.Accuracy = degradedScore()
		meta.MeetsThreshold = completeness.MeetsThreshold(meta.Accuracy.Score, e.threshold)
	}

	e.metrics.ObserveRepair(meta.Repair)
	e.finish(report, start)
	return report, nil
}

// Score scores an already parsed value, skipping repair. Placeholders are still resolved.
func (e *Engine) Score(value any, opts Options) *types.QualityReport {
	start := e.now()
	report := e.score(e.resolver.Resolve(value), opts)
	e.finish(report, start)
	return report
}

func (e *Engine) score(value any, opts Options) *types.QualityReport {
	extraction, err := types.DecodeExtraction(value)
	if err != nil {
		e.logger.Warn("payload could not be typed", zap.Error(err))
		extraction = &types.ExtractionResult{Shape: types.ShapeUnknown}
	}

	var (
		structural types.StructuralResult
		empty      types.EmptinessResult
		agreement  types.ConsensusScore
		scores     []types.AccuracyScore
		cvPresent  = types.HasCVSections(value)
	)

	// The scorers are pure and write to disjoint results.
	var g errgroup.Group
	g.Go(func() error {
		structural = e.validator.Validate(extraction)
		return nil
	})
	g.Go(func() error {
		if opts.ExpectedFields > 0 {
			empty = emptiness.MeasureExpected(value, opts.ExpectedFields)
		} else {
			empty = emptiness.Measure(value)
		}
		return nil
	})
	g.Go(func() error {
		agreement = e.matcher.Evaluate(extraction, opts.SourceKey)
		return nil
	})
	if cvPresent {
		g.Go(func() error {
			cv, err := types.DecodeCV(value)
			if err != nil {
				return err
			}
			out := make([]types.AccuracyScore, len(e.scorers))
			for i, scorer := range e.scorers {
				out[i] = scorer.Score(cv)
			}
			scores = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn("CV sections could not be decoded", zap.Error(err))
		cvPresent = false
	}

	meta := &types.Metadata{
		ReportID:   uuid.NewString(),
		SourceKey:  opts.SourceKey,
		Structural: &structural,
		Emptiness:  &empty,
		Consensus:  &agreement,
	}
	if cvPresent && len(scores) == len(e.scorers) {
		meta.Completeness = make(map[string]types.AccuracyScore, len(scores))
		for i, scorer := range e.scorers {
			meta.Completeness[string(scorer.Strategy())] = scores[i]
		}
	}

	meta.Accuracy = e.selectAccuracy(meta, extraction)
	meta.MeetsThreshold = completeness.MeetsThreshold(meta.Accuracy.Score, e.threshold)

	extraction.Metadata = meta
	return &types.QualityReport{Value: value, Extraction: extraction, Metadata: meta}
}

func (e *Engine) finish(report *types.QualityReport, start time.Time) {
	now := e.now()
	report.Metadata.ScoredAt = &now

	e.metrics.ObserveReport(report.Metadata)
	e.metrics.ObserveDuration(now.Sub(start))

	tier := ""
	if report.Metadata.Repair != nil {
		tier = report.Metadata.Repair.Tier
	}
	e.logger.Info("document scored",
		zap.String(logger.FieldReportID, report.Metadata.ReportID),
		zap.String(logger.FieldSourceKey, report.Metadata.SourceKey),
		zap.String(logger.FieldTier, tier),
		zap.String(logger.FieldStrategy, string(e.primary)),
		zap.Float64("accuracy", report.Metadata.Accuracy.Score),
		zap.Bool("meets_threshold", report.Metadata.MeetsThreshold),
	)
}
