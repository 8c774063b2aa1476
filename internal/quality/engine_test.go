package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/credit-quality/internal/completeness"
	"github.com/jonathan/credit-quality/internal/consensus"
	"github.com/jonathan/credit-quality/internal/jsonrepair"
	"github.com/jonathan/credit-quality/internal/llm"
	"github.com/jonathan/credit-quality/internal/metrics"
	"github.com/jonathan/credit-quality/internal/placeholder"
	"github.com/jonathan/credit-quality/internal/types"
)

const hierarchicalDoc = `{
	"resume": [
		{"category": "Film", "categoryId": "{{uuid}}", "credits": [
			{"id": "{{uuid}}", "year": 2019, "title": "Hamlet", "role": "Ghost", "director": "K. Branagh", "attachedMedia": []}
		]},
		{"category": "Theatre", "categoryId": "{{uuid}}", "credits": [
			{"id": "{{uuid}}", "year": 2021, "title": "The Seagull", "role": "Konstantin", "attachedMedia": []}
		]}
	],
	"resumeShowYears": true
}`

const cvDoc = `{
	"personalInfo": {"name": "Ada Lovelace", "email": "ada@example.com", "phone": "555-0100"},
	"education": [{"institution": "University of London", "degree": "BSc", "endDate": "1835"}],
	"experience": [{"company": "Analytical Engines Ltd", "position": "Programmer", "startDate": "1842", "endDate": "1843", "description": ["Wrote the first program"]}],
	"skills": ["mathematics", "poetry", "translation"]
}`

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	if cfg.NewID == nil {
		cfg.NewID = sequentialIDs()
	}
	engine, err := New(cfg)
	require.NoError(t, err)
	return engine
}

func baselineFor(t *testing.T, doc string) types.ConsensusBaseline {
	t.Helper()
	var extraction types.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(doc), &extraction))
	return types.ConsensusBaseline{
		Consensus:  extraction,
		Confidence: types.BaselineConfidence{Overall: 0.9},
	}
}

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	tooHigh := 150.0
	badWeights := completeness.DefaultWeights().WithOverrides(map[string]float64{"personalInfo": 1, "education": 1, "experience": 0, "skills": 0}, nil)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown strategy", cfg: Config{Strategy: "vibes"}},
		{name: "threshold above 100", cfg: Config{MinAccuracyThreshold: &tooHigh}},
		{name: "section weights off", cfg: Config{Weights: &badWeights}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestProcess_HierarchicalWithoutBaseline(t *testing.T) {
	engine := newTestEngine(t, Config{})

	report, err := engine.Process(context.Background(), hierarchicalDoc, Options{})
	require.NoError(t, err)
	meta := report.Metadata

	assert.Equal(t, jsonrepair.TierDirect, meta.Repair.Tier)
	assert.False(t, meta.Repair.Degraded)
	assert.Equal(t, 0, placeholder.Count(report.Value, placeholder.DefaultSentinel))

	assert.Equal(t, types.ShapeHierarchical, report.Extraction.Shape)
	assert.Same(t, meta, report.Extraction.Metadata)
	assert.Equal(t, 100.0, meta.Structural.StructuralScore)
	assert.Equal(t, 100.0, meta.Structural.VocabularyScore)
	assert.Equal(t, types.ConsensusSourceNone, meta.Consensus.ConsensusSource)
	assert.Nil(t, meta.Completeness)

	want := meta.Structural.StructuralScore*blendStructuralWeight + meta.Emptiness.Percentage*blendEmptinessWeight
	assert.InDelta(t, want, meta.Accuracy.Score, 0.01)
	assert.Equal(t, meta.Emptiness.Percentage, meta.Accuracy.Completeness)
	assert.InDelta(t, meta.Accuracy.Score, meta.Accuracy.Confidence, 0.01)
	assert.Empty(t, meta.Accuracy.MissingFields)
	assert.True(t, meta.MeetsThreshold)

	require.NotNil(t, meta.ScoredAt)
	assert.Equal(t, fixedNow, *meta.ScoredAt)
	assert.NotEmpty(t, meta.ReportID)
}

func TestProcess_RepairsAndReportsMissingCreditFields(t *testing.T) {
	engine := newTestEngine(t, Config{})

	raw := "Here you go:\n```json\n{credits: [{title: 'Hamlet', type: 'Film',}, {title: 'Cats'},]}\n```"
	report, err := engine.Process(context.Background(), raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.ShapeFlat, report.Extraction.Shape)
	assert.NotEqual(t, jsonrepair.TierDirect, report.Metadata.Repair.Tier)
	assert.Equal(t, []string{"credits[0].role", "credits[1].role"}, report.Metadata.Accuracy.MissingFields)
	assert.Equal(t, 0.0, report.Metadata.Structural.StructuralScore)
}

func TestProcess_ConsensusTakesPrecedence(t *testing.T) {
	corpus := types.BaselineCorpus{"doc-1": baselineFor(t, hierarchicalDoc)}
	engine := newTestEngine(t, Config{Corpus: corpus})

	report, err := engine.Process(context.Background(), hierarchicalDoc, Options{SourceKey: "doc-1"})
	require.NoError(t, err)
	meta := report.Metadata

	assert.Equal(t, consensus.SourceBaseline, meta.Consensus.ConsensusSource)
	assert.Equal(t, meta.Consensus.AccuracyScore, meta.Accuracy)
	assert.Equal(t, 100.0, meta.Accuracy.Score)
	assert.Equal(t, "doc-1", meta.SourceKey)
}

func TestProcess_CVReportsBothStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy completeness.Strategy
	}{
		{name: "section balanced primary", strategy: completeness.StrategySectionBalanced},
		{name: "weighted field primary", strategy: completeness.StrategyWeightedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, Config{Strategy: tt.strategy})

			report, err := engine.Process(context.Background(), cvDoc, Options{})
			require.NoError(t, err)
			meta := report.Metadata

			require.Len(t, meta.Completeness, 2)
			assert.Contains(t, meta.Completeness, string(completeness.StrategySectionBalanced))
			assert.Contains(t, meta.Completeness, string(completeness.StrategyWeightedField))
			assert.Equal(t, meta.Completeness[string(tt.strategy)], meta.Accuracy)
			assert.Equal(t, types.ShapeUnknown, report.Extraction.Shape)
			assert.Contains(t, report.Enriched(), "personalInfo")
		})
	}
}

func TestProcess_DegradesToZero(t *testing.T) {
	engine := newTestEngine(t, Config{})

	report, err := engine.Process(context.Background(), "the model refused", Options{})
	require.NoError(t, err)
	meta := report.Metadata

	assert.True(t, meta.Repair.Degraded)
	assert.Equal(t, jsonrepair.TierDegraded, meta.Repair.Tier)
	assert.Equal(t, 0.0, meta.Accuracy.Score)
	assert.Equal(t, 0.0, meta.Accuracy.Confidence)
	assert.False(t, meta.MeetsThreshold)
	assert.Equal(t, types.TokenUsage{}, meta.TokenUsage)
	assert.Equal(t, jsonrepair.EmptyRecord(), report.Value)
}

func TestProcess_EscalationCarriesUsage(t *testing.T) {
	var prompts []string
	regen := jsonrepair.RegeneratorFunc(func(_ context.Context, prompt string) (*llm.Response, error) {
		prompts = append(prompts, prompt)
		return &llm.Response{
			Text:  `{"credits": [{"id": "{{uuid}}", "title": "Hamlet", "role": "Ghost"}]}`,
			Usage: types.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}, nil
	})
	engine := newTestEngine(t, Config{Regenerator: regen})

	schema := map[string]any{"type": "object"}
	report, err := engine.Process(context.Background(), "no json at all", Options{Schema: schema})
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], `"type": "object"`)
	assert.True(t, report.Metadata.Repair.Regenerated)
	assert.Equal(t, 120, report.Metadata.TokenUsage.TotalTokens)
	assert.Equal(t, 100.0, report.Metadata.Structural.StructuralScore)

	credits := report.Value.(map[string]any)["credits"].([]any)
	assert.Equal(t, "id-1", credits[0].(map[string]any)["id"])
}

func TestProcess_CancellationDuringEscalation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	regen := jsonrepair.RegeneratorFunc(func(ctx context.Context, _ string) (*llm.Response, error) {
		cancel()
		return nil, ctx.Err()
	})
	engine := newTestEngine(t, Config{Regenerator: regen})

	report, err := engine.Process(ctx, "{{{", Options{})
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProcess_EmptinessExpectedFields(t *testing.T) {
	engine := newTestEngine(t, Config{})

	report, err := engine.Process(context.Background(), `{"credits": [{"title": "Hamlet"}]}`, Options{ExpectedFields: 4})
	require.NoError(t, err)

	require.NotNil(t, report.Metadata.Emptiness.ExpectedPercentage)
	assert.Equal(t, 25.0, *report.Metadata.Emptiness.ExpectedPercentage)
}

func TestProcess_RecordsMetrics(t *testing.T) {
	recorder := metrics.NewRecorder(nil)
	engine := newTestEngine(t, Config{Metrics: recorder})

	_, err := engine.Process(context.Background(), hierarchicalDoc, Options{})
	require.NoError(t, err)
	_, err = engine.Process(context.Background(), "garbage", Options{})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(recorder.Registry(), "credit_quality_repair_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per tier")

	count, err = testutil.GatherAndCount(recorder.Registry(), "credit_quality_repair_degraded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScore_SkipsRepair(t *testing.T) {
	engine := newTestEngine(t, Config{})

	var value any
	require.NoError(t, json.Unmarshal([]byte(hierarchicalDoc), &value))

	report := engine.Score(value, Options{})
	assert.Nil(t, report.Metadata.Repair)
	assert.Equal(t, types.ShapeHierarchical, report.Extraction.Shape)
	assert.Equal(t, 4, placeholder.Count(value, placeholder.DefaultSentinel), "input tree is not mutated")
}

func TestReport_EnrichedJSON(t *testing.T) {
	engine := newTestEngine(t, Config{})

	report, err := engine.Process(context.Background(), hierarchicalDoc, Options{SourceKey: "doc-9"})
	require.NoError(t, err)

	data, err := json.Marshal(report.Enriched())
	require.NoError(t, err)

	var decoded types.ExtractionResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Metadata)
	assert.Equal(t, report.Metadata.ReportID, decoded.Metadata.ReportID)
	assert.Equal(t, "doc-9", decoded.Metadata.SourceKey)
	assert.Len(t, decoded.Resume, 2)
}

func TestProcessBatch_PreservesOrder(t *testing.T) {
	engine := newTestEngine(t, Config{})

	inputs := []Input{
		{Raw: hierarchicalDoc, Options: Options{SourceKey: "a"}},
		{Raw: "not json", Options: Options{SourceKey: "b"}},
		{Raw: cvDoc, Options: Options{SourceKey: "c"}},
	}
	reports, err := engine.ProcessBatch(context.Background(), inputs, 2)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for i, report := range reports {
		assert.Equal(t, inputs[i].Options.SourceKey, report.Metadata.SourceKey)
	}
	assert.True(t, reports[1].Metadata.Repair.Degraded)
}

func TestProcessBatch_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	regen := jsonrepair.RegeneratorFunc(func(ctx context.Context, _ string) (*llm.Response, error) {
		return nil, ctx.Err()
	})
	engine := newTestEngine(t, Config{Regenerator: regen})

	_, err := engine.ProcessBatch(ctx, []Input{{Raw: "x"}, {Raw: "y"}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlend_UnknownShape(t *testing.T) {
	score := blend(types.StructuralResult{}, types.EmptinessResult{Percentage: 50}, &types.ExtractionResult{Shape: types.ShapeUnknown})

	assert.Equal(t, 20.0, score.Score)
	assert.Equal(t, 10.0, score.Confidence)
	assert.Equal(t, []string{"resume"}, score.MissingFields)
}
