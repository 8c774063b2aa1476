package jsonrepair

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/credit-quality/internal/llm"
	"github.com/jonathan/credit-quality/internal/types"
)

// mockClient implements llm.Client with a swappable generate function.
type mockClient struct {
	generateFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Response, error)
	prompts      []string
	jsonCalls    int
}

func (m *mockClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Response, error) {
	m.prompts = append(m.prompts, prompt)
	return m.generateFunc(ctx, prompt, tier)
}

func (m *mockClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Response, error) {
	m.jsonCalls++
	return m.GenerateContent(ctx, prompt, tier)
}

func (m *mockClient) GetModel(_ llm.ModelTier) string { return "mock" }

func (m *mockClient) Close() error { return nil }

func TestRepairLocal_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTier string
		want     string
	}{
		{
			name:     "valid JSON short-circuits",
			raw:      `{"credits": [{"title": "Hamlet"}]}`,
			wantTier: TierDirect,
			want:     `{"credits": [{"title": "Hamlet"}]}`,
		},
		{
			name:     "markdown fence with prose",
			raw:      "Here is the result:\n```json\n{\"title\": \"Hamlet\"}\n```\nLet me know!",
			wantTier: TierMarkdown,
			want:     `{"title": "Hamlet"}`,
		},
		{
			name:     "unquoted keys, single quotes and trailing comma",
			raw:      `{title: 'Hamlet', role: 'Ghost',}`,
			wantTier: TierNormalize,
			want:     `{"title":"Hamlet","role":"Ghost"}`,
		},
		{
			name:     "adjacent objects and surrounding prose",
			raw:      "Sure thing.\n\n[{\"title\": \"A\"} {\"title\": \"B\"}]\n\nDone.",
			wantTier: TierNormalize,
			want:     `[{"title": "A"}, {"title": "B"}]`,
		},
		{
			name:     "empty array followed by key and truncated tail",
			raw:      `{"resume": [{"category": "Film", "credits": [{"title": "A", "attachedMedia": [] "role": "B"}`,
			wantTier: TierBalance,
			want:     `{"resume": [{"category": "Film", "credits": [{"title": "A", "attachedMedia": [], "role": "B"}]}]}`,
		},
		{
			name:     "missing commas between lines",
			raw:      "{\n  \"title\": \"A\"\n  \"year\": 2019\n  \"role\": \"B\"\n}",
			wantTier: TierBalance,
			want:     `{"title": "A", "year": 2019, "role": "B"}`,
		},
		{
			name:     "stray closer after object",
			raw:      "{\"title\": \"A\"}\n]",
			wantTier: TierMinimal,
			want:     `{"title": "A"}`,
		},
	}

	repairer := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, tier, attempts, err := repairer.RepairLocal(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, tier)
			assert.NotEmpty(t, attempts)

			got, err := json.Marshal(value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestRepairLocal_IdempotentOnValidJSON(t *testing.T) {
	raw := `{"resume": [{"category": "Theatre", "credits": []}], "resumeShowYears": true}`
	repairer := New(Options{})

	value, tier, attempts, err := repairer.RepairLocal(raw)
	require.NoError(t, err)
	assert.Equal(t, TierDirect, tier)
	require.Len(t, attempts, 1)

	var want any
	require.NoError(t, json.Unmarshal([]byte(raw), &want))
	assert.Equal(t, want, value)

	again, err := json.Marshal(value)
	require.NoError(t, err)
	second, tier, _, err := repairer.RepairLocal(string(again))
	require.NoError(t, err)
	assert.Equal(t, TierDirect, tier)
	assert.Equal(t, want, second)
}

func TestRepairLocal_Unrecoverable(t *testing.T) {
	repairer := New(Options{})

	_, _, attempts, err := repairer.RepairLocal("the model refused to answer")
	require.Error(t, err)

	var unrecoverable *UnrecoverableError
	require.True(t, errors.As(err, &unrecoverable))
	assert.Equal(t, attempts, unrecoverable.Attempts)
	assert.Len(t, attempts, len(DefaultTiers()))

	var skipped []string
	for _, a := range attempts {
		if a.Skipped {
			skipped = append(skipped, a.Tier)
		}
	}
	assert.Equal(t, []string{TierMarkdown, TierMinimal}, skipped)
}

func TestRepair_EscalatesOnceAndRecovers(t *testing.T) {
	client := &mockClient{
		generateFunc: func(_ context.Context, _ string, tier llm.ModelTier) (*llm.Response, error) {
			assert.Equal(t, llm.TierStandard, tier)
			return &llm.Response{
				Text:  "```json\n{\"credits\": [{\"title\": \"Hamlet\", \"id\": \"{{uuid}}\"}]}\n```",
				Usage: types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		},
	}
	repairer := New(Options{Regenerator: ClientRegenerator{Client: client}})

	result, err := repairer.Repair(context.Background(), "no json here", nil)
	require.NoError(t, err)

	assert.True(t, result.Regenerated)
	assert.False(t, result.Degraded)
	assert.Equal(t, TierMarkdown, result.Tier)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	require.Len(t, client.prompts, 1)
	assert.Equal(t, 1, client.jsonCalls, "regeneration asks for a JSON response")
	assert.Contains(t, client.prompts[0], "no json here")
	assert.Contains(t, client.prompts[0], "{{uuid}}")
	assert.Contains(t, client.prompts[0], "resumeShowYears")

	passTwo := 0
	for _, a := range result.Attempts {
		if a.Pass == 2 {
			passTwo++
		}
	}
	assert.Equal(t, 2, passTwo)

	info := result.Info()
	assert.Equal(t, TierMarkdown, info.Tier)
	assert.True(t, info.Regenerated)
	assert.Len(t, info.Attempts, len(result.Attempts))
}

func TestRepair_DegradesWhenRegenerationFails(t *testing.T) {
	tests := []struct {
		name            string
		generate        func(context.Context, string) (*llm.Response, error)
		wantRegenerated bool
	}{
		{
			name: "generator error",
			generate: func(context.Context, string) (*llm.Response, error) {
				return nil, errors.New("upstream unavailable")
			},
		},
		{
			name: "generator returns garbage again",
			generate: func(context.Context, string) (*llm.Response, error) {
				return &llm.Response{Text: "still not json", Usage: types.TokenUsage{TotalTokens: 9}}, nil
			},
			wantRegenerated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			repairer := New(Options{Regenerator: RegeneratorFunc(tt.generate), Logger: zap.New(core)})

			result, err := repairer.Repair(context.Background(), "{{{", nil)
			require.NoError(t, err)

			assert.True(t, result.Degraded)
			assert.Equal(t, TierDegraded, result.Tier)
			assert.Equal(t, tt.wantRegenerated, result.Regenerated)
			assert.Equal(t, types.TokenUsage{}, result.Usage)
			assert.Equal(t, EmptyRecord(), result.Value)
			assert.Equal(t, 1, logs.FilterMessage("degrading to empty record").Len())
		})
	}
}

func TestRepair_NoRegeneratorDegradesWithoutCall(t *testing.T) {
	repairer := New(Options{})

	result, err := repairer.Repair(context.Background(), "", nil)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.False(t, result.Regenerated)
}

func TestRepair_DegradedRecordDecodes(t *testing.T) {
	record, err := types.DecodeExtraction(EmptyRecord())
	require.NoError(t, err)
	assert.Equal(t, types.ShapeHierarchical, record.Shape)
	assert.Empty(t, record.Resume)
	require.NotNil(t, record.ResumeShowYears)
	assert.False(t, *record.ResumeShowYears)
}

func TestRepair_CancellationPropagates(t *testing.T) {
	t.Run("cancelled before escalation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		repairer := New(Options{Regenerator: RegeneratorFunc(func(context.Context, string) (*llm.Response, error) {
			called = true
			return nil, nil
		})})

		_, err := repairer.Repair(ctx, "not json", nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("cancelled during escalation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		repairer := New(Options{Regenerator: RegeneratorFunc(func(ctx context.Context, _ string) (*llm.Response, error) {
			cancel()
			return nil, ctx.Err()
		})})

		_, err := repairer.Repair(ctx, "not json", nil)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("valid input ignores cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := New(Options{}).Repair(ctx, `{"credits": []}`, nil)
		require.NoError(t, err)
		assert.Equal(t, TierDirect, result.Tier)
	})
}

func TestRepair_CustomTiers(t *testing.T) {
	upper := Tier{Name: "wrap", Apply: func(text string) (string, bool) {
		return `{"value": "` + text + `"}`, true
	}}
	repairer := New(Options{Tiers: []Tier{{Name: TierDirect, Apply: direct}, upper}})

	value, tier, _, err := repairer.RepairLocal("plain")
	require.NoError(t, err)
	assert.Equal(t, "wrap", tier)
	assert.Equal(t, map[string]any{"value": "plain"}, value)
}

func TestBuildRegenerationPrompt(t *testing.T) {
	schema := map[string]any{"type": "object", "required": []any{"credits"}}

	prompt, err := BuildRegenerationPrompt(nil, "{bad", "invalid character 'b'", schema, "<ID>")
	require.NoError(t, err)

	assert.Contains(t, prompt, "invalid character 'b'")
	assert.Contains(t, prompt, `"type": "object"`)
	assert.Contains(t, prompt, "<ID>")
	assert.Contains(t, prompt, "{bad")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildRegenerationPrompt_FallsBackToLayout(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		notWant string
	}{
		{"credits", `{"resume": [{"category": "Film"`, `"resumeShowYears"`, `"personalInfo"`},
		{"cv", `{'personalInfo': {'name': 'Ada'`, `"experience"`, `"resumeShowYears"`},
		{"unknown text", `no idea`, `"resume"`, `"personalInfo"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := BuildRegenerationPrompt(nil, tt.raw, "boom", nil, "")
			require.NoError(t, err)
			target := prompt[strings.Index(prompt, "Target structure:"):strings.Index(prompt, "Previous answer:")]
			assert.Contains(t, target, tt.want)
			assert.NotContains(t, target, tt.notWant)
			assert.Contains(t, prompt, DefaultSentinel)
		})
	}
}

func TestAttempt_String(t *testing.T) {
	assert.Equal(t, "pass1/markdown: skipped", Attempt{Tier: TierMarkdown, Pass: 1, Skipped: true}.String())
	assert.Equal(t, "pass2/direct: ok", Attempt{Tier: TierDirect, Pass: 2}.String())
	assert.Equal(t, "pass1/balance: boom", Attempt{Tier: TierBalance, Pass: 1, Err: errors.New("boom")}.String())
}
