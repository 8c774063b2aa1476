package jsonrepair

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/llm"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/placeholder"
	"github.com/jonathan/credit-quality/internal/prompts"
	"github.com/jonathan/credit-quality/internal/types"
)

// DefaultSentinel is the identifier placeholder the generator is asked to emit.
const DefaultSentinel = placeholder.DefaultSentinel

const logSnippetLimit = 200

// Regenerator is the upstream generator used for the single escalation attempt.
type Regenerator interface {
	Regenerate(ctx context.Context, prompt string) (*llm.Response, error)
}

// RegeneratorFunc adapts a function to Regenerator.
type RegeneratorFunc func(ctx context.Context, prompt string) (*llm.Response, error)

// Regenerate calls f.
func (f RegeneratorFunc) Regenerate(ctx context.Context, prompt string) (*llm.Response, error) {
	return f(ctx, prompt)
}

// ClientRegenerator sends the escalation prompt through an llm.Client.
type ClientRegenerator struct {
	Client llm.Client
	Tier   llm.ModelTier
}

// Regenerate asks the client for a JSON response. The reply still runs through every tier,
// so a client that ignores the JSON mode is handled too.
func (r ClientRegenerator) Regenerate(ctx context.Context, prompt string) (*llm.Response, error) {
	tier := r.Tier
	if tier == "" {
		tier = llm.TierStandard
	}
	return r.Client.GenerateJSON(ctx, prompt, tier)
}

// Options configures a Repairer. Zero values select the defaults.
type Options struct {
	Tiers       []Tier
	Regenerator Regenerator // nil disables escalation
	Prompts     *prompts.Store
	Sentinel    string
	Logger      *zap.Logger
}

// Repairer runs the repair cascade. It holds no per-call state and is safe for concurrent use.
type Repairer struct {
	tiers    []Tier
	regen    Regenerator
	prompts  *prompts.Store
	sentinel string
	logger   *zap.Logger
}

// New creates a Repairer from opts.
func New(opts Options) *Repairer {
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	store := opts.Prompts
	if store == nil {
		store = prompts.Embedded()
	}
	sentinel := opts.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Repairer{
		tiers:    tiers,
		regen:    opts.Regenerator,
		prompts:  store,
		sentinel: sentinel,
		logger:   logger.OrNop(opts.Logger),
	}
}

// Result is the outcome of a full cascade run.
type Result struct {
	Value       any
	Tier        string
	Attempts    []Attempt
	Regenerated bool
	Degraded    bool
	Usage       types.TokenUsage
}

// Info summarises the result for report metadata.
func (r *Result) Info() *types.RepairInfo {
	attempts := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		attempts = append(attempts, a.String())
	}
	return &types.RepairInfo{
		Tier:        r.Tier,
		Attempts:    attempts,
		Regenerated: r.Regenerated,
		Degraded:    r.Degraded,
	}
}

// RepairLocal runs the local tiers once over raw. Each tier transforms the text left by the
// previous applicable tier and a parse is attempted after every one. The returned error is
// an *UnrecoverableError when no tier produced parseable JSON.
func (r *Repairer) RepairLocal(raw string) (any, string, []Attempt, error) {
	return r.runTiers(raw, 1)
}

func (r *Repairer) runTiers(raw string, pass int) (any, string, []Attempt, error) {
	attempts := make([]Attempt, 0, len(r.tiers))
	text := raw
	var lastErr error

	for _, tier := range r.tiers {
		next, ok := tier.Apply(text)
		if !ok {
			attempts = append(attempts, Attempt{Tier: tier.Name, Pass: pass, Skipped: true})
			continue
		}
		text = next

		var value any
		err := json.Unmarshal([]byte(text), &value)
		attempts = append(attempts, Attempt{Tier: tier.Name, Pass: pass, Err: err})
		if err == nil {
			return value, tier.Name, attempts, nil
		}
		lastErr = err

		r.logger.Debug("repair tier failed",
			zap.String(logger.FieldTier, tier.Name),
			zap.Int("pass", pass),
			zap.Error(err),
			zap.String("text", logger.TruncateForLog(text, logSnippetLimit)),
		)
	}

	return nil, "", attempts, &UnrecoverableError{
		Message:  "all local repair tiers failed",
		Attempts: attempts,
		Cause:    lastErr,
	}
}

// Repair recovers a parsed value from raw. When every local tier fails it escalates once to
// the regenerator with a stricter prompt built from schema, then degrades to EmptyRecord.
// Data-quality failures never produce an error; only cancellation of ctx does.
func (r *Repairer) Repair(ctx context.Context, raw string, schema map[string]any) (*Result, error) {
	value, tier, attempts, err := r.runTiers(raw, 1)
	if err == nil {
		return &Result{Value: value, Tier: tier, Attempts: attempts}, nil
	}

	result := &Result{Attempts: attempts}
	if r.regen != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		regenerated, regenErr := r.escalate(ctx, raw, err, schema, result)
		if regenErr == nil {
			return regenerated, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("regeneration did not recover JSON", zap.Error(regenErr))
	}

	r.logger.Error("degrading to empty record",
		zap.Int("attempts", len(result.Attempts)),
		zap.Bool("regenerated", result.Regenerated),
		zap.String("raw", logger.TruncateForLog(raw, logSnippetLimit)),
	)

	result.Value = EmptyRecord()
	result.Tier = TierDegraded
	result.Degraded = true
	result.Usage = types.TokenUsage{}
	return result, nil
}

func (r *Repairer) escalate(ctx context.Context, raw string, localErr error, schema map[string]any, result *Result) (*Result, error) {
	parseErr := localErr.Error()
	var unrecoverable *UnrecoverableError
	if errors.As(localErr, &unrecoverable) && unrecoverable.Cause != nil {
		parseErr = unrecoverable.Cause.Error()
	}

	prompt, err := BuildRegenerationPrompt(r.prompts, raw, parseErr, schema, r.sentinel)
	if err != nil {
		return nil, &RegenerationError{Message: "failed to build prompt", Cause: err}
	}

	r.logger.Warn("escalating to regeneration", zap.String("parse_error", parseErr))

	resp, err := r.regen.Regenerate(ctx, prompt)
	if err != nil {
		return nil, &RegenerationError{Message: "generator call failed", Cause: err}
	}
	if resp == nil {
		return nil, &RegenerationError{Message: "generator returned no response"}
	}
	result.Regenerated = true

	value, tier, attempts, err := r.runTiers(resp.Text, 2)
	result.Attempts = append(result.Attempts, attempts...)
	if err != nil {
		return nil, &RegenerationError{Message: "regenerated text is not parseable", Cause: err}
	}

	result.Value = value
	result.Tier = tier
	result.Usage = resp.Usage
	return result, nil
}

// EmptyRecord is the structurally valid hierarchical record returned when recovery fails.
func EmptyRecord() map[string]any {
	return map[string]any{
		"resume":          []any{},
		"resumeShowYears": false,
		"metadata": map[string]any{
			"tokenUsage": map[string]any{
				"promptTokens":     0,
				"completionTokens": 0,
				"totalTokens":      0,
			},
		},
	}
}
