package types

import "time"

// TokenUsage records upstream token accounting. Degraded records carry zeros.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// RepairInfo records how the raw text was recovered.
type RepairInfo struct {
	Tier        string   `json:"tier"`
	Attempts    []string `json:"attempts,omitempty"`
	Regenerated bool     `json:"regenerated"`
	Degraded    bool     `json:"degraded"`
}

// Metadata is the quality block attached to an ExtractionResult.
type Metadata struct {
	ReportID       string                   `json:"reportId,omitempty"`
	SourceKey      string                   `json:"sourceKey,omitempty"`
	Accuracy       AccuracyScore            `json:"accuracy"`
	Structural     *StructuralResult        `json:"structural,omitempty"`
	Emptiness      *EmptinessResult         `json:"emptiness,omitempty"`
	Consensus      *ConsensusScore          `json:"consensus,omitempty"`
	Completeness   map[string]AccuracyScore `json:"completeness,omitempty"`
	Repair         *RepairInfo              `json:"repair,omitempty"`
	MeetsThreshold bool                     `json:"meetsThreshold"`
	TokenUsage     TokenUsage               `json:"tokenUsage"`
	ScoredAt       *time.Time               `json:"scoredAt,omitempty"`
}
