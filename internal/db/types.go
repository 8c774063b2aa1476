package db

import (
	"time"

	"github.com/google/uuid"
)

// Report is a stored quality report row.
type Report struct {
	ID             uuid.UUID `json:"id"`
	SourceKey      string    `json:"source_key,omitempty"`
	Accuracy       float64   `json:"accuracy"`
	MeetsThreshold bool      `json:"meets_threshold"`
	RepairTier     string    `json:"repair_tier,omitempty"`
	Degraded       bool      `json:"degraded"`
	Content        []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportFilters holds optional filters for listing reports
type ReportFilters struct {
	SourceKey   string
	OnlyFailing bool
	Limit       int
}

// BaselineSummary is a lightweight view of a stored baseline for listing
type BaselineSummary struct {
	SourceKey         string    `json:"source_key"`
	OverallConfidence float64   `json:"overall_confidence"`
	UpdatedAt         time.Time `json:"updated_at"`
}
