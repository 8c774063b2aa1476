package completeness

import (
	"fmt"

	"github.com/jonathan/credit-quality/internal/types"
)

// Strategy names a completeness scoring strategy.
type Strategy string

const (
	StrategySectionBalanced Strategy = "section_balanced"
	StrategyWeightedField   Strategy = "weighted_field"
)

// Strategies lists every strategy, primary default first.
var Strategies = []Strategy{StrategySectionBalanced, StrategyWeightedField}

// DefaultMinAccuracyThreshold is the default pass mark, in percent.
const DefaultMinAccuracyThreshold = 70.0

// Scorer computes an AccuracyScore for a CV record. Implementations are stateless
// and safe for concurrent use.
type Scorer interface {
	Strategy() Strategy
	Score(cv *types.CVRecord) types.AccuracyScore
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", &WeightsError{Message: fmt.Sprintf("unknown strategy %q", name)}
}

// NewScorer builds the scorer for strategy after validating w.
func NewScorer(strategy Strategy, w Weights) (Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	switch strategy {
	case StrategySectionBalanced:
		return NewSectionBalanced(w), nil
	case StrategyWeightedField:
		return NewWeightedField(w), nil
	default:
		return nil, &WeightsError{Message: fmt.Sprintf("unknown strategy %q", strategy)}
	}
}

// MeetsThreshold reports whether score reaches threshold.
func MeetsThreshold(score, threshold float64) bool {
	return score >= threshold
}

// fieldGroup is a set of fields sharing one slice of an entry's score.
type fieldGroup struct {
	share    float64
	names    []string
	required bool
}

func personalFields(p types.PersonalInfo) map[string]types.Text {
	return map[string]types.Text{
		"name":     p.Name,
		"email":    p.Email,
		"phone":    p.Phone,
		"location": p.Location,
		"website":  p.Website,
		"summary":  p.Summary,
	}
}

func educationFields(e types.Education) map[string]types.Text {
	return map[string]types.Text{
		"institution": e.Institution,
		"degree":      e.Degree,
		"field":       e.Field,
		"startDate":   e.StartDate,
		"endDate":     e.EndDate,
		"gpa":         e.GPA,
	}
}

func experienceFields(e types.Experience) map[string]types.Text {
	return map[string]types.Text{
		"company":   e.Company,
		"position":  e.Position,
		"startDate": e.StartDate,
		"endDate":   e.EndDate,
		"location":  e.Location,
	}
}

var (
	personalOrder   = []string{"name", "email", "phone", "location", "website", "summary"}
	educationOrder  = []string{"institution", "degree", "field", "startDate", "endDate", "gpa"}
	experienceOrder = []string{"company", "position", "startDate", "endDate", "location"}
)

func countNonBlank(values []types.Text) int {
	n := 0
	for _, v := range values {
		if !v.Empty() {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func ratio(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
