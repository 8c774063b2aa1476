// Package validation scores how well a parsed extraction conforms to the supported credit
// layouts and to the controlled category vocabulary.
package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/credit-quality/internal/types"
)

const (
	// showYearsBonus is awarded when the hierarchical display-years flag is present.
	showYearsBonus = 10.0
	// emptyListScore is the partial credit for a well-typed but empty list.
	emptyListScore = 50.0

	categoryWeight = 0.4
	creditWeight   = 0.5
)

// creditRule is the minimum a credit must carry to count as valid.
type creditRule struct {
	Title string `validate:"required"`
	Role  string `validate:"required"`
}

// categoryRule is the minimum a category must carry to count as valid.
type categoryRule struct {
	Label      string `validate:"required"`
	HasCredits bool   `validate:"required"`
}

// Validator computes structural scores. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate scores result in [0, 100]. Unknown shapes score 0.
func (v *Validator) Validate(result *types.ExtractionResult) types.StructuralResult {
	if result == nil {
		return types.StructuralResult{Shape: types.ShapeUnknown}
	}

	var out types.StructuralResult
	switch result.Shape {
	case types.ShapeHierarchical:
		out = v.hierarchical(result)
	case types.ShapeFlat:
		out = v.flat(result.Credits)
	default:
		return types.StructuralResult{Shape: types.ShapeUnknown}
	}

	out.VocabularyScore, out.UnknownCategories = vocabularyReport(labelsOf(result))
	if out.StructuralScore > 100 {
		out.StructuralScore = 100
	}
	return out
}

func (v *Validator) hierarchical(result *types.ExtractionResult) types.StructuralResult {
	out := types.StructuralResult{Shape: types.ShapeHierarchical}
	if len(result.Resume) == 0 {
		out.StructuralScore = emptyListScore
		return out
	}

	validCategories := 0
	var credits []types.Credit
	for _, cat := range result.Resume {
		if v.validCategory(cat) {
			validCategories++
		}
		credits = append(credits, cat.Credits...)
	}

	out.CategoryValidity = percent(validCategories, len(result.Resume))
	out.CreditValidity = emptyListScore
	if len(credits) > 0 {
		out.CreditValidity = percent(v.countValidCredits(credits), len(credits))
	}

	if result.ResumeShowYears != nil {
		out.StructuralScore = showYearsBonus
	}
	out.StructuralScore += out.CategoryValidity*categoryWeight + out.CreditValidity*creditWeight
	return out
}

func (v *Validator) flat(credits []types.Credit) types.StructuralResult {
	out := types.StructuralResult{Shape: types.ShapeFlat}
	if len(credits) == 0 {
		out.StructuralScore = emptyListScore
		out.CreditValidity = emptyListScore
		return out
	}
	out.CreditValidity = percent(v.countValidCredits(credits), len(credits))
	out.StructuralScore = out.CreditValidity
	return out
}

func (v *Validator) validCategory(cat types.Category) bool {
	return v.validate.Struct(categoryRule{
		Label:      cat.Category.String(),
		HasCredits: cat.Credits != nil,
	}) == nil
}

// ValidCredit reports whether c has at least a title and a role.
func (v *Validator) ValidCredit(c types.Credit) bool {
	return v.validate.Struct(creditRule{
		Title: c.Title.String(),
		Role:  c.Role.String(),
	}) == nil
}

func (v *Validator) countValidCredits(credits []types.Credit) int {
	n := 0
	for _, c := range credits {
		if v.ValidCredit(c) {
			n++
		}
	}
	return n
}

// labelsOf returns the category labels of a hierarchical result, or the credit types of a flat one.
func labelsOf(result *types.ExtractionResult) []string {
	var labels []string
	if result.Shape == types.ShapeFlat {
		for _, c := range result.Credits {
			if !c.Type.Empty() {
				labels = append(labels, c.Type.String())
			}
		}
		return labels
	}
	for _, cat := range result.Resume {
		if !cat.Category.Empty() {
			labels = append(labels, cat.Category.String())
		}
	}
	return labels
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
