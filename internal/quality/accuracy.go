package quality

import (
	"fmt"
	"math"

	"github.com/jonathan/credit-quality/internal/types"
)

// Blend weights for documents with neither a baseline nor CV sections.
const (
	blendStructuralWeight = 0.6
	blendEmptinessWeight  = 0.4
)

// Field score keys of the blended accuracy.
const (
	FieldStructural = "structural"
	FieldEmptiness  = "emptiness"
	FieldVocabulary = "vocabulary"
)

// selectAccuracy picks the primary score: consensus when a baseline was found, then the
// primary completeness strategy when CV sections are present, then the structural blend.
func (e *Engine) selectAccuracy(meta *types.Metadata, extraction *types.ExtractionResult) types.AccuracyScore {
	if meta.Consensus != nil && meta.Consensus.ConsensusSource != types.ConsensusSourceNone {
		return meta.Consensus.AccuracyScore
	}
	if score, ok := meta.Completeness[string(e.primary)]; ok {
		return score
	}
	return blend(*meta.Structural, *meta.Emptiness, extraction)
}

// blend combines structural validity and fill rate. Confidence scales the score by
// vocabulary agreement, from half at no recognised labels to full at all recognised.
func blend(structural types.StructuralResult, empty types.EmptinessResult, extraction *types.ExtractionResult) types.AccuracyScore {
	score := structural.StructuralScore*blendStructuralWeight + empty.Percentage*blendEmptinessWeight
	score = math.Round(score*100) / 100
	confidence := score * (0.5 + structural.VocabularyScore/200)

	return types.AccuracyScore{
		Score:        math.Min(100, score),
		Completeness: empty.Percentage,
		Confidence:   math.Min(100, confidence),
		FieldScores: map[string]float64{
			FieldStructural: structural.StructuralScore,
			FieldEmptiness:  empty.Percentage,
			FieldVocabulary: structural.VocabularyScore,
		},
		MissingFields: missingCreditFields(extraction),
	}
}

// degradedScore reports an unrecovered document as zero complete.
func degradedScore() types.AccuracyScore {
	return types.AccuracyScore{
		FieldScores:   map[string]float64{},
		MissingFields: []string{"resume"},
	}
}

// missingCreditFields lists the minimum fields absent from each credit.
func missingCreditFields(extraction *types.ExtractionResult) []string {
	missing := []string{}
	check := func(prefix string, c types.Credit) {
		if c.Title.Empty() {
			missing = append(missing, prefix+".title")
		}
		if c.Role.Empty() {
			missing = append(missing, prefix+".role")
		}
	}

	switch extraction.Shape {
	case types.ShapeHierarchical:
		for i, cat := range extraction.Resume {
			if cat.Category.Empty() {
				missing = append(missing, fmt.Sprintf("resume[%d].category", i))
			}
			for j, c := range cat.Credits {
				check(fmt.Sprintf("resume[%d].credits[%d]", i, j), c)
			}
		}
	case types.ShapeFlat:
		for j, c := range extraction.Credits {
			check(fmt.Sprintf("credits[%d]", j), c)
		}
	default:
		missing = append(missing, "resume")
	}
	return missing
}
