package consensus

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/types"
)

// SourceBaseline marks a score computed against a stored baseline.
const SourceBaseline = "baseline"

const (
	// MatchThreshold is the minimum title similarity for a fuzzy credit match.
	MatchThreshold = 0.6
	// DefaultFieldConfidence weights fields the baseline has no stored confidence for.
	DefaultFieldConfidence = 0.5
	// MismatchScore is both the structural fidelity and the overall score of a shape mismatch.
	MismatchScore = 30.0

	overlapWeight      = 60.0
	countWeight        = 40.0
	fidelityWeight     = 0.3
	accuracyWeight     = 0.4
	completenessWeight = 0.3
)

var (
	hierarchicalFields = []string{"title", "role", "year", "director"}
	flatFields         = []string{"title", "role", "year", "director", "type"}
)

// Matcher evaluates candidates against a read-only baseline corpus. The corpus is never
// mutated after construction, so a Matcher is safe for concurrent use.
type Matcher struct {
	corpus types.BaselineCorpus
	logger *zap.Logger
}

// NewMatcher creates a Matcher over corpus. A nil corpus behaves as empty.
func NewMatcher(corpus types.BaselineCorpus, log *zap.Logger) *Matcher {
	if corpus == nil {
		corpus = types.BaselineCorpus{}
	}
	return &Matcher{corpus: corpus, logger: logger.OrNop(log)}
}

// Has reports whether a baseline exists for key.
func (m *Matcher) Has(key string) bool {
	_, ok := m.corpus[key]
	return ok
}

// Len returns the number of baselines.
func (m *Matcher) Len() int {
	return len(m.corpus)
}

// Evaluate scores candidate against the baseline stored under key. A missing baseline is
// not an error: it yields a zero score with source "none".
func (m *Matcher) Evaluate(candidate *types.ExtractionResult, key string) types.ConsensusScore {
	baseline, ok := m.corpus[key]
	if !ok {
		m.logger.Debug("no consensus baseline", zap.String(logger.FieldSourceKey, key))
		return noBaseline()
	}
	if candidate == nil {
		candidate = &types.ExtractionResult{Shape: types.ShapeUnknown}
	}

	strength := baseline.Confidence.Strength()
	out := types.ConsensusScore{
		AccuracyScore: types.AccuracyScore{
			FieldScores:   map[string]float64{},
			MissingFields: []string{},
		},
		ConsensusSource:   SourceBaseline,
		ConsensusStrength: strength,
	}

	reference := &baseline.Consensus
	if candidate.Shape != reference.Shape {
		m.logger.Debug("candidate shape differs from baseline",
			zap.String(logger.FieldSourceKey, key),
			zap.String("candidate", string(candidate.Shape)),
			zap.String("baseline", string(reference.Shape)),
		)
		out.StructuralFidelity = MismatchScore
		out.Score = MismatchScore
		out.Confidence = MismatchScore * strength
		return out
	}

	var cmp comparison
	if reference.Shape == types.ShapeFlat {
		out.StructuralFidelity = countSimilarity(len(reference.Credits), len(candidate.Credits)) * 100
		cmp = compareFlat(reference.Credits, candidate.Credits, baseline.Confidence)
	} else {
		out.StructuralFidelity = hierarchicalFidelity(reference.Resume, candidate.Resume)
		cmp = compareHierarchical(reference.Resume, candidate.Resume, baseline.Confidence)
	}

	switch {
	case cmp.expected == 0:
		out.FieldAccuracy = out.StructuralFidelity
		out.Completeness = out.StructuralFidelity
	case cmp.totalWeight == 0:
		// every expected field carries zero stored confidence
		out.Completeness = float64(cmp.present) / float64(cmp.expected) * 100
		out.FieldAccuracy = out.Completeness
	default:
		out.FieldAccuracy = cmp.matchedWeight / cmp.totalWeight * 100
		out.Completeness = float64(cmp.present) / float64(cmp.expected) * 100
	}

	out.Score = math.Round(out.StructuralFidelity*fidelityWeight + out.FieldAccuracy*accuracyWeight + out.Completeness*completenessWeight)
	out.Confidence = out.Score * strength
	out.ComparedFields = cmp.compared
	out.MissingFields = cmp.missing
	for field, acc := range cmp.perField {
		if acc.expected > 0 {
			out.FieldScores[field] = acc.similarity / float64(acc.expected) * 100
		}
	}
	return out
}

func noBaseline() types.ConsensusScore {
	return types.ConsensusScore{
		AccuracyScore: types.AccuracyScore{
			FieldScores:   map[string]float64{},
			MissingFields: []string{},
		},
		ConsensusSource: types.ConsensusSourceNone,
	}
}

// countSimilarity is min/max of two counts; two zero counts are identical.
func countSimilarity(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	return float64(min(a, b)) / float64(max(a, b))
}

func labelKey(label types.Text) string {
	return normalizeText(label.String())
}

// hierarchicalFidelity weighs label overlap at 60 and average per-category credit-count
// similarity at 40. A baseline category absent from the candidate adds nothing to either.
func hierarchicalFidelity(reference, candidate []types.Category) float64 {
	candidateCounts := make(map[string]int, len(candidate))
	for _, cat := range candidate {
		candidateCounts[labelKey(cat.Category)] += len(cat.Credits)
	}

	referenceCounts := make(map[string]int, len(reference))
	var order []string
	for _, cat := range reference {
		key := labelKey(cat.Category)
		if _, seen := referenceCounts[key]; !seen {
			order = append(order, key)
		}
		referenceCounts[key] += len(cat.Credits)
	}

	if len(order) == 0 {
		if len(candidate) == 0 {
			return overlapWeight + countWeight
		}
		return 0
	}

	shared := 0
	similarity := 0.0
	for _, key := range order {
		got, ok := candidateCounts[key]
		if !ok {
			continue
		}
		shared++
		similarity += countSimilarity(referenceCounts[key], got)
	}

	overlap := float64(shared) / float64(len(order))
	return overlap*overlapWeight + similarity/float64(len(order))*countWeight
}

type fieldAccuracy struct {
	expected   int
	similarity float64
}

type comparison struct {
	expected      int
	present       int
	compared      int
	totalWeight   float64
	matchedWeight float64
	missing       []string
	perField      map[string]*fieldAccuracy
}

func newComparison() *comparison {
	return &comparison{missing: []string{}, perField: make(map[string]*fieldAccuracy)}
}

// pool tracks candidate credits that have not yet been claimed by a baseline credit.
type pool struct {
	credits []types.Credit
	labels  []string
	used    []bool
}

func (p *pool) add(label string, credits []types.Credit) {
	for _, c := range credits {
		p.credits = append(p.credits, c)
		p.labels = append(p.labels, label)
		p.used = append(p.used, false)
	}
}

// match finds the best unclaimed credit for title among those accepted by filter: an exact
// title first, then the most similar title at or above MatchThreshold. It returns -1 when
// nothing qualifies.
func (p *pool) match(title string, filter func(i int) bool) int {
	title = strings.TrimSpace(title)
	for i, c := range p.credits {
		if !p.used[i] && filter(i) && c.Title.String() == title {
			return i
		}
	}

	best, bestScore := -1, 0.0
	for i, c := range p.credits {
		if p.used[i] || !filter(i) {
			continue
		}
		score := Jaccard(title, c.Title.String())
		if score >= MatchThreshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func (p *pool) claim(title, label string, sameLabelFirst bool) (types.Credit, bool) {
	idx := -1
	if sameLabelFirst {
		idx = p.match(title, func(i int) bool { return p.labels[i] == label })
	}
	if idx < 0 {
		idx = p.match(title, func(int) bool { return true })
	}
	if idx < 0 {
		return types.Credit{}, false
	}
	p.used[idx] = true
	return p.credits[idx], true
}

func compareHierarchical(reference, candidate []types.Category, conf types.BaselineConfidence) comparison {
	p := &pool{}
	for _, cat := range candidate {
		p.add(labelKey(cat.Category), cat.Credits)
	}

	cmp := newComparison()
	for _, cat := range reference {
		label := cat.Category.String()
		for j, ref := range cat.Credits {
			prefix := fmt.Sprintf("%s.credits[%d]", label, j)
			got, ok := p.claim(ref.Title.String(), labelKey(cat.Category), true)
			cmp.credit(ref, got, ok, prefix, hierarchicalFields, func(field string) float64 {
				return fieldConfidence(conf, label+"."+field, field)
			})
		}
	}
	return *cmp
}

func compareFlat(reference, candidate []types.Credit, conf types.BaselineConfidence) comparison {
	p := &pool{}
	p.add("", candidate)

	cmp := newComparison()
	for j, ref := range reference {
		got, ok := p.claim(ref.Title.String(), "", false)
		cmp.credit(ref, got, ok, fmt.Sprintf("credits[%d]", j), flatFields, func(field string) float64 {
			return fieldConfidence(conf, "credits."+field, field)
		})
	}
	return *cmp
}

// credit accumulates one baseline credit. Only fields the baseline populates are expected.
func (c *comparison) credit(ref, got types.Credit, matched bool, prefix string, fields []string, weight func(string) float64) {
	if !matched {
		c.missing = append(c.missing, prefix)
	}
	for _, field := range fields {
		want := ref.Field(field)
		if want == "" {
			continue
		}
		w := weight(field)
		c.expected++
		c.totalWeight += w

		acc, ok := c.perField[field]
		if !ok {
			acc = &fieldAccuracy{}
			c.perField[field] = acc
		}
		acc.expected++

		if !matched {
			continue
		}
		c.compared++

		have := got.Field(field)
		if have == "" {
			c.missing = append(c.missing, prefix+"."+field)
			continue
		}
		c.present++
		sim := fieldSimilarity(want, have)
		c.matchedWeight += w * sim
		acc.similarity += sim
	}
}

// fieldConfidence looks up the baseline's stored confidence for the first key present.
func fieldConfidence(conf types.BaselineConfidence, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := conf.Fields[key]; ok {
			if v > 1 {
				v /= 100
			}
			return v
		}
	}
	return DefaultFieldConfidence
}
