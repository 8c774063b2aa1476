package completeness

import (
	"fmt"
	"math"

	"github.com/jonathan/credit-quality/internal/types"
)

const skillPoints = 20.0

var (
	personalGroups = []fieldGroup{
		{share: 70, names: []string{"name", "email"}, required: true},
		{share: 30, names: []string{"phone", "location", "website", "summary"}},
	}
	educationGroups = []fieldGroup{
		{share: 75, names: []string{"institution", "degree"}, required: true},
		{share: 25, names: []string{"field", "startDate", "endDate", "gpa"}},
	}
	experienceGroups = []fieldGroup{
		{share: 60, names: []string{"company", "position"}, required: true},
		{share: 30, names: []string{"startDate", "endDate"}},
		{share: 10, names: []string{"location"}},
	}
)

// SectionBalanced weights each CV section and splits each section between required and
// optional fields.
type SectionBalanced struct {
	weights Weights
}

// NewSectionBalanced creates the section-balanced scorer.
func NewSectionBalanced(w Weights) *SectionBalanced {
	return &SectionBalanced{weights: w}
}

// Strategy implements Scorer.
func (s *SectionBalanced) Strategy() Strategy {
	return StrategySectionBalanced
}

type tally struct {
	populated int
	total     int
	missing   []string
}

// Score implements Scorer.
func (s *SectionBalanced) Score(cv *types.CVRecord) types.AccuracyScore {
	if cv == nil {
		cv = &types.CVRecord{}
	}

	t := &tally{}
	sections := make(map[string]float64, len(Sections))
	sections[SectionPersonalInfo] = scoreEntry(SectionPersonalInfo, personalFields(cv.PersonalInfo), personalGroups, t)
	sections[SectionEducation] = scoreList(SectionEducation, len(cv.Education), func(i int, prefix string) float64 {
		return scoreEntry(prefix, educationFields(cv.Education[i]), educationGroups, t)
	}, t)
	sections[SectionExperience] = scoreList(SectionExperience, len(cv.Experience), func(i int, prefix string) float64 {
		return scoreEntry(prefix, experienceFields(cv.Experience[i]), experienceGroups, t)
	}, t)
	sections[SectionSkills] = scoreSkills(cv.Skills, t)

	score := 0.0
	for _, section := range Sections {
		score += s.weights.Sections[section] * sections[section]
	}
	score = clamp(score)

	missing := t.missing
	if missing == nil {
		missing = []string{}
	}
	return types.AccuracyScore{
		Score:         score,
		Completeness:  ratio(float64(t.populated), float64(t.total)),
		Confidence:    Confidence(score, cv),
		FieldScores:   sections,
		MissingFields: missing,
	}
}

// scoreEntry scores one object from its field groups, recording missing required fields
// under prefix.
func scoreEntry(prefix string, values map[string]types.Text, groups []fieldGroup, t *tally) float64 {
	score := 0.0
	for _, g := range groups {
		present := 0
		for _, name := range g.names {
			t.total++
			if !values[name].Empty() {
				present++
				t.populated++
				continue
			}
			if g.required {
				t.missing = append(t.missing, prefix+"."+name)
			}
		}
		score += g.share * float64(present) / float64(len(g.names))
	}
	return score
}

// scoreList averages entry scores. An empty list scores 0 and is recorded as missing.
func scoreList(section string, n int, entry func(i int, prefix string) float64, t *tally) float64 {
	if n == 0 {
		t.total++
		t.missing = append(t.missing, section)
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += entry(i, fmt.Sprintf("%s[%d]", section, i))
	}
	return sum / float64(n)
}

func scoreSkills(skills []types.Text, t *tally) float64 {
	t.total++
	n := countNonBlank(skills)
	if n == 0 {
		t.missing = append(t.missing, SectionSkills)
		return 0
	}
	t.populated++
	return math.Min(100, float64(n)*skillPoints)
}
