package completeness

import (
	"fmt"
	"math"

	"github.com/jonathan/credit-quality/internal/types"
)

// criticalWeight is the field weight from which an absent field is reported as missing.
const criticalWeight = 2.0

// Richness bonus rates. Each component is capped at richnessComponentCap before the
// total is capped by Weights.MaxRichnessBonus.
const (
	richnessPerSkill      = 0.02
	richnessSkillBaseline = 5
	richnessPerBullet     = 0.02
	richnessPerExperience = 0.05
	richnessPerEducation  = 0.025
	richnessComponentCap  = 0.1
)

// WeightedField scores every field by its configured importance and rewards richness.
type WeightedField struct {
	weights Weights
}

// NewWeightedField creates the weighted-field scorer.
func NewWeightedField(w Weights) *WeightedField {
	return &WeightedField{weights: w}
}

// Strategy implements Scorer.
func (s *WeightedField) Strategy() Strategy {
	return StrategyWeightedField
}

type weightTally struct {
	weights   Weights
	populated float64
	total     float64
	count     int
	filled    int
	missing   []string
	sections  map[string][2]float64
}

func (t *weightTally) add(section, path, qualified string, present bool) {
	weight := t.weights.field(path)
	t.total += weight
	t.count++

	s := t.sections[section]
	s[1] += weight
	if present {
		t.populated += weight
		t.filled++
		s[0] += weight
	} else if weight >= criticalWeight {
		t.missing = append(t.missing, qualified)
	}
	t.sections[section] = s
}

// Score implements Scorer.
func (s *WeightedField) Score(cv *types.CVRecord) types.AccuracyScore {
	if cv == nil {
		cv = &types.CVRecord{}
	}

	t := &weightTally{weights: s.weights, sections: make(map[string][2]float64, len(Sections))}

	personal := personalFields(cv.PersonalInfo)
	for _, name := range personalOrder {
		path := SectionPersonalInfo + "." + name
		t.add(SectionPersonalInfo, path, path, !personal[name].Empty())
	}

	if len(cv.Education) == 0 {
		t.missing = append(t.missing, SectionEducation)
		for _, name := range educationOrder {
			t.add(SectionEducation, SectionEducation+"."+name, "", false)
		}
	}
	for i, e := range cv.Education {
		values := educationFields(e)
		for _, name := range educationOrder {
			t.add(SectionEducation, SectionEducation+"."+name, fmt.Sprintf("%s[%d].%s", SectionEducation, i, name), !values[name].Empty())
		}
	}

	if len(cv.Experience) == 0 {
		t.missing = append(t.missing, SectionExperience)
		for _, name := range experienceOrder {
			t.add(SectionExperience, SectionExperience+"."+name, "", false)
		}
		t.add(SectionExperience, SectionExperience+".description", "", false)
	}
	for i, e := range cv.Experience {
		values := experienceFields(e)
		for _, name := range experienceOrder {
			t.add(SectionExperience, SectionExperience+"."+name, fmt.Sprintf("%s[%d].%s", SectionExperience, i, name), !values[name].Empty())
		}
		t.add(SectionExperience, SectionExperience+".description", fmt.Sprintf("%s[%d].description", SectionExperience, i), countNonBlank(e.Description) > 0)
	}

	t.add(SectionSkills, SectionSkills, SectionSkills, countNonBlank(cv.Skills) > 0)

	// phantom entries of empty sections are reported by section name only
	missing := make([]string, 0, len(t.missing))
	for _, m := range t.missing {
		if m != "" {
			missing = append(missing, m)
		}
	}

	base := ratio(t.populated, t.total)
	uncapped := base * (1 + s.richness(cv))

	fieldScores := make(map[string]float64, len(Sections))
	for _, section := range Sections {
		w := t.sections[section]
		fieldScores[section] = ratio(w[0], w[1])
	}

	return types.AccuracyScore{
		Score:         math.Min(100, uncapped),
		Completeness:  ratio(float64(t.filled), float64(t.count)),
		Confidence:    Confidence(uncapped, cv),
		FieldScores:   fieldScores,
		MissingFields: missing,
	}
}

// richness returns the bonus multiplier for content beyond mere presence.
func (s *WeightedField) richness(cv *types.CVRecord) float64 {
	skills := countNonBlank(cv.Skills)
	skillBonus := math.Min(richnessComponentCap, richnessPerSkill*float64(max(0, skills-richnessSkillBaseline)))

	bullets := 0
	for _, e := range cv.Experience {
		bullets += countNonBlank(e.Description)
	}
	bulletBonus := math.Min(richnessComponentCap, richnessPerBullet*float64(max(0, bullets-len(cv.Experience))))

	entryBonus := math.Min(richnessComponentCap,
		richnessPerExperience*float64(max(0, len(cv.Experience)-1))+
			richnessPerEducation*float64(max(0, len(cv.Education)-1)))

	return math.Min(s.weights.MaxRichnessBonus, skillBonus+bulletBonus+entryBonus)
}
