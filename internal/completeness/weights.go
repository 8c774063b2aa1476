package completeness

import (
	"fmt"
	"math"
	"sort"
)

// Section names, also used as fieldScores keys and path prefixes.
const (
	SectionPersonalInfo = "personalInfo"
	SectionEducation    = "education"
	SectionExperience   = "experience"
	SectionSkills       = "skills"
)

// Sections lists the CV sections in scoring order.
var Sections = []string{SectionPersonalInfo, SectionEducation, SectionExperience, SectionSkills}

const (
	weightSumTolerance = 0.001
	defaultFieldWeight = 1.0
	// DefaultMaxRichnessBonus caps the weighted-field richness multiplier at +30%.
	DefaultMaxRichnessBonus = 0.3
)

// Weights is the scoring configuration shared by both strategies.
// Section weights drive the section-balanced strategy and must sum to 1.
// Field weights drive the weighted-field strategy and are keyed by qualified path
// such as "personalInfo.email" or "experience.company".
type Weights struct {
	Sections         map[string]float64
	Fields           map[string]float64
	MaxRichnessBonus float64
}

// DefaultWeights returns the built-in weight tables.
func DefaultWeights() Weights {
	return Weights{
		Sections: map[string]float64{
			SectionPersonalInfo: 0.25,
			SectionEducation:    0.25,
			SectionExperience:   0.30,
			SectionSkills:       0.20,
		},
		Fields: map[string]float64{
			"personalInfo.name":      3,
			"personalInfo.email":     3,
			"personalInfo.phone":     1.5,
			"personalInfo.location":  1,
			"personalInfo.website":   0.5,
			"personalInfo.summary":   1,
			"education.institution":  2,
			"education.degree":       2,
			"education.field":        1,
			"education.startDate":    0.5,
			"education.endDate":      1,
			"education.gpa":          0.5,
			"experience.company":     2.5,
			"experience.position":    2.5,
			"experience.startDate":   1.5,
			"experience.endDate":     1.5,
			"experience.location":    0.5,
			"experience.description": 1.5,
			"skills":                 2,
		},
		MaxRichnessBonus: DefaultMaxRichnessBonus,
	}
}

// WithOverrides returns a copy of w with the given section and field weights replacing
// the current values. Nil or empty maps leave the corresponding table unchanged.
func (w Weights) WithOverrides(sections, fields map[string]float64) Weights {
	out := Weights{
		Sections:         make(map[string]float64, len(w.Sections)),
		Fields:           make(map[string]float64, len(w.Fields)+len(fields)),
		MaxRichnessBonus: w.MaxRichnessBonus,
	}
	for k, v := range w.Sections {
		out.Sections[k] = v
	}
	for k, v := range w.Fields {
		out.Fields[k] = v
	}
	if len(sections) > 0 {
		out.Sections = make(map[string]float64, len(sections))
		for k, v := range sections {
			out.Sections[k] = v
		}
	}
	for k, v := range fields {
		out.Fields[k] = v
	}
	return out
}

// Validate checks that section weights cover the known sections and sum to 1,
// and that no weight is negative.
func (w Weights) Validate() error {
	sum := 0.0
	for _, section := range Sections {
		weight, ok := w.Sections[section]
		if !ok {
			return &WeightsError{Message: fmt.Sprintf("missing section weight %q", section)}
		}
		if weight < 0 {
			return &WeightsError{Message: fmt.Sprintf("section weight %q is negative", section)}
		}
		sum += weight
	}
	for section := range w.Sections {
		if !isSection(section) {
			return &WeightsError{Message: fmt.Sprintf("unknown section %q", section)}
		}
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return &WeightsError{Message: fmt.Sprintf("section weights sum to %.3f, want 1.0", sum)}
	}

	paths := make([]string, 0, len(w.Fields))
	for path := range w.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if w.Fields[path] < 0 {
			return &WeightsError{Message: fmt.Sprintf("field weight %q is negative", path)}
		}
	}

	if w.MaxRichnessBonus < 0 {
		return &WeightsError{Message: "richness bonus cap is negative"}
	}
	return nil
}

func (w Weights) field(path string) float64 {
	if weight, ok := w.Fields[path]; ok {
		return weight
	}
	return defaultFieldWeight
}

func isSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}
