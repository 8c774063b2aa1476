package completeness

import (
	"regexp"
	"strconv"

	"github.com/jonathan/credit-quality/internal/types"
)

// Confidence penalty multipliers.
const (
	PenaltyMissingIdentity  = 0.8
	PenaltyNoExperience     = 0.85
	PenaltyDateInconsistent = 0.9
	PenaltyOversizedField   = 0.9

	// MaxFieldLength is the sanity bound for single-line fields.
	MaxFieldLength = 100
)

var yearRe = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)

// parseYear returns the first four-digit year in s.
func parseYear(s string) (int, bool) {
	match := yearRe.FindString(s)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Confidence applies the consistency penalties to start and clamps the result to [0, 100].
func Confidence(start float64, cv *types.CVRecord) float64 {
	c := start
	if cv == nil {
		return clamp(c * PenaltyMissingIdentity * PenaltyNoExperience)
	}
	if cv.PersonalInfo.Name.Empty() || cv.PersonalInfo.Email.Empty() {
		c *= PenaltyMissingIdentity
	}
	if !hasValidExperience(cv) {
		c *= PenaltyNoExperience
	}
	if hasInconsistentDates(cv) {
		c *= PenaltyDateInconsistent
	}
	if hasOversizedField(cv) {
		c *= PenaltyOversizedField
	}
	return clamp(c)
}

func hasValidExperience(cv *types.CVRecord) bool {
	for _, e := range cv.Experience {
		if !e.Company.Empty() && !e.Position.Empty() {
			return true
		}
	}
	return false
}

func hasInconsistentDates(cv *types.CVRecord) bool {
	for _, e := range cv.Experience {
		if endsBeforeStart(e.StartDate, e.EndDate) {
			return true
		}
	}
	for _, e := range cv.Education {
		if endsBeforeStart(e.StartDate, e.EndDate) {
			return true
		}
	}
	return false
}

func endsBeforeStart(start, end types.Text) bool {
	startYear, ok := parseYear(start.String())
	if !ok {
		return false
	}
	endYear, ok := parseYear(end.String())
	if !ok {
		return false
	}
	return endYear < startYear
}

func hasOversizedField(cv *types.CVRecord) bool {
	fields := []types.Text{cv.PersonalInfo.Name, cv.PersonalInfo.Email, cv.PersonalInfo.Phone}
	for _, e := range cv.Experience {
		fields = append(fields, e.Company, e.Position)
	}
	for _, e := range cv.Education {
		fields = append(fields, e.Institution, e.Degree)
	}
	for _, f := range fields {
		if len([]rune(f.String())) > MaxFieldLength {
			return true
		}
	}
	return false
}
