package validation

import (
	"strings"

	"github.com/jonathan/credit-quality/internal/consensus"
)

// Vocabulary is the controlled list of category labels, in display order.
var Vocabulary = []string{
	"Film",
	"Television",
	"Theatre",
	"Commercial",
	"Print/Fashion",
	"Training",
	"Voice",
	"Stunt",
	"Corporate",
	"MC/Presenting",
	"Extras",
	"Other",
}

// FallbackCategory is used for labels that match nothing in the vocabulary.
const FallbackCategory = "Other"

const labelSimilarityThreshold = 0.6

// aliases maps free-text labels to vocabulary entries. Keys are normalised at init.
var aliases = map[string]string{
	"feature film":        "Film",
	"feature":             "Film",
	"short film":          "Film",
	"movie":               "Film",
	"cinema":              "Film",
	"film and television": "Film",
	"tv":                  "Television",
	"tv series":           "Television",
	"television series":   "Television",
	"web series":          "Television",
	"theater":             "Theatre",
	"stage":               "Theatre",
	"musical theatre":     "Theatre",
	"tvc":                 "Commercial",
	"advertising":         "Commercial",
	"print":               "Print/Fashion",
	"fashion":             "Print/Fashion",
	"modelling":           "Print/Fashion",
	"modeling":            "Print/Fashion",
	"commercial print":    "Print/Fashion",
	"print and fashion":   "Print/Fashion",
	"education":           "Training",
	"workshops":           "Training",
	"voiceover":           "Voice",
	"voice over":          "Voice",
	"radio":               "Voice",
	"animation":           "Voice",
	"stunt work":          "Stunt",
	"corporate video":     "Corporate",
	"industrial":          "Corporate",
	"mc":                  "MC/Presenting",
	"presenting":          "MC/Presenting",
	"presenter":           "MC/Presenting",
	"hosting":             "MC/Presenting",
	"host":                "MC/Presenting",
	"live events":         "MC/Presenting",
	"extra":               "Extras",
	"background":          "Extras",
	"background artist":   "Extras",
	"supporting artist":   "Extras",
	"miscellaneous":       "Other",
	"misc":                "Other",
	"additional credits":  "Other",
	"special skills":      "Other",
	"music videos":        "Other",
}

// normalizeLabel lower-cases a label, treats separators as spaces and drops plural "s".
func normalizeLabel(label string) string {
	label = strings.ToLower(label)
	label = strings.NewReplacer("/", " ", "-", " ", "&", " and ", "_", " ").Replace(label)
	words := strings.Fields(label)
	for i, w := range words {
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	return strings.Join(words, " ")
}

var (
	normalizedVocabulary = normalizeKeys(func() map[string]string {
		m := make(map[string]string, len(Vocabulary))
		for _, label := range Vocabulary {
			m[label] = label
		}
		return m
	}())
	normalizedAliases = normalizeKeys(aliases)
)

func normalizeKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, canonical := range in {
		out[normalizeLabel(key)] = canonical
	}
	return out
}

// MatchCategory maps label to a vocabulary entry by exact match, alias, or word-set
// similarity of at least 0.6. The boolean is false when nothing matches.
func MatchCategory(label string) (string, bool) {
	norm := normalizeLabel(label)
	if norm == "" {
		return "", false
	}
	if canonical, ok := normalizedVocabulary[norm]; ok {
		return canonical, true
	}
	if canonical, ok := normalizedAliases[norm]; ok {
		return canonical, true
	}

	best, bestScore := "", 0.0
	for _, candidate := range Vocabulary {
		score := consensus.Jaccard(norm, normalizeLabel(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	for alias, canonical := range normalizedAliases {
		score := consensus.Jaccard(norm, alias)
		if score > bestScore || (score == bestScore && score > 0 && canonical < best) {
			best, bestScore = canonical, score
		}
	}
	if bestScore >= labelSimilarityThreshold {
		return best, true
	}
	return "", false
}

// CanonicalCategory returns the vocabulary entry closest to label, or FallbackCategory.
func CanonicalCategory(label string) string {
	if canonical, ok := MatchCategory(label); ok {
		return canonical
	}
	return FallbackCategory
}

// vocabularyReport returns the share of labels matching the vocabulary and the distinct
// unmatched labels in first-seen order.
func vocabularyReport(labels []string) (float64, []string) {
	if len(labels) == 0 {
		return 0, nil
	}
	matched := 0
	var unknown []string
	seen := make(map[string]struct{})
	for _, label := range labels {
		if _, ok := MatchCategory(label); ok {
			matched++
			continue
		}
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			unknown = append(unknown, label)
		}
	}
	return percent(matched, len(labels)), unknown
}
