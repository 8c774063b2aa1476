package consensus

import "strings"

// Jaccard returns the word-set Jaccard similarity of a and b after lower-casing and
// whitespace normalisation. Two blank strings are identical (1); one blank string shares
// nothing with a non-blank one (0).
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// normalizeText lower-cases s and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// fieldSimilarity is 1 for normalised equality, otherwise the Jaccard similarity.
func fieldSimilarity(a, b string) float64 {
	if normalizeText(a) == normalizeText(b) {
		return 1
	}
	return Jaccard(a, b)
}
