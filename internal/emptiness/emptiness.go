// Package emptiness measures how much of an arbitrary JSON tree is populated.
package emptiness

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/jonathan/credit-quality/internal/types"
)

// skippedKeys hold bookkeeping that must not be scored.
var skippedKeys = map[string]struct{}{
	"metadata":   {},
	"tokenUsage": {},
}

// Measure counts populated leaves in v. Values that are not already generic JSON trees
// are normalised through encoding/json first.
func Measure(v any) types.EmptinessResult {
	total, nonEmpty := count(normalize(v), true)
	return types.EmptinessResult{
		Percentage:     percentage(nonEmpty, total),
		TotalFields:    total,
		NonEmptyFields: nonEmpty,
	}
}

// MeasureExpected is Measure plus the populated share of an expected field count.
// The expected percentage may exceed 100; it is omitted when expected is not positive.
func MeasureExpected(v any, expected int) types.EmptinessResult {
	result := Measure(v)
	if expected > 0 {
		p := percentage(result.NonEmptyFields, expected)
		result.ExpectedPercentage = &p
	}
	return result
}

// count returns the leaf count and populated leaf count of v. An empty container counts
// as one empty leaf, except at the root where it counts as nothing.
func count(v any, root bool) (int, int) {
	switch node := v.(type) {
	case nil:
		return 1, 0
	case string:
		if strings.TrimSpace(node) == "" {
			return 1, 0
		}
		return 1, 1
	case []any:
		total, nonEmpty := 0, 0
		for _, child := range node {
			t, n := count(child, false)
			total += t
			nonEmpty += n
		}
		return emptyContainer(total, nonEmpty, root)
	case map[string]any:
		total, nonEmpty := 0, 0
		for key, child := range node {
			if _, skip := skippedKeys[key]; skip {
				continue
			}
			t, n := count(child, false)
			total += t
			nonEmpty += n
		}
		return emptyContainer(total, nonEmpty, root)
	default:
		return 1, 1
	}
}

func emptyContainer(total, nonEmpty int, root bool) (int, int) {
	if total == 0 && !root {
		return 1, 0
	}
	return total, nonEmpty
}

func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, []any, map[string]any:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part) / float64(total) * 100)
}
