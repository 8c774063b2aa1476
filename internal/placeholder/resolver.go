// Package placeholder replaces identifier sentinels in parsed trees with fresh identifiers.
package placeholder

import "github.com/google/uuid"

// DefaultSentinel is the reserved token the generator writes where an identifier belongs.
const DefaultSentinel = "{{uuid}}"

// Resolver swaps every string equal to Sentinel for a value from NewID.
type Resolver struct {
	Sentinel string
	NewID    func() string
}

// New returns a Resolver minting UUIDv7 identifiers for sentinel.
// An empty sentinel selects DefaultSentinel.
func New(sentinel string) *Resolver {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Resolver{Sentinel: sentinel, NewID: NewV7}
}

// NewV7 returns a time-ordered UUID string.
func NewV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Resolve returns a copy of v with every sentinel string replaced. Maps and slices are
// copied so the input tree is left untouched; other values are returned as is.
func (r *Resolver) Resolve(v any) any {
	sentinel := r.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	newID := r.NewID
	if newID == nil {
		newID = NewV7
	}
	return resolve(v, sentinel, newID)
}

func resolve(v any, sentinel string, newID func() string) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, child := range node {
			out[key] = resolve(child, sentinel, newID)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = resolve(child, sentinel, newID)
		}
		return out
	case string:
		if node == sentinel {
			return newID()
		}
		return node
	default:
		return v
	}
}

// Count reports how many sentinel strings v contains.
func Count(v any, sentinel string) int {
	switch node := v.(type) {
	case map[string]any:
		n := 0
		for _, child := range node {
			n += Count(child, sentinel)
		}
		return n
	case []any:
		n := 0
		for _, child := range node {
			n += Count(child, sentinel)
		}
		return n
	case string:
		if node == sentinel {
			return 1
		}
	}
	return 0
}
