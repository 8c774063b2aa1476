package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Feature Film Lead", "Feature Film Lead", 1},
		{"case and whitespace", "Feature Film Lead", "feature film  lead", 1},
		{"partial overlap", "The Crown", "The Crown Season 2", 0.5},
		{"disjoint", "Hamlet", "Macbeth", 0},
		{"both empty", "", "   ", 1},
		{"one empty", "", "Hamlet", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 0.0001)
		})
	}
}

func TestFieldSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, fieldSimilarity("2019", " 2019 "))
	assert.InDelta(t, 1.0/3.0, fieldSimilarity("Jane Doe", "Jane Smith"), 0.0001)
}
