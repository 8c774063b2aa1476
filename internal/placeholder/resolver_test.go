package placeholder

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ReplacesEverySentinel(t *testing.T) {
	tree := map[string]any{
		"resume": []any{
			map[string]any{
				"category":   "Film",
				"categoryId": DefaultSentinel,
				"credits": []any{
					map[string]any{"id": DefaultSentinel, "title": "Hamlet"},
					map[string]any{"id": DefaultSentinel, "title": "{{uuid}} in a sentence"},
				},
			},
		},
		"ids": []any{DefaultSentinel, []any{DefaultSentinel}},
	}

	n := 0
	resolver := &Resolver{Sentinel: DefaultSentinel, NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}}

	out := resolver.Resolve(tree)

	assert.Equal(t, 5, n)
	assert.Equal(t, 0, Count(out, DefaultSentinel))
	assert.Equal(t, 5, Count(tree, DefaultSentinel), "input must not be modified")

	credits := out.(map[string]any)["resume"].([]any)[0].(map[string]any)["credits"].([]any)
	assert.Equal(t, "{{uuid}} in a sentence", credits[1].(map[string]any)["title"])
}

func TestResolve_GeneratesDistinctUUIDs(t *testing.T) {
	out := New("").Resolve([]any{DefaultSentinel, DefaultSentinel, "keep", 3.0, nil, true})
	items := out.([]any)

	first, err := uuid.Parse(items[0].(string))
	require.NoError(t, err)
	second, err := uuid.Parse(items[1].(string))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, uuid.Version(7), first.Version())
	assert.Equal(t, []any{"keep", 3.0, nil, true}, items[2:])
}

func TestResolve_CustomSentinel(t *testing.T) {
	resolver := &Resolver{Sentinel: "<ID>", NewID: func() string { return "fixed" }}

	out := resolver.Resolve(map[string]any{"a": "<ID>", "b": DefaultSentinel})
	assert.Equal(t, map[string]any{"a": "fixed", "b": DefaultSentinel}, out)
}

func TestResolve_Scalars(t *testing.T) {
	resolver := New("")
	assert.Nil(t, resolver.Resolve(nil))
	assert.Equal(t, 4.0, resolver.Resolve(4.0))
	assert.Equal(t, "x", resolver.Resolve("x"))
}
