// Package types provides type definitions for structured data used throughout the credit-quality system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Shape discriminates the two coexisting layouts of an extraction result.
type Shape string

const (
	// ShapeUnknown is neither layout; scorers treat it as structurally invalid.
	ShapeUnknown Shape = "unknown"
	// ShapeHierarchical is {resume: [Category], resumeShowYears: bool}
	ShapeHierarchical Shape = "hierarchical"
	// ShapeFlat is {credits: [Credit]}
	ShapeFlat Shape = "flat"
)

// Text is a string that also accepts JSON numbers and booleans.
// Generated output regularly emits years as numbers ("year": 2019).
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*t = Text(strconv.FormatFloat(val, 'f', -1, 64))
	case bool:
		*t = Text(strconv.FormatBool(val))
	default:
		// objects and arrays carry no usable scalar value
		*t = ""
	}
	return nil
}

// String returns the trimmed value.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Empty reports whether the value is blank.
func (t Text) Empty() bool {
	return t.String() == ""
}

// Credit is a single professional engagement.
type Credit struct {
	ID            Text  `json:"id,omitempty"`
	Year          Text  `json:"year,omitempty"`
	Title         Text  `json:"title"`
	Role          Text  `json:"role,omitempty"`
	Director      Text  `json:"director,omitempty"`
	Type          Text  `json:"type,omitempty"` // flat shape only
	AttachedMedia []any `json:"attachedMedia"`
}

// Field returns a tracked credit field by name.
func (c Credit) Field(name string) string {
	switch name {
	case "title":
		return c.Title.String()
	case "role":
		return c.Role.String()
	case "year":
		return c.Year.String()
	case "director":
		return c.Director.String()
	case "type":
		return c.Type.String()
	case "id":
		return c.ID.String()
	}
	return ""
}

// Category groups credits under a controlled-vocabulary label.
// A nil Credits slice means the key was absent; an empty slice means it was present but empty.
type Category struct {
	Category   Text     `json:"category"`
	CategoryID Text     `json:"categoryId,omitempty"`
	Credits    []Credit `json:"credits"`
}

// ExtractionResult is the parsed, typed view of a generated credits document.
// Exactly one of Resume or Credits is meaningful, selected by Shape.
type ExtractionResult struct {
	Shape           Shape      `json:"-"`
	Resume          []Category `json:"-"`
	ResumeShowYears *bool      `json:"-"`
	Credits         []Credit   `json:"-"`
	Metadata        *Metadata  `json:"-"`
}

type hierarchicalWire struct {
	Resume          []Category `json:"resume"`
	ResumeShowYears *bool      `json:"resumeShowYears,omitempty"`
	Metadata        *Metadata  `json:"metadata,omitempty"`
}

type flatWire struct {
	Credits  []Credit  `json:"credits"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// UnmarshalJSON detects the shape once and decodes the matching layout.
// Documents matching neither layout decode to ShapeUnknown without error.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	*r = ExtractionResult{Shape: ShapeUnknown}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// top-level arrays and scalars are valid JSON but not a known shape
		return nil
	}

	if raw, ok := fields["resume"]; ok && isJSONArray(raw) {
		r.Shape = ShapeHierarchical
		r.Resume = decodeCategories(raw)
		if flag, ok := fields["resumeShowYears"]; ok {
			var b bool
			if err := json.Unmarshal(flag, &b); err == nil {
				r.ResumeShowYears = &b
			}
		}
	} else if raw, ok := fields["credits"]; ok && isJSONArray(raw) {
		r.Shape = ShapeFlat
		r.Credits = decodeCredits(raw)
	}

	if raw, ok := fields["metadata"]; ok {
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			r.Metadata = &meta
		}
	}
	return nil
}

// MarshalJSON writes the layout selected by Shape.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	switch r.Shape {
	case ShapeFlat:
		credits := r.Credits
		if credits == nil {
			credits = []Credit{}
		}
		return json.Marshal(flatWire{Credits: credits, Metadata: r.Metadata})
	default:
		resume := r.Resume
		if resume == nil {
			resume = []Category{}
		}
		return json.Marshal(hierarchicalWire{Resume: resume, ResumeShowYears: r.ResumeShowYears, Metadata: r.Metadata})
	}
}

// AllCredits returns every credit regardless of shape, in document order.
func (r *ExtractionResult) AllCredits() []Credit {
	if r.Shape == ShapeFlat {
		return r.Credits
	}
	var out []Credit
	for _, cat := range r.Resume {
		out = append(out, cat.Credits...)
	}
	return out
}

// DecodeExtraction converts a generic JSON tree (as produced by encoding/json) into the typed view.
func DecodeExtraction(value any) (*ExtractionResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var result ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UnmarshalJSON decodes a credit, tolerating a non-array attachedMedia value.
func (c *Credit) UnmarshalJSON(data []byte) error {
	type plain Credit
	var wire struct {
		plain
		AttachedMedia json.RawMessage `json:"attachedMedia"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Credit(wire.plain)
	c.AttachedMedia = []any{}
	if isJSONArray(wire.AttachedMedia) {
		_ = json.Unmarshal(wire.AttachedMedia, &c.AttachedMedia)
	}
	return nil
}

// UnmarshalJSON decodes a category. A credits value that is not an array is treated as absent.
func (c *Category) UnmarshalJSON(data []byte) error {
	var wire struct {
		Category   Text            `json:"category"`
		CategoryID Text            `json:"categoryId"`
		Credits    json.RawMessage `json:"credits"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Category{Category: wire.Category, CategoryID: wire.CategoryID}
	if isJSONArray(wire.Credits) {
		c.Credits = decodeCredits(wire.Credits)
	}
	return nil
}

// decodeCategories decodes element by element so one malformed entry does not discard the rest.
func decodeCategories(raw json.RawMessage) []Category {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []Category{}
	}
	cats := make([]Category, 0, len(elems))
	for _, elem := range elems {
		var cat Category
		if err := json.Unmarshal(elem, &cat); err != nil {
			cat = Category{}
		}
		cats = append(cats, cat)
	}
	return cats
}

func decodeCredits(raw json.RawMessage) []Credit {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []Credit{}
	}
	credits := make([]Credit, 0, len(elems))
	for _, elem := range elems {
		var credit Credit
		if err := json.Unmarshal(elem, &credit); err != nil {
			credit = Credit{}
		}
		credits = append(credits, credit)
	}
	return credits
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
