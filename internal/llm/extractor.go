// Package llm - extractor.go describes the target document layouts rendered into prompts.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Credits")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// RenderFields writes the JSON skeleton listing of schema fields.
func RenderFields(schema ExtractionSchema) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// CreditsSchema returns the extraction schema for a hierarchical credits document.
func CreditsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Credits",
		Description: `You are an expert parser of performer and crew resumes.
Group every professional credit under one category from: Film, Television, Theatre, Commercial,
Print/Fashion, Training, Voice, Stunt, Corporate, MC/Presenting, Extras, Other.`,
		Fields: []SchemaField{
			{
				Name:        "resume",
				Type:        `[{"category": "string", "categoryId": "{{uuid}}", "credits": [{"id": "{{uuid}}", "year": "string", "title": "string", "role": "string", "director": "string", "attachedMedia": []}]}]`,
				Description: "Categories with their credits; title is required on every credit",
				Required:    true,
			},
			{
				Name:        "resumeShowYears",
				Type:        "boolean",
				Description: "true when the source lists years next to credits",
				Required:    true,
			},
		},
	}
}

// CVSchema returns the extraction schema for a sectioned CV document.
func CVSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "CV",
		Description: "You are an expert CV parser. Copy values verbatim from the source text.",
		Fields: []SchemaField{
			{Name: "personalInfo", Type: `{"name": "string", "email": "string", "phone": "string", "location": "string", "website": "string", "summary": "string"}`, Required: true},
			{Name: "education", Type: `[{"institution": "string", "degree": "string", "field": "string", "startDate": "string", "endDate": "string", "gpa": "string"}]`},
			{Name: "experience", Type: `[{"company": "string", "position": "string", "startDate": "string", "endDate": "string", "location": "string", "description": ["string"]}]`, Required: true},
			{Name: "skills", Type: `["string"]`},
		},
	}
}
