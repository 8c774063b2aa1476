package schemas

import (
	_ "embed"

	"github.com/xeipuuv/gojsonschema"
)

// BaselineSchema is the JSON Schema for consensus baseline corpus files.
//
//go:embed baseline.schema.json
var BaselineSchema string

// ValidateBaselineCorpus checks raw corpus file content against BaselineSchema.
func ValidateBaselineCorpus(content []byte) error {
	return validate(
		"(embedded baseline schema)",
		gojsonschema.NewStringLoader(BaselineSchema),
		gojsonschema.NewBytesLoader(content),
	)
}

// ValidateValue validates an in-memory Go value against schema content.
func ValidateValue(schemaContent string, value any) error {
	return validate(
		"(string schema)",
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewGoLoader(value),
	)
}
