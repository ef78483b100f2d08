package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// insertSchema describes the body of POST /api/v1/rays. Omitted attributes are
// filled in by the placement generator.
const insertSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["x", "y"],
	"properties": {
		"x": {"type": "number"},
		"y": {"type": "number"},
		"orientation": {"type": "number"},
		"speed": {"type": "number", "exclusiveMinimum": 0},
		"width": {"type": "number", "minimum": 0}
	},
	"additionalProperties": false
}`

// errInvalidBody marks a request body that failed schema validation.
var errInvalidBody = errors.New("request body does not match schema")

// validator validates decoded JSON documents against a compiled schema.
type validator struct {
	schema *gojsonschema.Schema
}

func newValidator(schema string) (*validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &validator{schema: s}, nil
}

// Validate checks doc and returns every violation in one error.
func (v *validator) Validate(doc any) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", errInvalidBody, strings.Join(msgs, "; "))
	}
	return nil
}
