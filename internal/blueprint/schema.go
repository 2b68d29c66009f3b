package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/paperforge/paperforge/internal/common"
)

// buildSchema returns the JSON-Schema for a submitted blueprint document.
func buildSchema() map[string]any {
	typeProp := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"question_count": map[string]any{"type": "integer", "minimum": 1},
			"difficulty":     map[string]any{"type": "string"},
			"types": map[string]any{
				"type":  "array",
				"items": typeProp,
			},
			"overrides": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"position":     map[string]any{"type": "integer", "minimum": 1},
						"type":         typeProp,
						"difficulty":   typeProp,
						"instructions": map[string]any{"type": "string"},
					},
					"required": []string{"position"},
				},
			},
		},
		"required": []string{"question_count"},
	}
}

// Parse decodes and schema-checks a raw blueprint document.
func Parse(data []byte) (Blueprint, error) {
	if err := validateAgainstSchema(buildSchema(), data); err != nil {
		return Blueprint{}, common.NewAppError("VALIDATION", "blueprint does not match schema", common.ErrValidation)
	}
	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return Blueprint{}, common.NewAppError("VALIDATION", "decode blueprint", common.ErrValidation)
	}
	return bp, nil
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("blueprint.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("blueprint.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
