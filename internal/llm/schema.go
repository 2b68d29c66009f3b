package llm

import "github.com/paperforge/paperforge/constants"

// BuildQuestionJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the provider as an output constraint and also use
// it locally to validate what came back.
func BuildQuestionJSONSchema(qt constants.QuestionType) map[string]any {
	props := map[string]any{
		"prompt": map[string]any{"type": "string", "minLength": 1},
	}
	required := []string{"prompt"}

	if qt == constants.QuestionMCQ {
		props["options"] = map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "minLength": 1},
			"minItems": 3,
			"maxItems": 5,
		}
		props["correct_index"] = map[string]any{
			"type":    "integer",
			"minimum": 0,
			"maximum": 4,
		}
		required = append(required, "options", "correct_index")
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// BuildAnswerJSONSchema constrains the mark-scheme entry for one question.
func BuildAnswerJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"solution": map[string]any{"type": "string", "minLength": 1},
			"marking_points": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
		},
		"required": []string{"solution"},
	}
}
