package questiongen

import "github.com/abhisek/deepread/internal/llm"

// QuestionsSchema defines the JSON schema for question batch responses.
var QuestionsSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "Open-ended practice questions for one concept at one depth level",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly 3 questions, in the order they should be asked",
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
