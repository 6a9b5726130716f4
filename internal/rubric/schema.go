package rubric

import (
	"fmt"
	"sync"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/llm"
)

var schemas sync.Map // depth.Level -> *llm.Schema

// SchemaFor returns the response schema for a level's factor set. Levels
// outside 1..6 share Reframe's schema, matching depth.Factors.
func SchemaFor(level int) *llm.Schema {
	key := depth.Level(depth.Clamp(level, int(depth.Reframe)))
	if s, ok := schemas.Load(key); ok {
		return s.(*llm.Schema)
	}
	s, _ := schemas.LoadOrStore(key, buildSchema(key))
	return s.(*llm.Schema)
}

func buildSchema(level depth.Level) *llm.Schema {
	factors := depth.Factors(int(level))

	props := make(map[string]any, len(factors))
	required := make([]any, len(factors))
	for i, w := range factors {
		props[string(w.Factor)] = map[string]any{
			"type":        "number",
			"description": fmt.Sprintf("Score for %s from 0 to 10", w.Factor),
		}
		required[i] = string(w.Factor)
	}

	return &llm.Schema{
		Name:        fmt.Sprintf("insight-evaluation-level-%d", level),
		Description: fmt.Sprintf("Rubric scores for a %s answer", level),
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"factors": map[string]any{
					"type":                 "object",
					"properties":           props,
					"required":             required,
					"additionalProperties": false,
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Brief feedback on strengths and weaknesses, under %d characters", MaxExplanation),
				},
			},
			"required":             []any{"factors", "explanation"},
			"additionalProperties": false,
		},
	}
}
