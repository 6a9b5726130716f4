package concepts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/llm"
)

// Concept is a named idea with the depth a learner should reach.
type Concept struct {
	Name        string `json:"concept"`
	DepthTarget int    `json:"depth_target"`
}

// Assignment is the result of AssignDepths.
type Assignment struct {
	// Concepts is in input order, one entry per input name.
	Concepts []Concept
	Source   Source

	// Cause is set when Source is SourceFallback.
	Cause error
}

// DepthSchema defines the JSON schema for depth assignment responses.
var DepthSchema = &llm.Schema{
	Name:        "depth-assignment",
	Description: "A depth target from 1 to 6 for each concept",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concepts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"concept": map[string]any{
							"type":        "string",
							"description": "The concept name exactly as given",
						},
						"depth_target": map[string]any{
							"type":        "integer",
							"description": "How deeply the learner should understand the concept, 1 (Recall) to 6 (Remix)",
						},
					},
					"required":             []any{"concept", "depth_target"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"concepts"},
		"additionalProperties": false,
	},
}

type depthOutput struct {
	Concepts []Concept `json:"concepts"`
}

// AssignDepths asks the provider for a depth target per concept. Missing or
// out-of-range targets become depth.DefaultTarget, and any failure assigns
// the default to every concept.
func (s *Service) AssignDepths(ctx context.Context, bookTitle string, names []string) (*Assignment, error) {
	if strings.TrimSpace(bookTitle) == "" {
		return nil, ErrMissingTitle
	}
	if len(names) == 0 {
		return nil, ErrNoConcepts
	}

	assigned, err := s.assign(ctx, bookTitle, names)
	if err != nil {
		s.log.Warn("depth assignment fell back to defaults", zap.String("book", bookTitle), zap.Error(err))
		out := make([]Concept, len(names))
		for i, n := range names {
			out[i] = Concept{Name: n, DepthTarget: depth.DefaultTarget}
		}
		return &Assignment{
			Concepts: out,
			Source:   SourceFallback,
			Cause:    fmt.Errorf("%w: %w", ErrGenerationUnavailable, err),
		}, nil
	}

	return &Assignment{Concepts: merge(names, assigned), Source: SourceLLM}, nil
}

func (s *Service) assign(ctx context.Context, bookTitle string, names []string) ([]Concept, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeDepth)

	req := llm.UserPrompt(depthSystemPrompt, buildDepthMessage(bookTitle, names))
	req.Schema = DepthSchema
	req.MaxTokens = s.cfg.DepthMaxTokens
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM depth assignment failed: %w", err)
	}

	var raw depthOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse depth response: %w", err)
	}
	if len(raw.Concepts) == 0 {
		return nil, errors.New("no depth targets in response")
	}
	return raw.Concepts, nil
}

// merge lines model output up with the requested names. Entries are matched
// by name, case-insensitively; when the model renamed entries but returned
// one per concept, position is used instead.
func merge(names []string, assigned []Concept) []Concept {
	byName := make(map[string]int, len(assigned))
	for _, c := range assigned {
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c.DepthTarget
	}

	out := make([]Concept, len(names))
	for i, n := range names {
		target, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok && len(assigned) == len(names) {
			target, ok = assigned[i].DepthTarget, true
		}
		if !ok {
			target = depth.DefaultTarget
		}
		out[i] = Concept{Name: n, DepthTarget: depth.Clamp(target, depth.DefaultTarget)}
	}
	return out
}
