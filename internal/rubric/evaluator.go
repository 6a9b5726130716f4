package rubric

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/llm"
)

// Evaluator scores a free-text answer at a depth level.
type Evaluator interface {
	// Evaluate scores answer against promptContext, the insight or question
	// the learner responded to. Failures wrap ErrEvaluationUnavailable.
	Evaluate(ctx context.Context, answer, promptContext string, level int) (*Result, error)
}

// Config holds configuration for the LLM evaluator.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the evaluator defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0.7,
	}
}

// LLMEvaluator asks an LLM for per-factor scores and computes the weighted
// score locally.
type LLMEvaluator struct {
	provider llm.Provider
	cfg      Config
}

// NewLLMEvaluator creates an evaluator backed by provider.
func NewLLMEvaluator(provider llm.Provider, cfg Config) *LLMEvaluator {
	return &LLMEvaluator{provider: provider, cfg: cfg}
}

// evaluationOutput is the raw LLM response.
type evaluationOutput struct {
	Factors     map[string]float64 `json:"factors"`
	Explanation string             `json:"explanation"`
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, answer, promptContext string, level int) (*Result, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeEvaluation)

	factors := depth.Factors(level)
	req := llm.UserPrompt(buildSystemPrompt(level, factors), buildUserMessage(promptContext, answer))
	req.Schema = SchemaFor(level)
	req.MaxTokens = e.cfg.MaxTokens
	req.Temperature = e.cfg.Temperature

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluationUnavailable, err)
	}

	var raw evaluationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse evaluation response: %w", ErrEvaluationUnavailable, err)
	}

	return Score(factors, raw.Factors, raw.Explanation)
}
