package questiongen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/llm"
)

// LLMGenerator implements Generator using the LLM provider, falling back to
// templates when the provider cannot produce a usable batch.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	log      *zap.Logger
}

// New creates a new LLMGenerator. log may be nil.
func New(provider llm.Provider, cfg Config, log *zap.Logger) *LLMGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &LLMGenerator{provider: provider, config: cfg, log: log}
}

// questionsOutput is the raw LLM response before validation.
type questionsOutput struct {
	Questions []string `json:"questions"`
}

// Generate never returns an error; failures produce a fallback batch.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) (*Batch, error) {
	questions, err := g.generate(ctx, input)
	if err != nil {
		g.log.Warn("question generation fell back to templates",
			zap.String("concept", input.Concept),
			zap.Int("level", input.Level),
			zap.Error(err))
		return fallbackBatch(input, err), nil
	}
	return &Batch{Questions: questions, Source: SourceLLM}, nil
}

func (g *LLMGenerator) generate(ctx context.Context, input Input) ([]string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestions)

	req := llm.UserPrompt(systemPrompt(), buildUserMessage(input))
	req.Schema = QuestionsSchema
	req.MaxTokens = g.config.MaxTokens
	req.Temperature = g.config.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionsOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	return g.usable(raw.Questions, input)
}

// usable returns the first BatchSize questions that pass every validator.
func (g *LLMGenerator) usable(candidates []string, input Input) ([]string, error) {
	validators := append(append([]Validator{}, g.config.Validators...), &DuplicateValidator{})

	out := make([]string, 0, BatchSize)
	var lastErr error
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if verr := runValidators(validators, q, input); verr != nil {
			lastErr = verr
			continue
		}
		out = append(out, q)
		if len(out) == BatchSize {
			return out, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("only %d usable questions: %w", len(out), lastErr)
	}
	return nil, fmt.Errorf("only %d usable questions", len(out))
}

func runValidators(validators []Validator, q string, input Input) *ValidationError {
	for _, v := range validators {
		if verr := v.Validate(q, input); verr != nil {
			return verr
		}
	}
	return nil
}

func normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
