// Package concepts extracts teachable concepts from a book title and assigns
// each one a depth target.
package concepts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/llm"
)

var (
	// ErrMissingTitle is returned when no book title is given.
	ErrMissingTitle = errors.New("book title is required")

	// ErrNoConcepts is returned when depth assignment gets no concepts.
	ErrNoConcepts = errors.New("at least one concept is required")

	// ErrGenerationUnavailable wraps the reason a result fell back to
	// local defaults.
	ErrGenerationUnavailable = errors.New("concept generation unavailable")
)

// Source records where a result came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Cache stores extracted concept lists per book title. Implementations
// normalize the title themselves.
type Cache interface {
	GetConcepts(ctx context.Context, bookTitle string) ([]string, bool, error)
	SetConcepts(ctx context.Context, bookTitle string, concepts []string) error
}

// Config controls the LLM calls.
type Config struct {
	MaxTokens      int
	DepthMaxTokens int
	Temperature    float64
}

// DefaultConfig returns the settings the prompts were written for.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      1000,
		DepthMaxTokens: 1500,
		Temperature:    0.7,
	}
}

// Service extracts concepts and assigns depth targets.
type Service struct {
	provider llm.Provider
	defaults Defaults
	cache    Cache
	cfg      Config
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the concept cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger for fallback and cache warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service. A nil defaults uses Builtin.
func NewService(provider llm.Provider, defaults Defaults, cfg Config, opts ...Option) *Service {
	if defaults == nil {
		defaults = Builtin
	}
	s := &Service{provider: provider, defaults: defaults, cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Extraction is the result of Extract.
type Extraction struct {
	Concepts []string
	Source   Source
	Kind     ListKind

	// Cause is set when Source is SourceFallback.
	Cause error
}

// Extract returns the concepts for a book. Provider or parse failures fall
// back to the Defaults list; the only error is ErrMissingTitle.
func (s *Service) Extract(ctx context.Context, bookTitle string) (*Extraction, error) {
	if strings.TrimSpace(bookTitle) == "" {
		return nil, ErrMissingTitle
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetConcepts(ctx, bookTitle)
		if err != nil {
			s.log.Warn("concept cache read failed", zap.String("book", bookTitle), zap.Error(err))
		} else if ok && len(cached) > 0 {
			return &Extraction{Concepts: cached, Source: SourceCache}, nil
		}
	}

	list, err := s.extract(ctx, bookTitle)
	if err != nil {
		s.log.Warn("concept extraction fell back to defaults", zap.String("book", bookTitle), zap.Error(err))
		return &Extraction{
			Concepts: s.defaults.Concepts(bookTitle),
			Source:   SourceFallback,
			Kind:     Failure,
			Cause:    fmt.Errorf("%w: %w", ErrGenerationUnavailable, err),
		}, nil
	}

	if s.cache != nil {
		if err := s.cache.SetConcepts(ctx, bookTitle, list.Items); err != nil {
			s.log.Warn("concept cache write failed", zap.String("book", bookTitle), zap.Error(err))
		}
	}
	return &Extraction{Concepts: list.Items, Source: SourceLLM, Kind: list.Kind}, nil
}

func (s *Service) extract(ctx context.Context, bookTitle string) (ListResult, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeConcepts)

	req := llm.UserPrompt(extractSystemPrompt, buildExtractMessage(bookTitle))
	req.MaxTokens = s.cfg.MaxTokens
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return ListResult{}, fmt.Errorf("LLM extraction failed: %w", err)
	}
	text, err := resp.Text()
	if err != nil {
		return ListResult{}, err
	}

	list := ParseList(text)
	if !list.OK() {
		return list, errors.New("no concepts in response")
	}
	return list, nil
}
