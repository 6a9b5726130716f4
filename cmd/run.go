package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/concepts"
	"github.com/abhisek/deepread/internal/llm"
	"github.com/abhisek/deepread/internal/pgstore"
	"github.com/abhisek/deepread/internal/practice"
	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
	"github.com/abhisek/deepread/internal/store"
)

// services are the components shared by serve, practice and concepts.
type services struct {
	store     *store.Store
	pg        *pgstore.Store
	provider  llm.Provider
	concepts  *concepts.Service
	questions *questiongen.LLMGenerator
	evaluator *rubric.LLMEvaluator
}

// buildServices opens the local store and builds the LLM-backed services.
// Without a configured provider every call fails and each service uses its
// local fallback.
func buildServices(ctx context.Context, cmd *cobra.Command, opts ...concepts.Option) (*services, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}

	events := st.EventRepo()
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger)
	if err != nil {
		logger.Warn("LLM provider not configured, using local fallbacks", zap.Error(err))
		mock := cfg.LLM
		mock.Provider = "mock"
		if provider, err = llm.NewProvider(ctx, mock, events, logger); err != nil {
			st.Close()
			return nil, err
		}
	}

	opts = append(opts, concepts.WithLogger(logger))
	return &services{
		store:     st,
		provider:  provider,
		concepts:  concepts.NewService(provider, concepts.Builtin, concepts.DefaultConfig(), opts...),
		questions: questiongen.New(provider, questiongen.DefaultConfig(), logger),
		evaluator: rubric.NewLLMEvaluator(provider, rubric.DefaultConfig()),
	}, nil
}

// persister returns where practice responses go: the Supabase database
// with a local copy when a DSN is configured, otherwise the local store.
func (s *services) persister(ctx context.Context) (practice.Persister, error) {
	local := s.store.PracticeRepo()
	if cfg.Postgres.DSN == "" {
		return local, nil
	}
	pg, err := pgstore.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	s.pg = pg
	return practice.Mirror{Primary: pg, Copies: []practice.Persister{local}, Logger: logger}, nil
}

func (s *services) Close() error {
	if s.pg != nil {
		if err := s.pg.Close(); err != nil {
			logger.Warn("close postgres", zap.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
