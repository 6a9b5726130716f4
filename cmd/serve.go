package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/auth"
	"github.com/abhisek/deepread/internal/cache"
	"github.com/abhisek/deepread/internal/concepts"
	"github.com/abhisek/deepread/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API used by the mobile client: concept extraction, depth
assignment, question generation, answer evaluation and, when a Supabase JWT
secret is configured, server-side practice sessions.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conceptCache, err := newConceptCache(ctx)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cmd, concepts.WithCache(conceptCache))
	if err != nil {
		return err
	}
	defer svc.Close()

	persister, err := svc.persister(ctx)
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		Concepts:  svc.concepts,
		Questions: svc.questions,
		Evaluator: svc.evaluator,
		Persister: persister,
		Logger:    logger,
	}
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
		if err != nil {
			return err
		}
		deps.Auth = verifier
		deps.Sessions = httpapi.NewRegistry(cfg.Practice.IdleTimeout, logger)
		if err := deps.Sessions.StartSweeper(cfg.Practice.SweepInterval); err != nil {
			return err
		}
	} else {
		logger.Warn("auth.jwt_secret not set, practice endpoints disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(httpapi.NewHandler(deps), cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", svc.provider.ModelID()))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if deps.Sessions != nil {
		if err := deps.Sessions.Shutdown(shutdownCtx); err != nil {
			logger.Warn("practice responses not saved at shutdown", zap.Error(err))
		}
	}
	return nil
}

// newConceptCache returns the Redis cache when configured, otherwise an
// in-process one.
func newConceptCache(ctx context.Context) (concepts.Cache, error) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory(cfg.Redis.TTL), nil
	}
	client, err := cache.Dial(ctx, cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}
	logger.Info("concept cache connected", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedis(client, cfg.Redis.TTL), nil
}
