package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/unthinkable/alina-support/internal/adapters/http"
	"github.com/unthinkable/alina-support/internal/adapters/llm"
	firestorestore "github.com/unthinkable/alina-support/internal/adapters/storage/firestore"
	memstore "github.com/unthinkable/alina-support/internal/adapters/storage/memory"
	redisstore "github.com/unthinkable/alina-support/internal/adapters/storage/redis"
	sqlitestore "github.com/unthinkable/alina-support/internal/adapters/storage/sqlite"
	"github.com/unthinkable/alina-support/internal/app/conversation"
	"github.com/unthinkable/alina-support/internal/config"
	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger().Error("alina-api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	log.Info("llm provider ready", "provider", provider.Name(), "model", cfg.LLM.Model)

	store, closer, err := newStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info("history store ready", "backend", cfg.Store.Backend, "max_messages", cfg.Store.MaxMessages)

	svc := conversation.NewService(store,
		llm.NewGateway(provider, cfg.LLM.Timeout),
		llm.NewSummarizer(provider, cfg.LLM.Timeout),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(svc, httpadapter.Options{AllowedOrigins: cfg.AllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Alina API listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		p, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey:   cfg.APIKey,
			Project:  cfg.GCPProject,
			Location: cfg.GCPLocation,
			Model:    cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing gemini provider: %w", err)
		}
		return p, nil
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
		}), nil
	default:
		return llm.NewMockProvider(), nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newStore(ctx context.Context, cfg config.StoreConfig) (domain.HistoryStore, io.Closer, error) {
	switch cfg.Backend {
	case "redis":
		client, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return redisstore.NewStore(client, cfg.MaxMessages, cfg.KeyPrefix), client, nil

	case "sqlite":
		s, err := sqlitestore.Open(cfg.SQLitePath, cfg.MaxMessages)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s, nil

	case "firestore":
		s, err := firestorestore.NewStore(ctx, cfg.GCPProject, cfg.MaxMessages)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		return s, s, nil

	default:
		return memstore.NewHistoryStore(cfg.MaxMessages), nopCloser{}, nil
	}
}
