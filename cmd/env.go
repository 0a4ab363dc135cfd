package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/metrics"
	"github.com/agchaparroh/noticias-pipeline/internal/pipeline"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

// env bundles the collaborators a command needs to run the pipeline.
type env struct {
	Store       store.Store
	Coordinator *pipeline.Coordinator
	Metrics     *metrics.Aggregator
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured storage backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv builds the store, external clients, metrics aggregator and
// coordinator from config. Clients are constructed once here and
// injected everywhere.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.Key,
		Model:          cfg.LLM.Model,
		MaxTokens:      int64(cfg.LLM.MaxTokens),
		Timeout:        time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		RequestsPerMin: cfg.LLM.RequestsPerMin,
	})
	scorer := scoring.NewClient(cfg.Scoring.BaseURL, time.Duration(cfg.Scoring.TimeoutSecs)*time.Second)

	agg := metrics.New(cfg.Metrics.CountFallbackAsError)
	coord := pipeline.New(cfg, llmClient, scorer, st, agg)

	return &env{
		Store:       st,
		Coordinator: coord,
		Metrics:     agg,
	}, nil
}
