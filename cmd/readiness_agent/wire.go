package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/readiness-agent/internal/analysis"
	"github.com/jonathan/readiness-agent/internal/config"
	"github.com/jonathan/readiness-agent/internal/llm"
	"github.com/jonathan/readiness-agent/internal/mail"
	"github.com/jonathan/readiness-agent/internal/pipeline"
	"github.com/jonathan/readiness-agent/internal/report"
	"github.com/jonathan/readiness-agent/internal/store"
)

// app bundles the wired pipeline with the resources it owns.
type app struct {
	cfg       config.Config
	store     *store.Postgres
	llmClient *llm.GeminiClient
	processor *pipeline.Processor
}

// resolveConfig layers an optional config file over env and defaults.
func resolveConfig(configPath string) (config.Config, error) {
	var fileCfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		fileCfg = loaded
	}
	return config.Resolve(fileCfg)
}

// buildApp connects to the record store and wires the three stage functions
// into a processor.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	deliverer, err := mail.NewClient(mail.Config{
		APIKey:    cfg.SendGridAPIKey,
		BaseURL:   cfg.SendGridBaseURL,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	})
	if err != nil {
		llmClient.Close()
		st.Close()
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	analyzer := analysis.NewAnalyzer(llmClient, 0)
	renderer := report.NewRenderer(0)
	leaseTTL := time.Duration(cfg.LeaseTTLSeconds) * time.Second

	return &app{
		cfg:       cfg,
		store:     st,
		llmClient: llmClient,
		processor: pipeline.NewProcessor(st, analyzer, renderer, deliverer, leaseTTL),
	}, nil
}

func (a *app) close() {
	if a.llmClient != nil {
		_ = a.llmClient.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// runner builds the background poller lifecycle from the app's config.
func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(
		a.processor,
		time.Duration(a.cfg.PollIntervalSeconds)*time.Second,
		a.cfg.PollBatchSize,
		time.Duration(a.cfg.RecordDelaySeconds)*time.Second,
	)
}
