package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/internal/config"
	"github.com/kamilpajak/incident-triage/internal/database"
	"github.com/kamilpajak/incident-triage/internal/llm"
	"github.com/kamilpajak/incident-triage/internal/logging"
)

// setup loads the configuration, creates the data and log directories and
// builds the logger for the named command.
func setup(name string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{
		Name:       name,
		Level:      cfg.LogLevel,
		Structured: cfg.StructuredLogging,
		Dir:        cfg.LogDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func openDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	db, err := database.New(ctx, database.Options{
		URL:         cfg.DatabaseURL(),
		PoolSize:    cfg.DBPoolSize,
		MaxOverflow: cfg.DBMaxOverflow,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Error al inicializar motor de base de datos", zap.Error(err))
		return nil, err
	}
	return db, nil
}

func llmOptions(cfg *config.Config) llm.Options {
	return llm.Options{
		Provider:        llm.Provider(cfg.LLMProvider),
		Model:           cfg.ModelID,
		EmbeddingModel:  cfg.EmbeddingModelID,
		Region:          cfg.AWSRegion,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
	}
}
