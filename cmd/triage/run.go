package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/internal/batch"
	"github.com/kamilpajak/incident-triage/internal/classifier"
	"github.com/kamilpajak/incident-triage/internal/ingest"
	"github.com/kamilpajak/incident-triage/internal/llm"
)

func runTriage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch strings.ToLower(reportFormat) {
	case "", batch.FormatYAML, "yml", batch.FormatJSON:
	default:
		return fmt.Errorf("unknown report format %q (want yaml or json)", reportFormat)
	}

	cfg, logger, err := setup("triage_main")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Validando configuración")
	if err := cfg.Validate(); err != nil {
		logger.Error("Error en ejecución principal", zap.Error(err))
		return err
	}
	logger.Info("Configuración válida")

	id := batchID
	if id == "" {
		id = batch.NewBatchID(time.Now())
	}

	logger.Info("Cargando incidencias", zap.String("input", inputPath))
	records, err := ingest.Load(inputPath)
	if err != nil {
		logger.Error("Error al cargar archivo", zap.String("input", inputPath), zap.Error(err))
		return err
	}
	logger.Info("Incidencias cargadas", zap.Int("count", len(records)))

	model, err := llm.NewChatModel(ctx, llmOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	params := batch.Params{
		Records:             records,
		BatchID:             id,
		DryRun:              dryRun,
		Limit:               limit,
		Classifier:          classifier.New(llm.Limit(model, cfg.RequestsPerSecond), logger),
		Printer:             consolePrinter{w: cmd.OutOrStdout()},
		Logger:              logger,
		MetricsEnabled:      cfg.CustomMetricsEnabled,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}

	if !dryRun {
		db, err := openDB(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		params.Store = db

		if cfg.EmbeddingsEnabled {
			embedder, err := llm.NewEmbedder(ctx, llmOptions(cfg))
			if err != nil {
				logger.Warn("Embeddings deshabilitados", zap.Error(err))
			} else {
				params.Embedder = embedder
			}
		}
	}

	progress := newProgress(cmd.ErrOrStderr())
	params.Emitter = progress
	summary, err := batch.Run(ctx, params)
	progress.Close()
	if err != nil {
		logger.Error("Error en ejecución principal", zap.Error(err))
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)

	if reportFormat != "" {
		path, err := batch.WriteReport(cfg.DataDir, reportFormat, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report: %s\n", path)
	}

	logger.Info("Procesamiento completado exitosamente")
	return nil
}
