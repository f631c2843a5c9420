package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, test the database connection and create the tables",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func stepOK(w io.Writer, format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

func stepFailed(w io.Writer, format string, args ...any) {
	_, _ = color.New(color.FgRed).Fprintf(w, "✗ "+format+"\n", args...)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, logger, err := setup("test_connection")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Iniciando prueba de conexión")

	if err := cfg.Validate(); err != nil {
		stepFailed(out, "Error en configuración: %v", err)
		return err
	}
	stepOK(out, "Configuración validada correctamente")
	fmt.Fprintf(out, "  - DB Host: %s\n", cfg.DBHost)
	fmt.Fprintf(out, "  - DB Name: %s\n", cfg.DBName)
	fmt.Fprintf(out, "  - DB User: %s\n", cfg.DBUser)
	fmt.Fprintf(out, "  - DB SSL mode: %s\n", cfg.DBSSLMode)

	db, err := openDB(ctx, cfg, logger)
	if err != nil {
		stepFailed(out, "Error al inicializar el pool de conexiones: %v", err)
		return err
	}
	defer db.Close()
	stepOK(out, "Pool de conexiones inicializado")

	if !db.TestConnection(ctx) {
		stepFailed(out, "Fallo en conexión a la base de datos")
		return errors.New("database connection failed")
	}
	stepOK(out, "Conexión a la base de datos exitosa")

	if err := db.CreateSchema(ctx); err != nil {
		stepFailed(out, "Error al crear tablas: %v", err)
		return err
	}
	stepOK(out, "Tablas creadas/verificadas correctamente")

	if cfg.EmbeddingsEnabled {
		if err := db.EnsureEmbeddingSchema(ctx); err != nil {
			stepFailed(out, "Error al crear tabla de embeddings: %v", err)
			return err
		}
		stepOK(out, "Tabla de embeddings creada/verificada")
	}

	logger.Info("Prueba completada exitosamente", zap.String("host", cfg.DBHost))
	return nil
}
