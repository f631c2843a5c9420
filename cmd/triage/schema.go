package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var schemaYes bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the database schema",
}

var schemaUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runSchema(true),
}

var schemaDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration, dropping the triage tables",
	Args:  cobra.NoArgs,
	RunE:  runSchema(false),
}

func init() {
	schemaDownCmd.Flags().BoolVar(&schemaYes, "yes", false, "Confirm dropping the triage tables")
	schemaCmd.AddCommand(schemaUpCmd)
	schemaCmd.AddCommand(schemaDownCmd)
}

func runSchema(up bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if !up && !schemaYes {
			return errors.New("refusing to drop the triage tables without --yes")
		}

		ctx := cmd.Context()
		cfg, logger, err := setup("triage_schema")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		db, err := openDB(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		if up {
			if err := db.CreateSchema(ctx); err != nil {
				return err
			}
			stepOK(out, "Tablas creadas/verificadas correctamente")
			return nil
		}

		if err := db.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		stepOK(out, "Tablas eliminadas")
		return nil
	}
}
