package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	inputPath    string
	batchID      string
	dryRun       bool
	limit        int
	reportFormat string
)

var rootCmd = &cobra.Command{
	Use:   "triage --input <file>",
	Short: "Automatic root-cause triage of IT incidents",
	Long: `Classifies the incidents of a CSV or Excel file with an LLM, one ticket at a
time, and stores each predicted root cause in PostgreSQL.

Examples:
  triage --input incidencias.csv
  triage --input incidencias.xlsx --limit 5 --dry-run
  triage --input incidencias.csv --batch-id BATCH_ENERO --report yaml`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTriage,
}

func init() {
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV/Excel file with the incidents")
	rootCmd.Flags().StringVar(&batchID, "batch-id", "", "Batch ID for tracking (default BATCH_YYYYMMDD_HHMMSS)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify without saving to the database")
	rootCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of incidents to process")
	rootCmd.Flags().StringVar(&reportFormat, "report", "", "Write a run report to DATA_DIR (yaml, json)")
	_ = rootCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
