package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/incident-triage/internal/batch"
)

var (
	showBatch  string
	showReport string
)

var showCmd = &cobra.Command{
	Use:   "show [ticket-id]",
	Short: "Show stored triage results",
	Long: `Show the stored result of one ticket, every result of a batch, or the
contents of a run report.

Examples:
  triage show T-100
  triage show --batch BATCH_20240115_093005
  triage show --report data/BATCH_20240115_093005.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showBatch, "batch", "", "Show every result of a batch")
	showCmd.Flags().StringVar(&showReport, "report", "", "Show a report file written with --report")
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if showReport != "" {
		r, err := batch.ReadReport(showReport)
		if err != nil {
			return err
		}
		for _, res := range r.Results {
			printResult(out, res)
		}
		for _, e := range r.Errors {
			stepFailed(out, "%s (fila %d): %s", e.TicketID, e.Row, e.Error)
		}
		printSummary(out, &batch.Summary{
			BatchID:   r.BatchID,
			Total:     r.Total,
			Processed: r.Processed,
			Failed:    r.Failed,
			DryRun:    r.DryRun,
			Aborted:   r.Aborted,
		})
		return nil
	}

	if len(args) == 0 && showBatch == "" {
		return errors.New("specify a ticket id, --batch or --report")
	}

	ctx := cmd.Context()
	cfg, logger, err := setup("triage_show")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		row, err := db.GetResult(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get result: %w", err)
		}
		if row == nil {
			return fmt.Errorf("no result stored for %s", args[0])
		}
		printRow(out, *row)
		return nil
	}

	rows, err := db.GetBatchResults(ctx, showBatch)
	if err != nil {
		return fmt.Errorf("failed to get batch results: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no results stored for batch %s", showBatch)
	}
	for _, row := range rows {
		printRow(out, row)
	}

	metrics, err := db.GetBatchMetrics(ctx, showBatch)
	if err != nil {
		return fmt.Errorf("failed to get batch metrics: %w", err)
	}
	printMetrics(out, metrics)
	return nil
}
