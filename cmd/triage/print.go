package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kamilpajak/incident-triage/internal/batch"
	"github.com/kamilpajak/incident-triage/internal/database"
	"github.com/kamilpajak/incident-triage/pkg/triage"
)

const (
	ruleWidth        = 80
	reasoningExcerpt = 200
	topKeywords      = 5
)

const (
	modeDryRun     = "DRY-RUN (no guardado en BD)"
	modeProduction = "PRODUCCIÓN (guardado en BD)"
)

var rule = strings.Repeat("=", ruleWidth)

// consolePrinter renders each classification as it completes.
type consolePrinter struct {
	w io.Writer
}

func (p consolePrinter) PrintResult(_ triage.IncidentRecord, res triage.ClassificationResult) {
	printResult(p.w, res)
}

func printResult(w io.Writer, r triage.ClassificationResult) {
	bold := color.New(color.Bold)

	fmt.Fprintf(w, "\n%s\n", rule)
	_, _ = bold.Fprintf(w, "Ticket: %s\n", r.TicketID)
	fmt.Fprintf(w, "Causa Raíz: %s\n", r.RootCause)
	printConfidenceBar(w, r.Confidence)
	fmt.Fprintf(w, "Razonamiento: %s\n", triage.Excerpt(r.Reasoning, reasoningExcerpt))
	fmt.Fprintf(w, "Keywords: %s\n", strings.Join(r.TopKeywords(topKeywords), ", "))
	fmt.Fprintf(w, "Tiempo: %dms\n", r.ProcessingMS)
	fmt.Fprintf(w, "%s\n\n", rule)
}

func printConfidenceBar(w io.Writer, confidence float64) {
	const barWidth = 24
	pct := confidence * 100
	filled := int(pct) * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	var barColor *color.Color
	switch {
	case pct >= 80:
		barColor = color.New(color.FgGreen)
	case pct >= 40:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(w, "Confianza: %.2f%% ", pct)
	_, _ = barColor.Fprintln(w, bar)
}

func printSummary(w io.Writer, s *batch.Summary) {
	bold := color.New(color.Bold)

	fmt.Fprintf(w, "\n%s\n", rule)
	_, _ = bold.Fprintln(w, "RESUMEN DEL PROCESAMIENTO")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Batch ID: %s\n", s.BatchID)
	fmt.Fprintf(w, "Total incidencias: %d\n", s.Total)
	fmt.Fprintf(w, "Procesadas exitosamente: %d\n", s.Processed)
	if s.Failed > 0 {
		_, _ = color.New(color.FgRed).Fprintf(w, "Fallidas: %d\n", s.Failed)
	}
	if s.Aborted {
		_, _ = color.New(color.FgRed).Fprintln(w, "No se pudo conectar a la base de datos")
	}
	mode := modeProduction
	if s.DryRun {
		mode = modeDryRun
	}
	fmt.Fprintf(w, "Modo: %s\n", mode)
	fmt.Fprintf(w, "%s\n\n", rule)
}

// rowResult converts a stored row back into the result it was saved from.
func rowResult(r database.TriageRow) triage.ClassificationResult {
	return triage.ClassificationResult{
		TicketID:     r.IncidentID,
		RootCause:    r.RootCause,
		Confidence:   r.Confidence,
		Reasoning:    r.Reasoning,
		Keywords:     r.Keywords,
		Alternatives: r.Alternatives,
		ProcessingMS: r.ProcessingMS,
		ModelVersion: r.ModelVersion,
	}
}

func printRow(w io.Writer, r database.TriageRow) {
	dim := color.New(color.FgHiBlack)

	printResult(w, rowResult(r))
	batchID := "-"
	if r.BatchID != nil {
		batchID = *r.BatchID
	}
	_, _ = dim.Fprintf(w, "Batch: %s | Modelo: %s | Procesado: %s\n",
		batchID, r.ModelVersion, r.ProcessedAt.Format("2006-01-02 15:04:05"))
	for _, alt := range r.Alternatives {
		_, _ = dim.Fprintf(w, "  Alternativa: %s (%.0f%%)\n", alt.Cause, alt.Probability*100)
	}
}

func printMetrics(w io.Writer, metrics []database.Metric) {
	if len(metrics) == 0 {
		return
	}
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(w, "MÉTRICAS")
	for _, m := range metrics {
		fmt.Fprintf(w, "  %s: %.2f (%s)\n", m.Name, m.Value, m.Timestamp.Format("2006-01-02 15:04:05"))
	}
}
