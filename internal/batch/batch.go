// Package batch drives the classification of a set of incidents: one model
// call per record, persistence of each result and a run summary.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/internal/database"
	"github.com/kamilpajak/incident-triage/internal/llm"
	"github.com/kamilpajak/incident-triage/internal/logging"
	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// Metric names written at the end of a run.
const (
	MetricProcessed     = "batch_processed"
	MetricFailed        = "batch_failed"
	MetricAvgLatency    = "batch_avg_latency_ms"
	MetricLowConfidence = "batch_low_confidence"
)

// IDLayout is the time layout of generated batch ids.
const IDLayout = "20060102_150405"

// NewBatchID returns the default batch id for t.
func NewBatchID(t time.Time) string {
	return "BATCH_" + t.Format(IDLayout)
}

// Classifier classifies one incident.
type Classifier interface {
	Classify(ctx context.Context, rec triage.IncidentRecord) (triage.ClassificationResult, error)
	Model() string
}

// Store persists results. *database.DB implements it.
type Store interface {
	TestConnection(ctx context.Context) bool
	CreateSchema(ctx context.Context) error
	EnsureEmbeddingSchema(ctx context.Context) error
	SaveResult(ctx context.Context, p database.SaveParams) bool
	SaveEmbedding(ctx context.Context, incidentID, model string, embedding []float32) bool
	SaveMetric(ctx context.Context, name string, value float64, metadata map[string]any) bool
}

// Printer renders each successful classification.
type Printer interface {
	PrintResult(rec triage.IncidentRecord, res triage.ClassificationResult)
}

// Params configures a batch run.
type Params struct {
	Records    []triage.IncidentRecord
	BatchID    string
	RunID      string // generated when empty
	DryRun     bool
	Limit      int // 0 means no limit
	Classifier Classifier
	Store      Store        // unused in dry runs
	Embedder   llm.Embedder // optional
	Printer    Printer      // optional
	Emitter    llm.ProgressEmitter
	Logger     *zap.Logger

	MetricsEnabled      bool
	ConfidenceThreshold float64
}

// Outcome is the result of one record. Err is set when the record could not
// be classified; Result is then the zero value.
type Outcome struct {
	Record triage.IncidentRecord
	Result triage.ClassificationResult
	Err    error
	Saved  bool
}

// Summary describes a finished run.
type Summary struct {
	BatchID       string
	RunID         string
	Model         string
	Total         int
	Processed     int
	Failed        int
	LowConfidence int
	AvgLatencyMS  float64
	DryRun        bool
	// Aborted is set when the store was unreachable and no record was
	// processed.
	Aborted  bool
	Outcomes []Outcome
}

// Results returns the successful classifications in input order.
func (s *Summary) Results() []triage.ClassificationResult {
	results := make([]triage.ClassificationResult, 0, s.Processed)
	for _, o := range s.Outcomes {
		if o.Err == nil {
			results = append(results, o.Result)
		}
	}
	return results
}

// Run classifies p.Records in order. A record that fails is logged and
// skipped; only store preparation errors abort the run.
func Run(ctx context.Context, p Params) (*Summary, error) {
	if p.Classifier == nil {
		return nil, fmt.Errorf("classifier required")
	}
	if !p.DryRun && p.Store == nil {
		return nil, fmt.Errorf("store required unless dry run")
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
	logger := logging.OrNop(p.Logger).With(
		zap.String("batch_id", p.BatchID),
		zap.String("run_id", p.RunID),
	)

	records := p.Records
	if p.Limit > 0 && len(records) > p.Limit {
		records = records[:p.Limit]
		logger.Info("Limitando incidencias", zap.Int("limit", p.Limit))
	}

	summary := &Summary{
		BatchID: p.BatchID,
		RunID:   p.RunID,
		Model:   p.Classifier.Model(),
		Total:   len(records),
		DryRun:  p.DryRun,
	}
	logger.Info("Procesando batch", zap.Int("total", len(records)), zap.Bool("dry_run", p.DryRun))
	llm.Emit(p.Emitter, llm.ProgressEvent{
		Type:    llm.EventInfo,
		Total:   len(records),
		Message: fmt.Sprintf("Procesando %d incidencias (batch %s)", len(records), p.BatchID),
	})

	embedder := p.Embedder
	if !p.DryRun {
		if !p.Store.TestConnection(ctx) {
			logger.Error("No se pudo conectar a la base de datos")
			summary.Aborted = true
			return summary, nil
		}
		if err := p.Store.CreateSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		if embedder != nil {
			if err := p.Store.EnsureEmbeddingSchema(ctx); err != nil {
				logger.Warn("Embeddings deshabilitados", zap.Error(err))
				embedder = nil
			}
		}
	} else {
		embedder = nil
	}

	var latency int64
	for i, rec := range records {
		step := i + 1
		log := logger.With(zap.String("ticket_id", rec.TicketID), zap.Int("row", rec.Row))
		log.Info("Procesando incidencia")
		llm.Emit(p.Emitter, llm.ProgressEvent{Type: llm.EventClassify, Ticket: rec.TicketID, Step: step, Total: len(records)})

		res, err := p.Classifier.Classify(ctx, rec)
		if err != nil {
			log.Error("Error al procesar incidencia", zap.Error(err))
			llm.Emit(p.Emitter, llm.ProgressEvent{Type: llm.EventError, Ticket: rec.TicketID, Step: step, Total: len(records), Message: err.Error()})
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, Outcome{Record: rec, Err: err})
			continue
		}

		outcome := Outcome{Record: rec, Result: res}
		if !p.DryRun {
			outcome.Saved = p.Store.SaveResult(ctx, database.SaveParams{Record: rec, Result: res, BatchID: p.BatchID})
			if outcome.Saved {
				log.Info("Resultado guardado en BD")
			} else {
				log.Warn("No se pudo guardar resultado")
			}
			if embedder != nil {
				saveEmbedding(ctx, log, p.Store, embedder, rec)
			}
		}

		llm.Emit(p.Emitter, llm.ProgressEvent{Type: llm.EventDone, Ticket: rec.TicketID, Step: step, Total: len(records), ElapsedMS: res.ProcessingMS})
		if p.Printer != nil {
			p.Printer.PrintResult(rec, res)
		}

		summary.Processed++
		latency += res.ProcessingMS
		if res.LowConfidence(p.ConfidenceThreshold) {
			summary.LowConfidence++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	if summary.Processed > 0 {
		summary.AvgLatencyMS = float64(latency) / float64(summary.Processed)
	}
	if p.MetricsEnabled && !p.DryRun {
		saveMetrics(ctx, p.Store, summary)
	}

	logger.Info("Batch completado",
		zap.Int("processed", summary.Processed),
		zap.Int("total", summary.Total),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// embeddingText is the text embedded for an incident.
func embeddingText(rec triage.IncidentRecord) string {
	return strings.TrimSpace(rec.Summary + "\n" + rec.Notes)
}

func saveEmbedding(ctx context.Context, log *zap.Logger, store Store, embedder llm.Embedder, rec triage.IncidentRecord) {
	vec, err := embedder.Embed(ctx, embeddingText(rec))
	if err != nil {
		log.Warn("No se pudo generar embedding", zap.Error(err))
		return
	}
	if !store.SaveEmbedding(ctx, rec.TicketID, embedder.Model(), vec) {
		log.Warn("No se pudo guardar embedding")
	}
}

func saveMetrics(ctx context.Context, store Store, s *Summary) {
	meta := map[string]any{
		"batch_id": s.BatchID,
		"run_id":   s.RunID,
		"model":    s.Model,
	}
	store.SaveMetric(ctx, MetricProcessed, float64(s.Processed), meta)
	store.SaveMetric(ctx, MetricFailed, float64(s.Failed), meta)
	store.SaveMetric(ctx, MetricAvgLatency, s.AvgLatencyMS, meta)
	store.SaveMetric(ctx, MetricLowConfidence, float64(s.LowConfidence), meta)
}
