// Package classifier turns one incident into a root-cause classification with
// a single model call.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/internal/llm"
	"github.com/kamilpajak/incident-triage/internal/logging"
	"github.com/kamilpajak/incident-triage/internal/prompts"
	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// Chain binds the prompt template to a chat model.
type Chain struct {
	model  llm.ChatModel
	logger *zap.Logger
}

// New creates a Chain. A nil logger discards output.
func New(model llm.ChatModel, logger *zap.Logger) *Chain {
	return &Chain{model: model, logger: logging.OrNop(logger)}
}

// Model returns the id of the underlying chat model.
func (c *Chain) Model() string {
	return c.model.Model()
}

// Classify renders the prompt for rec, invokes the model and decodes the
// answer. An answer that is not a JSON object yields a parse-error result
// rather than an error; only a failed model call is returned as an error.
func (c *Chain) Classify(ctx context.Context, rec triage.IncidentRecord) (triage.ClassificationResult, error) {
	start := time.Now()
	log := c.logger.With(zap.String("ticket_id", rec.TicketID))

	msgs := prompts.Render(rec.TicketID, rec.Summary, rec.Notes, rec.CreatedAt)
	log.Info("Clasificando incidencia")

	resp, err := c.model.Complete(ctx, []llm.Message{
		{Role: "system", Content: msgs.System},
		{Role: "user", Content: msgs.User},
	})
	if err != nil {
		log.Error("Error al clasificar incidencia", zap.Error(err))
		return triage.ClassificationResult{}, fmt.Errorf("classify %s: %w", rec.TicketID, err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Content)), &fields); err != nil || fields == nil {
		if err == nil {
			err = fmt.Errorf("response is not a JSON object")
		}
		log.Error("Error al parsear respuesta JSON",
			zap.Error(err),
			zap.String("content", resp.Content),
		)
		return triage.ParseErrorResult(rec.TicketID, err, time.Since(start), c.model.Model()), nil
	}

	result := triage.DecodeFields(rec.TicketID, fields)
	result.ProcessingMS = time.Since(start).Milliseconds()
	result.ModelVersion = c.model.Model()

	log.Info("Incidencia clasificada",
		zap.String("causa_raiz_predicha", result.RootCause),
		zap.Float64("confianza", result.Confidence),
		zap.Int64("tiempo_procesamiento_ms", result.ProcessingMS),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return result, nil
}

// Outcome is the result of one record in a batch. Err is set when the model
// call failed, in which case Result holds triage.ErrorResult.
type Outcome struct {
	Record triage.IncidentRecord
	Result triage.ClassificationResult
	Err    error
}

// ClassifyBatch classifies recs in order. A failed record never stops the
// batch; the returned slice always has one Outcome per record.
func (c *Chain) ClassifyBatch(ctx context.Context, recs []triage.IncidentRecord) []Outcome {
	out := make([]Outcome, 0, len(recs))
	for _, rec := range recs {
		res, err := c.Classify(ctx, rec)
		if err != nil {
			c.logger.Error("Error al procesar incidencia",
				zap.String("ticket_id", rec.TicketID),
				zap.Error(err),
			)
			res = triage.ErrorResult(rec.TicketID, err)
		}
		out = append(out, Outcome{Record: rec, Result: res, Err: err})
	}
	return out
}
