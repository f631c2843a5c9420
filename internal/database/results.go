package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// SaveParams contains one classified incident and the batch it belongs to.
type SaveParams struct {
	Record  triage.IncidentRecord
	Result  triage.ClassificationResult
	BatchID string
}

// TriageRow represents a stored triage result.
type TriageRow struct {
	ID                int64
	IncidentID        string
	Summary           string
	Notes             string
	IncidentCreatedAt *time.Time
	RootCause         string
	Confidence        float64
	Reasoning         string
	Keywords          []string
	Alternatives      []triage.AlternativeCause
	SimilarIncidents  []map[string]any
	ModelVersion      string
	ProcessingMS      int64
	ProcessedAt       time.Time
	BatchID           *string
	CreatedAt         time.Time
}

// triageColumns is the standard column list for result queries.
const triageColumns = `id, incident_id, COALESCE(resumen, ''), COALESCE(notas, ''), fecha_creacion,
	COALESCE(causa_raiz_predicha, ''), COALESCE(confianza, 0)::float8, COALESCE(razonamiento, ''),
	keywords_detectadas, causas_alternativas, incidencias_similares,
	COALESCE(modelo_version, ''), COALESCE(tiempo_procesamiento_ms, 0)::int8,
	timestamp_procesamiento, batch_id, created_at`

// scanTriageRow scans a row into a TriageRow and unmarshals the JSONB columns.
func scanTriageRow(row pgx.Row) (*TriageRow, error) {
	var r TriageRow
	var keywords, alternatives, similar []byte
	err := row.Scan(
		&r.ID, &r.IncidentID, &r.Summary, &r.Notes, &r.IncidentCreatedAt,
		&r.RootCause, &r.Confidence, &r.Reasoning,
		&keywords, &alternatives, &similar,
		&r.ModelVersion, &r.ProcessingMS,
		&r.ProcessedAt, &r.BatchID, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalLists(&r, keywords, alternatives, similar); err != nil {
		return nil, err
	}
	return &r, nil
}

// unmarshalLists decodes the JSONB list columns; NULL becomes an empty list.
func unmarshalLists(r *TriageRow, keywords, alternatives, similar []byte) error {
	r.Keywords = []string{}
	r.Alternatives = []triage.AlternativeCause{}
	r.SimilarIncidents = []map[string]any{}
	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{keywords, &r.Keywords},
		{alternatives, &r.Alternatives},
		{similar, &r.SimilarIncidents},
	} {
		if col.raw == nil {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return fmt.Errorf("failed to decode %s: %w", r.IncidentID, err)
		}
	}
	return nil
}

// jsonList marshals v, writing an empty array for a nil slice.
func jsonList[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

// SaveResult inserts the result, or overwrites the derived fields of an
// existing row for the same incident. Failures are logged and reported as
// false.
func (db *DB) SaveResult(ctx context.Context, p SaveParams) bool {
	log := db.logger.With(zap.String("ticket_id", p.Record.TicketID))

	keywords, err := jsonList(p.Result.Keywords)
	if err != nil {
		log.Error("Error al guardar resultado", zap.Error(err))
		return false
	}
	alternatives, err := jsonList(p.Result.Alternatives)
	if err != nil {
		log.Error("Error al guardar resultado", zap.Error(err))
		return false
	}
	similar, _ := jsonList[map[string]any](nil)

	var batchID *string
	if p.BatchID != "" {
		batchID = &p.BatchID
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO triage_results (
			incident_id, resumen, notas, fecha_creacion,
			causa_raiz_predicha, confianza, razonamiento,
			keywords_detectadas, causas_alternativas, incidencias_similares,
			modelo_version, tiempo_procesamiento_ms, batch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (incident_id) DO UPDATE SET
			causa_raiz_predicha = EXCLUDED.causa_raiz_predicha,
			confianza = EXCLUDED.confianza,
			razonamiento = EXCLUDED.razonamiento,
			keywords_detectadas = EXCLUDED.keywords_detectadas,
			causas_alternativas = EXCLUDED.causas_alternativas,
			incidencias_similares = EXCLUDED.incidencias_similares,
			modelo_version = EXCLUDED.modelo_version,
			tiempo_procesamiento_ms = EXCLUDED.tiempo_procesamiento_ms,
			timestamp_procesamiento = CURRENT_TIMESTAMP`,
		p.Record.TicketID, p.Record.Summary, p.Record.Notes, p.Record.CreatedAt,
		p.Result.RootCause, p.Result.Confidence, p.Result.Reasoning,
		keywords, alternatives, similar,
		p.Result.ModelVersion, p.Result.ProcessingMS, batchID,
	)
	if err != nil {
		log.Error("Error al guardar resultado", zap.Error(err))
		return false
	}
	log.Info("Resultado guardado para incidencia")
	return true
}

// GetResult retrieves the result stored for an incident, or nil if none.
func (db *DB) GetResult(ctx context.Context, incidentID string) (*TriageRow, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+triageColumns+` FROM triage_results WHERE incident_id = $1`,
		incidentID,
	)
	return scanTriageRow(row)
}

// GetBatchResults returns the results of a batch, most recently processed first.
func (db *DB) GetBatchResults(ctx context.Context, batchID string) ([]TriageRow, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+triageColumns+` FROM triage_results
		 WHERE batch_id = $1
		 ORDER BY timestamp_procesamiento DESC, id DESC`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []TriageRow{}
	for rows.Next() {
		r, err := scanTriageRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}
