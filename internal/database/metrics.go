package database

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Metric represents a stored batch metric.
type Metric struct {
	ID        int64
	Name      string
	Value     float64
	Metadata  map[string]any
	Timestamp time.Time
}

// SaveMetric appends a metric row. Failures are logged and reported as false.
func (db *DB) SaveMetric(ctx context.Context, name string, value float64, metadata map[string]any) bool {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		db.logger.Error("Error al guardar métrica", zap.String("metric", name), zap.Error(err))
		return false
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO triage_metrics (metric_name, metric_value, metric_metadata)
		 VALUES ($1, $2, $3)`,
		name, value, meta,
	)
	if err != nil {
		db.logger.Error("Error al guardar métrica", zap.String("metric", name), zap.Error(err))
		return false
	}
	return true
}

// GetBatchMetrics returns the metrics whose metadata names batchID, oldest
// first.
func (db *DB) GetBatchMetrics(ctx context.Context, batchID string) ([]Metric, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, COALESCE(metric_name, ''), COALESCE(metric_value, 0)::float8, metric_metadata, timestamp
		 FROM triage_metrics
		 WHERE metric_metadata->>'batch_id' = $1
		 ORDER BY timestamp, id`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []Metric{}
	for rows.Next() {
		var m Metric
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Value, &meta, &m.Timestamp); err != nil {
			return nil, err
		}
		if meta != nil {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, err
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
