package database

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// EnsureEmbeddingSchema enables the vector extension and creates the
// embeddings table. It is only needed when embeddings are stored.
func (db *DB) EnsureEmbeddingSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	_, err := db.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS triage_embeddings (
			incident_id VARCHAR(100) PRIMARY KEY,
			model_id VARCHAR(100) NOT NULL,
			embedding vector NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create embeddings table: %w", err)
	}
	return nil
}

// SaveEmbedding stores the embedding of an incident, replacing any previous
// one. Failures are logged and reported as false.
func (db *DB) SaveEmbedding(ctx context.Context, incidentID, model string, embedding []float32) bool {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO triage_embeddings (incident_id, model_id, embedding)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (incident_id) DO UPDATE SET
			model_id = EXCLUDED.model_id,
			embedding = EXCLUDED.embedding,
			created_at = CURRENT_TIMESTAMP`,
		incidentID, model, pgvector.NewVector(embedding),
	)
	if err != nil {
		db.logger.Error("Error al guardar embedding",
			zap.String("ticket_id", incidentID),
			zap.Error(err),
		)
		return false
	}
	return true
}
