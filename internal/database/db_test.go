package database

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// testURL points at DATABASE_URL or, when unset, a throwaway container.
var testURL string

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(run(m))
}

func run(m *testing.M) int {
	testURL = os.Getenv("DATABASE_URL")
	if testURL == "" && !testing.Short() {
		url, stop, err := startPostgres(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "postgres container unavailable: %v\n", err)
		} else {
			defer stop()
			testURL = url
		}
	}
	return m.Run()
}

func startPostgres(ctx context.Context) (url string, stop func(), err error) {
	// testcontainers panics when no Docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("triage"),
		postgres.WithUsername("triage"),
		postgres.WithPassword("triage"),
		postgres.BasicWaitStrategies(),
	)
	stop = func() { _ = testcontainers.TerminateContainer(ctr) }
	if err != nil {
		stop()
		return "", nil, err
	}

	url, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		stop()
		return "", nil, err
	}
	return url, stop, nil
}

// testDB returns a migrated DB or skips if no database is available.
func testDB(t *testing.T) *DB {
	t.Helper()
	if testURL == "" {
		t.Skip("DATABASE_URL not set and no container available")
	}

	ctx := context.Background()
	db, err := New(ctx, Options{URL: testURL})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.CreateSchema(ctx))
	return db
}

func newTicketID() string {
	return "T-" + uuid.New().String()[:8]
}

func sampleParams(ticketID, cause string, confidence float64, batchID string) SaveParams {
	return SaveParams{
		Record: triage.IncidentRecord{
			TicketID:  ticketID,
			Summary:   "DB connection timeout",
			Notes:     "",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Result: triage.ClassificationResult{
			TicketID:     ticketID,
			RootCause:    cause,
			Confidence:   confidence,
			Reasoning:    "...",
			Keywords:     []string{"timeout"},
			Alternatives: []triage.AlternativeCause{{Cause: "Red", Probability: 0.1}},
			ProcessingMS: 1200,
			ModelVersion: "anthropic.claude-3-sonnet",
		},
		BatchID: batchID,
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), Options{URL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNew_PoolSizing(t *testing.T) {
	db, err := New(context.Background(), Options{URL: "postgres://u:p@127.0.0.1:1/db"})
	require.NoError(t, err)
	defer db.Close()
	assert.EqualValues(t, DefaultPoolSize+DefaultMaxOverflow, db.Pool().Config().MaxConns)

	db2, err := New(context.Background(), Options{URL: "postgres://u:p@127.0.0.1:1/db", PoolSize: 2, MaxOverflow: 3})
	require.NoError(t, err)
	defer db2.Close()
	assert.EqualValues(t, 5, db2.Pool().Config().MaxConns)
}

func TestTestConnection_Unreachable(t *testing.T) {
	db, err := New(context.Background(), Options{URL: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1"})
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.False(t, db.TestConnection(ctx))
}

func TestClose_NilSafe(t *testing.T) {
	var db *DB
	assert.NotPanics(t, db.Close)
	assert.NotPanics(t, (&DB{}).Close)
}

func TestTestConnection(t *testing.T) {
	db := testDB(t)
	assert.True(t, db.TestConnection(context.Background()))
}

func TestCreateSchema_Idempotent(t *testing.T) {
	db := testDB(t)
	// Don't run DropSchema as it interferes with other tests
	require.NoError(t, db.CreateSchema(context.Background()))
}

func TestSaveResult_Upsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	id := newTicketID()

	require.True(t, db.SaveResult(ctx, sampleParams(id, "Timeout/Latencia", 0.9, "BATCH_A")))
	first, err := db.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.True(t, db.SaveResult(ctx, sampleParams(id, "Red", 0.55, "BATCH_B")))

	var count int
	require.NoError(t, db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM triage_results WHERE incident_id = $1`, id,
	).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := db.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Red", got.RootCause)
	assert.InDelta(t, 0.55, got.Confidence, 0.001)
	assert.Equal(t, first.ID, got.ID)
	assert.False(t, got.ProcessedAt.Before(first.ProcessedAt))
	// batch_id is not part of the update set
	require.NotNil(t, got.BatchID)
	assert.Equal(t, "BATCH_A", *got.BatchID)
}

func TestSaveResult_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	id := newTicketID()

	require.True(t, db.SaveResult(ctx, sampleParams(id, "Timeout/Latencia", 0.9, "BATCH_RT")))

	got, err := db.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, id, got.IncidentID)
	assert.Equal(t, "DB connection timeout", got.Summary)
	assert.Equal(t, "", got.Notes)
	require.NotNil(t, got.IncidentCreatedAt)
	assert.Equal(t, "2024-01-01", got.IncidentCreatedAt.Format("2006-01-02"))
	assert.Equal(t, "Timeout/Latencia", got.RootCause)
	assert.InDelta(t, 0.9, got.Confidence, 0.001)
	assert.Equal(t, []string{"timeout"}, got.Keywords)
	assert.Equal(t, []triage.AlternativeCause{{Cause: "Red", Probability: 0.1}}, got.Alternatives)
	assert.Empty(t, got.SimilarIncidents)
	assert.NotNil(t, got.SimilarIncidents)
	assert.Equal(t, "anthropic.claude-3-sonnet", got.ModelVersion)
	assert.Equal(t, int64(1200), got.ProcessingMS)
}

func TestSaveResult_WriteFailure(t *testing.T) {
	db := testDB(t)
	// confianza is DECIMAL(3,2), so 12.5 overflows
	assert.False(t, db.SaveResult(context.Background(), sampleParams(newTicketID(), "Red", 12.5, "")))
}

func TestGetResult_NotFound(t *testing.T) {
	db := testDB(t)
	got, err := db.GetResult(context.Background(), "missing-"+uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetBatchResults(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	batch := "BATCH_" + uuid.New().String()[:8]

	ids := []string{newTicketID(), newTicketID(), newTicketID()}
	for _, id := range ids {
		require.True(t, db.SaveResult(ctx, sampleParams(id, "Otro", 0.5, batch)))
	}
	require.True(t, db.SaveResult(ctx, sampleParams(newTicketID(), "Otro", 0.5, "OTHER")))

	rows, err := db.GetBatchResults(ctx, batch)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].ProcessedAt.After(rows[i-1].ProcessedAt))
	}
	assert.Equal(t, ids[2], rows[0].IncidentID)

	empty, err := db.GetBatchResults(ctx, "no-such-batch")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveMetric(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	batch := "BATCH_" + uuid.New().String()[:8]

	require.True(t, db.SaveMetric(ctx, "batch_processed", 3, map[string]any{"batch_id": batch}))
	require.True(t, db.SaveMetric(ctx, "batch_processed", 3, map[string]any{"batch_id": batch}))
	require.True(t, db.SaveMetric(ctx, "batch_failed", 1, nil))

	metrics, err := db.GetBatchMetrics(ctx, batch)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "batch_processed", metrics[0].Name)
	assert.InDelta(t, 3.0, metrics[0].Value, 0.001)
	assert.Equal(t, batch, metrics[0].Metadata["batch_id"])
}

func TestSaveEmbedding(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureEmbeddingSchema(ctx))
	require.NoError(t, db.EnsureEmbeddingSchema(ctx))

	id := newTicketID()
	require.True(t, db.SaveEmbedding(ctx, id, "amazon.titan-embed-text-v2:0", []float32{0.1, 0.2, 0.3}))
	require.True(t, db.SaveEmbedding(ctx, id, "amazon.titan-embed-text-v2:0", []float32{0.4, 0.5, 0.6, 0.7}))

	var dims int
	require.NoError(t, db.Pool().QueryRow(ctx,
		`SELECT vector_dims(embedding) FROM triage_embeddings WHERE incident_id = $1`, id,
	).Scan(&dims))
	assert.Equal(t, 4, dims)
}
