// Package database provides PostgreSQL persistence for triage results.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kamilpajak/incident-triage/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool defaults.
const (
	DefaultPoolSize    = 5
	DefaultMaxOverflow = 10

	healthCheckPeriod = 30 * time.Second
)

// Options configures the connection pool.
type Options struct {
	URL         string
	PoolSize    int
	MaxOverflow int
	Logger      *zap.Logger
}

// DB wraps pgxpool.Pool with domain-specific operations.
type DB struct {
	pool   *pgxpool.Pool
	url    string
	logger *zap.Logger
}

// New creates the connection pool. Connections are opened lazily, so an
// unreachable server is reported by TestConnection, not here.
func New(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.MaxOverflow < 0 {
		opts.MaxOverflow = 0
	}
	cfg.MaxConns = int32(opts.PoolSize + opts.MaxOverflow)
	cfg.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	logger := logging.OrNop(opts.Logger)
	logger.Info("Motor de base de datos inicializado correctamente",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return &DB{pool: pool, url: opts.URL, logger: logger}, nil
}

// TestConnection runs a trivial query. It never returns an error; a failure is
// logged and reported as false.
func (db *DB) TestConnection(ctx context.Context) bool {
	var one int
	if err := db.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		db.logger.Error("Error al conectar a la base de datos", zap.Error(err))
		return false
	}
	db.logger.Info("Conexión a base de datos exitosa")
	return true
}

// Close closes the connection pool. It is safe to call on a nil DB.
func (db *DB) Close() {
	if db == nil || db.pool == nil {
		return
	}
	db.pool.Close()
	db.logger.Info("Conexiones de base de datos cerradas")
}

// Pool returns the underlying pgxpool.Pool for advanced operations.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// CreateSchema applies the embedded migrations. Running it against an
// up-to-date schema is a no-op.
func (db *DB) CreateSchema(ctx context.Context) error {
	if err := Migrate(ctx, db.url); err != nil {
		db.logger.Error("Error al crear tablas", zap.Error(err))
		return err
	}
	db.logger.Info("Tablas creadas/verificadas correctamente")
	return nil
}

// DropSchema rolls back every migration.
func (db *DB) DropSchema(ctx context.Context) error {
	return MigrateDown(ctx, db.url)
}

// Migrate runs database migrations.
func Migrate(ctx context.Context, databaseURL string) error {
	return runMigrations(ctx, databaseURL, true)
}

// MigrateDown rolls back all migrations.
func MigrateDown(ctx context.Context, databaseURL string) error {
	return runMigrations(ctx, databaseURL, false)
}

// migrateURL rewrites a postgres URL for golang-migrate's pgx driver, which
// shares pgx's connection defaults with the pool.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func runMigrations(ctx context.Context, databaseURL string, up bool) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	latest, err := lastVersion(src)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	step, failure := (*migrate.Migrate).Up, "migration failed"
	if !up {
		step, failure = (*migrate.Migrate).Down, "rollback failed"
	}
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", failure, err)
	}

	// A graceful stop returns nil; only report cancellation if the schema did
	// not reach its target.
	if ctx.Err() != nil && !atTarget(m, up, latest) {
		return fmt.Errorf("%s: %w", failure, ctx.Err())
	}
	return nil
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

func atTarget(m *migrate.Migrate, up bool, latest uint) bool {
	v, dirty, err := m.Version()
	if !up {
		return errors.Is(err, migrate.ErrNilVersion)
	}
	return err == nil && !dirty && v == latest
}
