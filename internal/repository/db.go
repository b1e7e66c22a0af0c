package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the application database config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

// DB is a database/sql handle plus the dialect-aware query builder.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// DialectOf picks Postgres for postgres:// DSNs and SQLite otherwise.
func DialectOf(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to Postgres through a pgx pool, or to SQLite through modernc.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn is empty")
	}
	d := DialectOf(cfg.DSN)
	logger.Info("connecting to database", "dialect", string(d))

	if d == DialectSQLite {
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open sqlite", "error", err)
			return nil, err
		}
		if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
			// each connection would get its own empty database
			db.SetMaxOpenConns(1)
		}
		logger.Info("successfully connected to database")
		return &DB{SQL: db, Dialect: d, logger: logger}, nil
	}

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "engagement-analyzer"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: d, pool: pool, logger: logger}, nil
}

// Builder returns a squirrel builder using the dialect's placeholders.
func (db *DB) Builder() sq.StatementBuilderType {
	if db.Dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	db.logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		db.logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		return err
	}
	db.logger.Debug("database ping successful")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ingest_batches (
		id TEXT PRIMARY KEY,
		aggregate TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		current_artifact_id TEXT,
		created_at BIGINT NOT NULL,
		finished_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS artifact_jobs (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL REFERENCES ingest_batches(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL,
		media_type TEXT NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		engine TEXT,
		method TEXT,
		text TEXT,
		confidence DOUBLE PRECISION,
		word_count INTEGER NOT NULL DEFAULT 0,
		line_count INTEGER NOT NULL DEFAULT 0,
		char_count INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		error_code TEXT,
		error_message TEXT,
		started_at BIGINT,
		finished_at BIGINT,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS artifact_jobs_batch_idx ON artifact_jobs (batch_id)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		content_type TEXT NOT NULL,
		platform TEXT NOT NULL,
		original_text TEXT NOT NULL,
		text_length INTEGER NOT NULL,
		was_truncated BOOLEAN NOT NULL DEFAULT FALSE,
		record TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS analyses_created_idx ON analyses (created_at)`,
}

// Migrate creates the tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			db.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Info("database schema ready", "dialect", string(db.Dialect))
	return nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func toMillisPtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}
