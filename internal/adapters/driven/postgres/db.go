package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

//go:embed schema.sql
var schema string

// schemaLockKey serialises InitSchema between processes starting together.
const schemaLockKey = 0x5e7c4a6

// DB is the lib/pq pool shared by the relational stores, the advisory lock
// and the PostgreSQL task queue.
type DB struct {
	*sql.DB
}

// Config tunes the pool. Zero values fall back to the defaults below.
type Config struct {
	URL             string
	MaxOpenConns    int           // 25
	MaxIdleConns    int           // 5
	ConnMaxLifetime time.Duration // 5m
	ConnMaxIdleTime time.Duration // 1m
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = time.Minute
	}
	return c
}

// Connect opens the pool and checks the server answers. The schema is left
// to InitSchema.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: database url is required", domain.ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()

	pool, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: pool}, nil
}

// RenderSchema returns the DDL with the chunk embedding column sized to
// dimensions.
func RenderSchema(dimensions int) (string, error) {
	if dimensions <= 0 {
		return "", fmt.Errorf("%w: embedding dimensions must be positive, got %d", domain.ErrInvalidConfig, dimensions)
	}
	return strings.ReplaceAll(schema, "{{EMBEDDING_DIMENSIONS}}", strconv.Itoa(dimensions)), nil
}

// InitSchema applies the idempotent DDL inside one transaction under a
// transaction-scoped advisory lock, so an api and a worker booting at the
// same moment do not race on CREATE statements.
func (db *DB) InitSchema(ctx context.Context, dimensions int) error {
	ddl, err := RenderSchema(dimensions)
	if err != nil {
		return err
	}
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// execer is satisfied by both *DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transaction commits when fn returns nil and rolls back otherwise.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NullTime maps a nil pointer to SQL NULL.
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// TimePtr is the inverse of NullTime.
func TimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}
