// Package warehouse executes read-only SQL against the research database
// over a pgx connection pool. It returns raw columns and row tuples;
// shaping into results and retry decisions happen upstream.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the warehouse connection configuration.
type Config struct {
	Logger *slog.Logger

	// DSN is the postgres connection string for the research database.
	DSN string

	// StatementTimeout bounds each query execution.
	StatementTimeout time.Duration
}

// Validate applies defaults and checks required fields.
func (cfg *Config) Validate() error {
	if cfg.DSN == "" {
		return errors.New("warehouse DSN is required")
	}
	if cfg.StatementTimeout == 0 {
		cfg.StatementTimeout = 2 * time.Minute
	}
	return nil
}

// Warehouse is a pooled connection to the research database. The pool is
// safe for concurrent use by multiple runs.
type Warehouse struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	stmtTimeout time.Duration
}

// New connects to the research database and verifies the connection.
func New(ctx context.Context, cfg Config) (*Warehouse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate warehouse config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	return &Warehouse{
		log:         cfg.Logger,
		pool:        pool,
		stmtTimeout: cfg.StatementTimeout,
	}, nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() {
	w.pool.Close()
}

// Query executes sqlText inside a read-only transaction with the statement
// timeout applied, and returns column names plus row tuples. Database
// failures come back as *ExecError carrying the retry classification.
func (w *Warehouse) Query(ctx context.Context, sqlText string) ([]string, [][]any, error) {
	ctx, cancel := context.WithTimeout(ctx, w.stmtTimeout)
	defer cancel()

	start := time.Now()

	tx, err := w.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, nil, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sqlText)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = string(fd.Name)
	}

	var tuples [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, classify(err)
		}
		tuples = append(tuples, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify(err)
	}

	if w.log != nil {
		w.log.Debug("warehouse: query executed",
			"rows", len(tuples),
			"duration", time.Since(start))
	}
	return columns, tuples, nil
}
