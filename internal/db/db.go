package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// pragmas applied to every connection opened through New.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Querier is the statement surface shared by DB and Tx so repositories can run
// the same code inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB wraps the sql.DB for connection management
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*Tx)(nil)
)

// New creates a new DB connection. SQLite allows a single writer, so the pool
// is capped at one connection and callers serialize on it.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	logger.Debug("database opened", slog.String("dsn", dsn))
	return &DB{conn: conn, logger: logger}, nil
}

// Wrap adopts an already opened *sql.DB. Used by tests that drive the
// repositories through a mocked driver.
func Wrap(conn *sql.DB, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{conn: conn, logger: logger}
}

func withPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		if strings.Contains(dsn, p) {
			continue
		}
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// QueryRows executes a query that returns rows
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// GetConn returns the underlying sql.DB
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

// Tx is a transaction bound to a DB. It exposes the same statement helpers.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("rollback failed", slog.Any("err", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database to dst using VACUUM INTO.
func (db *DB) Snapshot(ctx context.Context, dst string) error {
	if dst == "" {
		return errors.New("snapshot destination is empty")
	}
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}
