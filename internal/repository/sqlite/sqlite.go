package sqlite

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
// Inside WithTx the same type is bound to the transaction instead of the pool.
type SQLiteRepo struct {
	conn   *db.DB
	q      db.Querier
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.InterventionRepo = (*SQLiteRepo)(nil)
var _ repository.SessionRepo = (*SQLiteRepo)(nil)
var _ repository.Store = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, q: conn, logger: logger}
}

// WithTx runs fn with a repository bound to one transaction. Nested calls
// reuse the outer transaction.
func (r *SQLiteRepo) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if _, inTx := r.q.(*db.Tx); inTx {
		return fn(r)
	}
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		return fn(&SQLiteRepo{conn: r.conn, q: tx, logger: r.logger})
	})
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
