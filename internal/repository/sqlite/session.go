package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/interventions/pkg/models"
)

func (r *SQLiteRepo) CreateSession(ctx context.Context, s *models.SessionRecord) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if s.Created == 0 {
		s.Created = now()
	}

	_, err := r.q.Exec(ctx, `INSERT INTO sessions (id, user_id, created, expires) VALUES (?, ?, ?, ?)`, s.ID, s.UserID, s.Created, s.Expires)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetSession(ctx context.Context, id string) (*models.SessionRecord, error) {
	row := r.q.QueryRow(ctx, `SELECT id, user_id, created, expires FROM sessions WHERE id = ?`, id)
	var s models.SessionRecord
	if err := row.Scan(&s.ID, &s.UserID, &s.Created, &s.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepo) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (r *SQLiteRepo) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
