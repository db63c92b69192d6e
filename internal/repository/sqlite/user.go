package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/interventions/pkg/models"
)

const userColumns = `id, username, role`

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *SQLiteRepo) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := r.q.QueryRows(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CountUsers(ctx context.Context) (int64, error) {
	var cnt int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&cnt); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return cnt, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
