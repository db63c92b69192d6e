package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/interventions/pkg/models"
)

const interventionSelect = `SELECT i.id, i.title, i.description, i.status, i.technician_id, u.username, i.created, i.updated
FROM interventions i LEFT JOIN users u ON u.id = i.technician_id`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) CreateIntervention(ctx context.Context, i *models.Intervention) (int64, error) {
	if i == nil {
		return 0, fmt.Errorf("intervention is nil")
	}
	if i.Status == "" {
		i.Status = models.StatusToDo
	}

	ts := now()
	res, err := r.q.Exec(ctx, `INSERT INTO interventions (title, description, status, technician_id, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		i.Title, i.Description, string(i.Status), nullableID(i.TechnicianID), ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert intervention: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("intervention id: %w", err)
	}
	i.ID, i.Created, i.Updated = id, ts, ts

	r.logger.Debug("intervention created", slog.Int64("id", id))
	return id, nil
}

func (r *SQLiteRepo) GetIntervention(ctx context.Context, id int64) (*models.Intervention, error) {
	row := r.q.QueryRow(ctx, interventionSelect+` WHERE i.id = ?`, id)
	inv, err := scanIntervention(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *SQLiteRepo) ListInterventions(ctx context.Context) ([]models.Intervention, error) {
	return r.listInterventions(ctx, interventionSelect+` ORDER BY i.id`)
}

func (r *SQLiteRepo) ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error) {
	return r.listInterventions(ctx, interventionSelect+` WHERE i.technician_id = ? ORDER BY i.id`, technicianID)
}

func (r *SQLiteRepo) UpdateInterventionStatus(ctx context.Context, id int64, status models.Status) error {
	res, err := r.q.Exec(ctx, `UPDATE interventions SET status = ?, updated = ? WHERE id = ?`, string(status), now(), id)
	if err != nil {
		return fmt.Errorf("update intervention status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("intervention %d: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepo) listInterventions(ctx context.Context, query string, args ...any) ([]models.Intervention, error) {
	rows, err := r.q.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()

	var out []models.Intervention
	for rows.Next() {
		inv, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func scanIntervention(s scanner) (*models.Intervention, error) {
	var (
		inv    models.Intervention
		techID sql.NullInt64
		tech   sql.NullString
	)
	if err := s.Scan(&inv.ID, &inv.Title, &inv.Description, &inv.Status, &techID, &tech, &inv.Created, &inv.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan intervention: %w", err)
	}
	if techID.Valid {
		v := techID.Int64
		inv.TechnicianID = &v
	}
	if tech.Valid {
		v := tech.String
		inv.Technician = &v
	}
	return &inv, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
