// Package service holds the intervention workflow: role-scoped listing,
// creation by administrators and status changes by the assignee or an admin.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/pkg/models"
	"github.com/garnizeh/interventions/pkg/repository"
)

// MaxTitleLength matches the column constraint on interventions.title.
const MaxTitleLength = 100

type InterventionService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewInterventionService(store repository.Store, logger *slog.Logger) *InterventionService {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &InterventionService{store: store, logger: logger}
}

// Dashboard is the role-scoped view of the tracker. Technicians is only
// filled for administrators.
type Dashboard struct {
	Interventions []models.Intervention `json:"interventions"`
	Technicians   []models.User         `json:"technicians,omitempty"`
}

// CreateInput is an intervention submitted by an administrator.
type CreateInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TechnicianID *int64 `json:"technician_id,omitempty"`
}

// ListForRole returns every intervention plus the technician roster for an
// admin, and only the caller's assigned interventions for a technician.
// Both lists are in creation order.
func (s *InterventionService) ListForRole(ctx context.Context, sess *models.Session) (*Dashboard, error) {
	if sess == nil {
		return nil, models.ErrUnauthenticated
	}

	switch sess.Role {
	case models.RoleAdmin:
		invs, err := s.store.ListInterventions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list interventions: %w", err)
		}
		techs, err := s.store.ListUsersByRole(ctx, models.RoleTechnician)
		if err != nil {
			return nil, fmt.Errorf("list technicians: %w", err)
		}
		if techs == nil {
			techs = []models.User{}
		}
		return &Dashboard{Interventions: nonNil(invs), Technicians: techs}, nil

	case models.RoleTechnician:
		invs, err := s.store.ListInterventionsByTechnician(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("list assigned interventions: %w", err)
		}
		return &Dashboard{Interventions: nonNil(invs)}, nil

	default:
		return nil, models.ErrForbidden
	}
}

// CreateIntervention stores a new To Do intervention. Only admins may call
// it. A technician id, when given, must name an existing technician.
func (s *InterventionService) CreateIntervention(ctx context.Context, sess *models.Session, in CreateInput) (*models.Intervention, error) {
	if err := auth.RequireRole(sess, models.RoleAdmin); err != nil {
		return nil, err
	}

	inv := &models.Intervention{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Status:       models.StatusToDo,
		TechnicianID: in.TechnicianID,
	}
	if inv.Title == "" {
		return nil, models.NewValidationError("title", "is required")
	}
	if utf8.RuneCountInString(inv.Title) > MaxTitleLength {
		return nil, models.NewValidationError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if inv.Description == "" {
		return nil, models.NewValidationError("description", "is required")
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if inv.TechnicianID != nil {
			tech, err := tx.GetUserByID(ctx, *inv.TechnicianID)
			if err != nil {
				return fmt.Errorf("lookup technician: %w", err)
			}
			if tech == nil || tech.Role != models.RoleTechnician {
				return models.NewValidationError("technician_id", "must reference an existing technician")
			}
			inv.Technician = &tech.Username
		}

		if _, err := tx.CreateIntervention(ctx, inv); err != nil {
			return fmt.Errorf("create intervention: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("intervention created",
		slog.Int64("id", inv.ID),
		slog.Int64("by", sess.UserID),
		slog.Any("technician_id", inv.TechnicianID),
	)
	return inv, nil
}

// UpdateStatus moves an intervention to newStatus. Technicians may only touch
// interventions assigned to them; admins may touch any. An unknown status
// leaves the row untouched: the current intervention is returned together
// with a *models.ValidationError.
func (s *InterventionService) UpdateStatus(ctx context.Context, sess *models.Session, id int64, newStatus string) (*models.Intervention, error) {
	if sess == nil {
		return nil, models.ErrUnauthenticated
	}

	var inv *models.Intervention
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		cur, err := tx.GetIntervention(ctx, id)
		if err != nil {
			return fmt.Errorf("load intervention: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("intervention %d: %w", id, models.ErrNotFound)
		}
		if !sess.IsAdmin() && !cur.AssignedTo(sess.UserID) {
			return models.ErrForbidden
		}
		inv = cur

		st, ok := models.ParseStatus(newStatus)
		if !ok {
			return models.NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
		}

		if err := tx.UpdateInterventionStatus(ctx, id, st); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		updated := *cur
		updated.Status = st
		inv = &updated
		return nil
	})
	if err != nil {
		if inv != nil && errors.Is(err, models.ErrValidation) {
			s.logger.Info("status update ignored", slog.Int64("id", id), slog.String("status", newStatus))
			return inv, err
		}
		if errors.Is(err, models.ErrForbidden) {
			s.logger.Warn("status update forbidden", slog.Int64("id", id), slog.Int64("user_id", sess.UserID))
		}
		return nil, err
	}

	s.logger.Info("intervention status updated",
		slog.Int64("id", id),
		slog.String("status", string(inv.Status)),
		slog.Int64("by", sess.UserID),
	)
	return inv, nil
}

// ParseTechnicianID reads the optional technician field of a form. Blank
// means unassigned.
func ParseTechnicianID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, models.NewValidationError("technician_id", "must be a technician id")
	}
	return &id, nil
}

func nonNil(invs []models.Intervention) []models.Intervention {
	if invs == nil {
		return []models.Intervention{}
	}
	return invs
}
