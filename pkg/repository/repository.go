package repository

import (
	"context"

	"github.com/garnizeh/interventions/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups return (nil, nil) when the row does not exist.

type UserRepo interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type InterventionRepo interface {
	CreateIntervention(ctx context.Context, i *models.Intervention) (int64, error)
	GetIntervention(ctx context.Context, id int64) (*models.Intervention, error)
	ListInterventions(ctx context.Context) ([]models.Intervention, error)
	ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error)
	UpdateInterventionStatus(ctx context.Context, id int64, status models.Status) error
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *models.SessionRecord) error
	GetSession(ctx context.Context, id string) (*models.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now int64) (int64, error)
}

// Store bundles every repository and can run a unit of work atomically.
type Store interface {
	UserRepo
	InterventionRepo
	SessionRepo

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
