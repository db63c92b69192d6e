package auth

import (
	"context"

	"github.com/garnizeh/interventions/pkg/models"
)

type ctxKey string

const ctxSession ctxKey = "session"

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

// SessionFromContext returns the session resolved for the current request.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxSession).(*models.Session)
	return s, ok && s != nil
}

// RequireSession fails with models.ErrUnauthenticated when no session is
// attached to ctx.
func RequireSession(ctx context.Context) (*models.Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return s, nil
}

// RequireRole fails with models.ErrForbidden unless s holds role.
func RequireRole(s *models.Session, role models.Role) error {
	if s == nil {
		return models.ErrUnauthenticated
	}
	if s.Role != role {
		return models.ErrForbidden
	}
	return nil
}
