// Package auth establishes and resolves login sessions.
//
// A session is a row in the sessions table plus an HS256-signed token naming
// it. The username is the only credential: there is no password check, which
// is insecure and only suitable for trusted networks.
package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/interventions/pkg/models"
	"github.com/garnizeh/interventions/pkg/repository"
)

type Manager struct {
	users    repository.UserRepo
	sessions repository.SessionRepo
	secret   []byte
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a session manager. ttl bounds both the token and the
// session row.
func NewManager(users repository.UserRepo, sessions repository.SessionRepo, secret string, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Authenticate looks the username up and opens a session for it. Unknown
// usernames fail with models.ErrUserNotFound and leave no session behind.
func (m *Manager) Authenticate(ctx context.Context, username string) (*models.Session, string, error) {
	username = models.NormalizeUsername(username)
	if username == "" {
		return nil, "", models.ErrUserNotFound
	}

	user, err := m.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		m.logger.Info("login rejected", slog.String("username", username))
		return nil, "", models.ErrUserNotFound
	}

	if _, err := m.SweepExpired(ctx); err != nil {
		m.logger.Warn("sweep expired sessions", slog.Any("err", err))
	}

	now := m.now().UTC()

	expires := now.Add(m.ttl)
	rec := &models.SessionRecord{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Created: now.UnixMilli(),
		Expires: expires.UnixMilli(),
	}

	token, err := m.signToken(rec.ID, user.ID, now, expires)
	if err != nil {
		return nil, "", err
	}
	if err := m.sessions.CreateSession(ctx, rec); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("login", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return &models.Session{
		ID:       rec.ID,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Expires:  rec.Expires,
	}, token, nil
}

// SweepExpired deletes every session row whose expiry has passed and reports
// how many were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpiredSessions(ctx, m.now().UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		m.logger.Debug("expired sessions removed", slog.Int64("count", n))
	}
	return n, nil
}

// Resolve turns a token back into the session it names. Any token that is
// malformed, expired, revoked or whose user is gone yields
// models.ErrUnauthenticated. Storage failures are returned as is.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.ErrUnauthenticated
	}

	claims, err := m.parseToken(token, false)
	if err != nil {
		m.logger.Debug("session token rejected", slog.Any("err", err))
		return nil, models.ErrUnauthenticated
	}

	rec, err := m.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, models.ErrUnauthenticated
	}
	if rec.Expires <= m.now().UTC().UnixMilli() {
		if err := m.sessions.DeleteSession(ctx, rec.ID); err != nil {
			m.logger.Warn("delete expired session", slog.Any("err", err))
		}
		return nil, models.ErrUnauthenticated
	}
	if claims.Subject != strconv.FormatInt(rec.UserID, 10) {
		return nil, models.ErrUnauthenticated
	}

	user, err := m.users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	return &models.Session{
		ID:       rec.ID,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Expires:  rec.Expires,
	}, nil
}

// Terminate revokes the session named by token. Unknown or invalid tokens are
// ignored so logout always succeeds.
func (m *Manager) Terminate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	// expired tokens still name a row worth removing
	claims, err := m.parseToken(token, true)
	if err != nil {
		return nil
	}
	if err := m.sessions.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.Info("logout", slog.String("subject", claims.Subject))
	return nil
}
