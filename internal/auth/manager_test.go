package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/pkg/models"
	"github.com/garnizeh/interventions/pkg/repository/mock"
)

const secret = "testsecret"

func newManager(t *testing.T) (*auth.Manager, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	return auth.NewManager(store, store, secret, time.Hour, nil), store
}

func TestAuthenticate_SeededUsers(t *testing.T) {
	cases := []struct {
		username string
		wantID   int64
		wantRole models.Role
	}{
		{"admin1", 1, models.RoleAdmin},
		{"tech1", 2, models.RoleTechnician},
		{"tech2", 3, models.RoleTechnician},
		{"  tech1 ", 2, models.RoleTechnician},
	}

	for _, c := range cases {
		t.Run(c.username, func(t *testing.T) {
			m, store := newManager(t)
			sess, token, err := m.Authenticate(context.Background(), c.username)
			if err != nil {
				t.Fatalf("Authenticate(%q): %v", c.username, err)
			}
			if sess.UserID != c.wantID || sess.Role != c.wantRole || sess.Username != strings.TrimSpace(c.username) {
				t.Fatalf("unexpected session: %#v", sess)
			}
			if token == "" {
				t.Fatalf("empty token")
			}
			if _, ok := store.Sessions[sess.ID]; !ok {
				t.Fatalf("session row not stored")
			}
		})
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	for _, name := range []string{"nobody", "", "   ", "ADMIN1"} {
		t.Run(name, func(t *testing.T) {
			m, store := newManager(t)
			sess, token, err := m.Authenticate(context.Background(), name)
			if !errors.Is(err, models.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
			if sess != nil || token != "" {
				t.Fatalf("expected no session, got %#v %q", sess, token)
			}
			if len(store.Sessions) != 0 {
				t.Fatalf("no session row expected, got %d", len(store.Sessions))
			}
		})
	}
}

func TestAuthenticate_StoreFailures(t *testing.T) {
	m, store := newManager(t)
	store.GetUserErr = errors.New("db down")
	if _, _, err := m.Authenticate(context.Background(), "admin1"); err == nil || errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("expected storage error, got %v", err)
	}

	m, store = newManager(t)
	store.CreateSessErr = errors.New("disk full")
	if _, _, err := m.Authenticate(context.Background(), "admin1"); err == nil {
		t.Fatalf("expected session create error")
	}
}

func TestAuthenticate_SweepsExpiredSessions(t *testing.T) {
	m, store := newManager(t)
	store.Sessions["stale"] = models.SessionRecord{ID: "stale", UserID: 2, Expires: 1}

	if _, _, err := m.Authenticate(context.Background(), "tech1"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, ok := store.Sessions["stale"]; ok {
		t.Fatalf("expected stale session to be swept")
	}
}

func TestSweepExpired(t *testing.T) {
	m, store := newManager(t)
	now := time.Now()
	store.Sessions["old"] = models.SessionRecord{ID: "old", UserID: 2, Expires: now.Add(-time.Minute).UnixMilli()}
	store.Sessions["live"] = models.SessionRecord{ID: "live", UserID: 3, Expires: now.Add(time.Hour).UnixMilli()}

	n, err := m.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d sessions, want 1", n)
	}
	if _, ok := store.Sessions["live"]; !ok {
		t.Fatalf("live session was removed")
	}
}

func TestResolve(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	sess, token, err := m.Authenticate(ctx, "tech1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	got, err := m.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != sess.ID || got.UserID != 2 || got.Role != models.RoleTechnician || got.Username != "tech1" {
		t.Fatalf("unexpected resolved session: %#v", got)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	forgedSubject, _ := forged.SignedString([]byte(secret))
	otherKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   "2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other"))
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: sess.ID, Subject: "2"}).SignedString([]byte(secret))
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   "2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	bad := map[string]string{
		"Empty":           "",
		"Garbage":         "bad.token.here",
		"WrongKey":        otherKey,
		"SubjectMismatch": forgedSubject,
		"NoExpiry":        noExp,
		"NoneAlg":         noneAlg,
	}
	for name, tok := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Resolve(ctx, tok); !errors.Is(err, models.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}

	// storage failure is not an authentication failure
	store.GetSessErr = errors.New("db down")
	if _, err := m.Resolve(ctx, token); err == nil || errors.Is(err, models.ErrUnauthenticated) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestResolve_Expired(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return base })

	sess, token, err := m.Authenticate(ctx, "admin1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	m.SetClock(func() time.Time { return base.Add(59 * time.Minute) })
	if _, err := m.Resolve(ctx, token); err != nil {
		t.Fatalf("expected token valid before expiry: %v", err)
	}

	m.SetClock(func() time.Time { return base.Add(2 * time.Hour) })
	if _, err := m.Resolve(ctx, token); !errors.Is(err, models.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after expiry, got %v", err)
	}

	// row expired while the token is still valid: row is removed
	m.SetClock(func() time.Time { return base })
	rec := store.Sessions[sess.ID]
	rec.Expires = base.Add(-time.Minute).UnixMilli()
	store.Sessions[sess.ID] = rec
	if _, err := m.Resolve(ctx, token); !errors.Is(err, models.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired row, got %v", err)
	}
	if _, ok := store.Sessions[sess.ID]; ok {
		t.Fatalf("expected expired row to be deleted")
	}
}

func TestTerminate(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	_, token, err := m.Authenticate(ctx, "tech2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := m.Terminate(ctx, token); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(store.Sessions) != 0 {
		t.Fatalf("expected session row removed")
	}
	if _, err := m.Resolve(ctx, token); !errors.Is(err, models.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after terminate, got %v", err)
	}

	// idempotent and tolerant of junk
	if err := m.Terminate(ctx, token); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
	if err := m.Terminate(ctx, ""); err != nil {
		t.Fatalf("Terminate empty: %v", err)
	}
	if err := m.Terminate(ctx, "junk"); err != nil {
		t.Fatalf("Terminate junk: %v", err)
	}
}

func TestTerminate_ExpiredToken(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return base })
	_, token, err := m.Authenticate(ctx, "tech2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	m.SetClock(func() time.Time { return base.Add(3 * time.Hour) })
	if err := m.Terminate(ctx, token); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(store.Sessions) != 0 {
		t.Fatalf("expected expired session row removed on logout")
	}
}
