package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/pkg/models"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware resolves the bearer token or the session cookie and puts
// the session in the request context. Requests without a valid session pass
// through untouched; the guards below decide what to do with them. A storage
// failure while resolving ends the request with a 500.
func SessionMiddleware(m *auth.Manager, cookieName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := m.Resolve(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(auth.WithSession(r.Context(), sess))
			case errors.Is(err, models.ErrUnauthenticated):
			default:
				// Storage failure; the token itself may still be valid.
				if strings.HasPrefix(r.URL.Path, "/v1/") {
					writeError(w, fmt.Errorf("resolve session: %w", err))
					return
				}
				logger.Error("resolve session", slog.Any("err", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestToken prefers the Authorization header over the cookie.
func requestToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// DenyFunc writes the response for a request rejected by a guard.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// DenyJSON answers with the JSON error body.
func DenyJSON(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, err)
}

// DenyRedirect sends browsers back with a notice: to the login page when
// there is no session, to the dashboard when the role is wrong.
func DenyRedirect(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrForbidden) {
		setFlash(w, noticeAdminRequired)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	setFlash(w, noticeLoginRequired)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireSession rejects requests without a resolved session.
func RequireSession(deny DenyFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := auth.RequireSession(r.Context()); err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose session does not hold role.
func RequireRole(role models.Role, deny DenyFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := auth.SessionFromContext(r.Context())
			if err := auth.RequireRole(sess, role); err != nil {
				logger.Warn("role required",
					slog.String("role", string(role)),
					slog.String("path", r.URL.Path),
				)
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
