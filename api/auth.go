package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/pkg/models"
)

// sessionCookie holds the settings of the cookie carrying the session token.
type sessionCookie struct {
	name   string
	secure bool
}

func (c sessionCookie) set(w http.ResponseWriter, token string, expires int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		Expires:  time.UnixMilli(expires).UTC(),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c sessionCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type AuthHandler struct {
	sessions *auth.Manager
	cookie   sessionCookie
}

// NewAuthHandler creates the JSON login/logout handlers.
func NewAuthHandler(m *auth.Manager, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{sessions: m, cookie: sessionCookie{name: cookieName, secure: cookieSecure}}
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Expires int64           `json:"expires"`
	User    *models.Session `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest)
		return
	}

	sess, token, err := h.sessions.Authenticate(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookie.set(w, token, sess.Expires)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Expires: sess.Expires, User: sess})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Terminate(r.Context(), requestToken(r, h.cookie.name)); err != nil {
		writeError(w, err)
		return
	}
	h.cookie.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the session of the caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
