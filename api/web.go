package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/internal/service"
	"github.com/garnizeh/interventions/internal/web"
	"github.com/garnizeh/interventions/pkg/models"
)

// WebHandler serves the browser pages and form posts.
type WebHandler struct {
	sessions *auth.Manager
	svc      *service.InterventionService
	views    *web.Renderer
	cookie   sessionCookie
}

func NewWebHandler(m *auth.Manager, svc *service.InterventionService, views *web.Renderer, cookieName string, cookieSecure bool) *WebHandler {
	return &WebHandler{
		sessions: m,
		svc:      svc,
		views:    views,
		cookie:   sessionCookie{name: cookieName, secure: cookieSecure},
	}
}

func (h *WebHandler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.views.Render(&buf, page, data); err != nil {
		logger.Error("render page", slog.String("page", page), slog.Any("err", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error("write page", slog.String("page", page), slog.Any("err", err))
	}
}

// LoginPage shows the login form, or the dashboard for a logged-in user.
func (h *WebHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, web.PageLogin, web.LoginPage{Notice: popFlash(w, r)})
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")

	sess, token, err := h.sessions.Authenticate(r.Context(), username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			h.render(w, http.StatusUnauthorized, web.PageLogin, web.LoginPage{
				Notice:   noticeUserNotFound,
				Username: username,
			})
			return
		}
		logger.Error("login", slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.cookie.set(w, token, sess.Expires)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.name); err == nil {
		if err := h.sessions.Terminate(r.Context(), c.Value); err != nil {
			logger.Error("logout", slog.Any("err", err))
		}
	}
	h.cookie.clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		DenyRedirect(w, r, err)
		return
	}
	h.renderDashboard(w, r, sess, http.StatusOK, web.CreateForm{})
}

func (h *WebHandler) renderDashboard(w http.ResponseWriter, r *http.Request, sess *models.Session, status int, form web.CreateForm) {
	dash, err := h.svc.ListForRole(r.Context(), sess)
	if err != nil {
		logger.Error("load dashboard", slog.Int64("user_id", sess.UserID), slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, status, web.DashboardFor(sess), web.DashboardPage{
		Notice:        popFlash(w, r),
		Session:       sess,
		Interventions: dash.Interventions,
		Technicians:   dash.Technicians,
		Form:          form,
	})
}

func (h *WebHandler) CreateIntervention(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		DenyRedirect(w, r, err)
		return
	}

	form := web.CreateForm{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		TechnicianID: r.PostFormValue("technician_id"),
	}

	techID, err := service.ParseTechnicianID(form.TechnicianID)
	if err == nil {
		_, err = h.svc.CreateIntervention(r.Context(), sess, service.CreateInput{
			Title:        form.Title,
			Description:  form.Description,
			TechnicianID: techID,
		})
	}

	switch {
	case err == nil:
		setFlash(w, noticeCreated)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case errors.Is(err, models.ErrValidation):
		form.Error = err.Error()
		h.renderDashboard(w, r, sess, http.StatusUnprocessableEntity, form)
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrUnauthenticated):
		DenyRedirect(w, r, err)
	default:
		logger.Error("create intervention", slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *WebHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		DenyRedirect(w, r, err)
		return
	}

	id, err := interventionID(r)
	if err == nil {
		_, err = h.svc.UpdateStatus(r.Context(), sess, id, r.PostFormValue("status"))
	}

	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	case errors.Is(err, models.ErrForbidden):
		setFlash(w, noticeUnauthorized)
	case errors.Is(err, models.ErrValidation):
		setFlash(w, noticeInvalidStatus)
	default:
		logger.Error("update status", slog.Int64("id", id), slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
