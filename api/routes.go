package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/internal/config"
	"github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/repository/sqlite"
	"github.com/garnizeh/interventions/internal/service"
	"github.com/garnizeh/interventions/internal/web"
	"github.com/garnizeh/interventions/pkg/models"
)

// SetupRoutes wires the handlers. sessions is shared with the caller so
// background jobs work on the same session store.
func SetupRoutes(cfg *config.Config, version, buildTime string, database *db.DB, sessions *auth.Manager) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository and services
	repo := sqlite.New(database, logger)
	svc := service.NewInterventionService(repo, logger)
	views, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r.Use(SessionMiddleware(sessions, cfg.CookieName))

	// Create handlers
	systemHandler := &SystemHandler{DB: database}
	webHandler := NewWebHandler(sessions, svc, views, cfg.CookieName, cfg.CookieSecure)
	authHandler := NewAuthHandler(sessions, cfg.CookieName, cfg.CookieSecure)
	interventionsHandler := NewInterventionsHandler(svc)

	loginLimit := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.LoginRateLimit > 0 {
		limiter := httprate.LimitByIP(cfg.LoginRateLimit, time.Minute)
		loginLimit = func(h http.HandlerFunc) http.Handler { return limiter(h) }
	}

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// HTML pages
	r.HandleFunc("/", webHandler.LoginPage).Methods("GET")
	r.Handle("/", loginLimit(webHandler.Login)).Methods("POST")
	r.Handle("/login", loginLimit(webHandler.Login)).Methods("POST")
	r.HandleFunc("/logout", webHandler.Logout).Methods("GET", "POST")

	pages := r.NewRoute().Subrouter()
	pages.Use(RequireSession(DenyRedirect))
	pages.HandleFunc("/dashboard", webHandler.Dashboard).Methods("GET")
	pages.Handle("/create_intervention", adminOnly(DenyRedirect, webHandler.CreateIntervention)).Methods("POST")
	pages.HandleFunc("/update_status/{id}", webHandler.UpdateStatus).Methods("POST")

	// API v1
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(CORSMiddleware)
	apiV1.Handle("/auth/login", loginLimit(authHandler.Login)).Methods("POST")

	// API v1 protected routes
	protected := apiV1.NewRoute().Subrouter()
	protected.Use(RequireSession(DenyJSON))
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	protected.HandleFunc("/me", authHandler.Me).Methods("GET")
	protected.HandleFunc("/interventions", interventionsHandler.ListInterventions).Methods("GET")
	protected.Handle("/interventions", adminOnly(DenyJSON, interventionsHandler.CreateIntervention)).Methods("POST")
	protected.HandleFunc("/interventions/{id}/status", interventionsHandler.UpdateStatus).Methods("POST", "PATCH")

	return r, nil
}

func adminOnly(deny DenyFunc, h http.HandlerFunc) http.Handler {
	return RequireRole(models.RoleAdmin, deny)(h)
}
