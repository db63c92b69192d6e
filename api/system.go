package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	DB Pinger
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			logger.Error("health check", slog.Any("err", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "service": "interventions"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "interventions"})
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
