package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/internal/service"
	"github.com/garnizeh/interventions/pkg/models"
)

type InterventionsHandler struct {
	svc *service.InterventionService
}

func NewInterventionsHandler(svc *service.InterventionService) *InterventionsHandler {
	return &InterventionsHandler{svc: svc}
}

func (h *InterventionsHandler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dash, err := h.svc.ListForRole(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *InterventionsHandler) CreateIntervention(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errBadRequest)
		return
	}

	inv, err := h.svc.CreateIntervention(r.Context(), sess, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *InterventionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := interventionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest)
		return
	}

	inv, err := h.svc.UpdateStatus(r.Context(), sess, id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// interventionID reads the {id} path variable. Ids that cannot name a row
// are reported as not found.
func interventionID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("intervention %q: %w", raw, models.ErrNotFound)
	}
	return id, nil
}
