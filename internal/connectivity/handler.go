package connectivity

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Handler lets the UI shell read and report connectivity.
type Handler struct {
	monitor *Monitor
}

// NewHandler builds a connectivity handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// MountRoutes registers connectivity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.status)
	r.Post("/", h.report)
}

type statusResponse struct {
	State State     `json:"state"`
	Since time.Time `json:"since,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, statusResponse{State: h.monitor.State(), Since: h.monitor.Since()})
}

type reportRequest struct {
	State  State  `json:"state"`
	Reason string `json:"reason"`
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !req.State.Valid() {
		httpx.RespondError(w, fmt.Errorf("%w: state must be online or offline", httpx.ErrValidation))
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "reported by ui"
	}
	changed := h.monitor.Set(req.State, reason)
	httpx.JSON(w, http.StatusOK, map[string]any{"state": h.monitor.State(), "changed": changed})
}
