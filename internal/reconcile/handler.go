package reconcile

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/connectivity"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Handler exposes sync status and manual drains.
type Handler struct {
	reconciler *Reconciler
}

// NewHandler builds a sync handler.
func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// MountRoutes registers sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.status)
	r.Post("/drain", h.drain)
}

type statusResponse struct {
	Status       Status  `json:"status"`
	Connectivity string  `json:"connectivity"`
	Pending      int     `json:"pending"`
	LastReport   *Report `json:"last_report,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.reconciler.queue.Count(r.Context())
	if err != nil {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
		return
	}
	resp := statusResponse{
		Status:       h.reconciler.Status(),
		Connectivity: string(h.reconciler.conn.State()),
		Pending:      pending,
	}
	if last, ok := h.reconciler.LastReport(); ok {
		resp.LastReport = &last
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) drain(w http.ResponseWriter, r *http.Request) {
	if h.reconciler.conn.State() != connectivity.Online {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrConflict, ErrOffline))
		return
	}
	report, err := h.reconciler.Drain(r.Context(), TriggerManual)
	switch {
	case errors.Is(err, ErrDrainInProgress):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrConflict, err))
		return
	case err != nil:
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
