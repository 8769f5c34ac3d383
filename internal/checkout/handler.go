package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

// Handler exposes checkout to the UI shell.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a checkout handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers checkout routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.checkout)
	r.Post("/movements", h.movement)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		h.respond(w, err)
		return
	}
	status := http.StatusCreated
	if result.Provisional {
		status = http.StatusAccepted
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.RecordMovement(r.Context(), req)
	if err != nil {
		h.respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sales.ErrValidation):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, err))
	case ledger.IsRejected(err):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnprocessable, err))
	default:
		h.logger.Error("checkout", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
