package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Handler exposes mirror lookups to the UI shell.
type Handler struct {
	service *Service
	branch  int64
	logger  *slog.Logger
}

// NewHandler builds a catalog handler. branch is the terminal default used
// by refresh requests that name none.
func NewHandler(service *Service, branch int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, branch: branch, logger: logger}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{sku}", h.lookup)
	r.Post("/refresh", h.refresh)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	row, found, err := h.service.Lookup(r.Context(), sku)
	if err != nil {
		h.logger.Error("catalog lookup", slog.String("sku", sku), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !found {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, sku))
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	branch := h.branch
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: branch_id", httpx.ErrValidation))
			return
		}
		branch = parsed
	}
	count, err := h.service.Refresh(r.Context(), branch)
	switch {
	case errors.Is(err, ErrInvalidBranch):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, err))
		return
	case errors.Is(err, ErrNoFetcher):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
		return
	case err != nil:
		h.logger.Warn("catalog refresh", slog.Int64("branch_id", branch), slog.Any("error", err))
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branch_id": branch, "rows": count})
}
