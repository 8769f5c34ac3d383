package printing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

// PrinterResolver returns the configured printer used when a request names none.
type PrinterResolver func(ctx context.Context) string

// Handler exposes the printer control surface to the UI shell.
type Handler struct {
	station *Station
	resolve PrinterResolver
	logger  *slog.Logger
}

// NewHandler builds a printing handler.
func NewHandler(station *Station, resolve PrinterResolver, logger *slog.Logger) *Handler {
	if resolve == nil {
		resolve = func(context.Context) string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{station: station, resolve: resolve, logger: logger}
}

// MountRoutes registers printer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPrinters)
	r.Post("/drawer", h.kickDrawer)
	r.Post("/self-test", h.selfTest)
	r.Post("/preview", h.preview)
}

type printerRequest struct {
	Printer string `json:"printer"`
}

func (h *Handler) listPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := h.station.ListPrinters(r.Context())
	if err != nil {
		h.logger.Warn("list printers", slog.Any("error", err))
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
		return
	}
	if printers == nil {
		printers = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"printers": printers,
		"selected": h.resolve(r.Context()),
		"mode":     h.station.Mode(),
	})
}

func (h *Handler) kickDrawer(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.station.KickDrawer)
}

func (h *Handler) selfTest(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.station.SelfTest)
}

func (h *Handler) control(w http.ResponseWriter, r *http.Request, run func(context.Context, string) (Receipt, error)) {
	var req printerRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	printer := req.Printer
	if printer == "" {
		printer = h.resolve(r.Context())
	}
	receipt, err := run(r.Context(), printer)
	if err != nil {
		h.logger.Error("printer control", slog.String("printer", printer), slog.Any("error", err))
		RespondPrintError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var model ticket.SaleTicket
	if err := httpx.DecodeJSON(w, r, &model); err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := h.station.PreviewSale(model)
	if err != nil {
		RespondPrintError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// RespondPrintError writes the problem response for a printing failure.
func RespondPrintError(w http.ResponseWriter, err error) {
	var staging *StagingIOError
	var dispatch *PrintDispatchError
	switch {
	case errors.Is(err, ticket.ErrValidation):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, err))
	case errors.Is(err, ErrHTMLUnavailable):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, err))
	case errors.As(err, &staging):
		httpx.Problem(w, http.StatusInternalServerError, "Staging Failed", err.Error())
	case errors.As(err, &dispatch):
		httpx.Problem(w, http.StatusBadGateway, "Print Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
