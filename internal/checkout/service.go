// Package checkout finalizes sales: it routes each sale to the ledger or the
// offline queue and hands the resulting ticket to the printer.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/connectivity"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/offline"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
	"github.com/odyssey-erp/odyssey-pos/internal/settings"
	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

// Path names the route a sale took.
type Path string

const (
	// PathOnline means the ledger acknowledged the sale directly.
	PathOnline Path = "online"
	// PathOffline means the terminal was offline and the sale was queued.
	PathOffline Path = "offline"
	// PathTurbo means turbo mode queued the sale without trying the ledger.
	PathTurbo Path = "turbo"
	// PathFallback means the direct submission failed on the network and the
	// sale was queued.
	PathFallback Path = "fallback"
)

// Submitter sends sales to the ledger.
type Submitter interface {
	SubmitSale(ctx context.Context, sale sales.Sale, idempotencyKey string) (ledger.Ack, error)
}

// Queue accepts sales that could not be submitted.
type Queue interface {
	EnqueueWithID(ctx context.Context, localID string, sale sales.Sale) (string, error)
}

// Connectivity is read before each sale and told about network failures.
type Connectivity interface {
	State() connectivity.State
	ReportFailure(err error)
}

// SettingsSource provides the live terminal settings.
type SettingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// TicketPrinter delivers tickets. Implementations either print inline or
// enqueue a background job.
type TicketPrinter interface {
	PrintSale(ctx context.Context, t ticket.SaleTicket, printer string) error
	PrintMovement(ctx context.Context, m ticket.MovementTicket, printer string) error
}

// Request is a finalized sale posted by the UI shell.
type Request struct {
	Sale    sales.Sale `json:"sale"`
	Cashier string     `json:"cashier" validate:"max=120"`
	// SkipPrint suppresses the ticket, for reprint-free flows.
	SkipPrint bool `json:"skip_print,omitempty"`
}

// PrintStatus reports what happened to the ticket.
type PrintStatus struct {
	Requested bool   `json:"requested"`
	Error     string `json:"error,omitempty"`
}

// Result describes a finalized sale.
type Result struct {
	Folio       string            `json:"folio"`
	Path        Path              `json:"path"`
	Provisional bool              `json:"provisional"`
	Message     string            `json:"message,omitempty"`
	Ticket      ticket.SaleTicket `json:"ticket"`
	Print       PrintStatus       `json:"print"`
}

// MovementRequest records cash entering or leaving the drawer.
type MovementRequest struct {
	Type    ticket.MovementType `json:"type" validate:"required,oneof=ENTRADA SALIDA"`
	Amount  float64             `json:"amount" validate:"gt=0"`
	Concept string              `json:"concept" validate:"max=200"`
	User    string              `json:"user" validate:"max=120"`
}

// MovementResult describes a recorded movement.
type MovementResult struct {
	Ticket ticket.MovementTicket `json:"ticket"`
	Print  PrintStatus           `json:"print"`
}

// Config wires a Service.
type Config struct {
	Branch       ticket.Branch
	Ledger       Submitter
	Queue        Queue
	Connectivity Connectivity
	Settings     SettingsSource
	Printer      TicketPrinter
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
}

// Service finalizes sales and movements.
type Service struct {
	branch    ticket.Branch
	ledger    Submitter
	queue     Queue
	conn      Connectivity
	settings  SettingsSource
	printer   TicketPrinter
	validator *sales.Validator
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
	clock     func() time.Time
	newID     func() string
}

// NewService constructs a checkout service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		branch:    cfg.Branch,
		ledger:    cfg.Ledger,
		queue:     cfg.Queue,
		conn:      cfg.Connectivity,
		settings:  cfg.Settings,
		printer:   cfg.Printer,
		validator: sales.NewValidator(),
		logger:    logger.With(slog.String("component", "checkout")),
		metrics:   cfg.Metrics,
		clock:     time.Now,
		newID:     offline.NewLocalID,
	}
}

// Checkout finalizes a sale. A ledger rejection is returned to the caller
// and nothing is queued or printed. Print failures are reported in the
// result and never undo the sale.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	if err := s.validator.Sale(req.Sale); err != nil {
		return Result{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return Result{}, err
	}
	prefs := s.currentSettings(ctx)

	localID := s.newID()
	result := Result{}
	switch {
	case prefs.TurboMode:
		result.Path = PathTurbo
	case s.conn.State() != connectivity.Online:
		result.Path = PathOffline
	default:
		ack, err := s.ledger.SubmitSale(ctx, req.Sale, localID)
		switch {
		case err == nil:
			result.Path = PathOnline
			result.Folio = ack.Folio
			result.Message = ack.Message
		case ledger.IsNetwork(err):
			if ctx.Err() != nil {
				s.logger.Warn("checkout cancelled during submit, queueing sale", slog.String("local_id", localID), slog.Any("error", err))
			} else {
				s.logger.Warn("ledger unreachable, queueing sale", slog.String("local_id", localID), slog.Any("error", err))
				s.conn.ReportFailure(err)
			}
			result.Path = PathFallback
		default:
			return Result{}, err
		}
	}

	if result.Path != PathOnline {
		// The ledger may already hold this key, so the sale must land in the
		// queue even if the caller went away.
		if _, err := s.queue.EnqueueWithID(context.WithoutCancel(ctx), localID, req.Sale); err != nil {
			return Result{}, fmt.Errorf("checkout: queue sale: %w", err)
		}
		result.Folio = localID
		result.Provisional = true
	}
	if result.Folio == "" {
		result.Folio = localID
	}
	s.metrics.ObserveCheckout(string(result.Path))

	result.Ticket = s.saleTicket(req, result.Folio, prefs)
	if req.SkipPrint {
		return result, nil
	}
	result.Print.Requested = true
	if err := s.printer.PrintSale(ctx, result.Ticket, prefs.SelectedPrinter); err != nil {
		s.logger.Error("print sale ticket", slog.String("folio", result.Folio), slog.Any("error", err))
		result.Print.Error = err.Error()
	}
	return result, nil
}

// RecordMovement prints a cash drawer movement ticket.
func (s *Service) RecordMovement(ctx context.Context, req MovementRequest) (MovementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return MovementResult{}, err
	}
	prefs := s.currentSettings(ctx)
	result := MovementResult{Ticket: ticket.MovementTicket{
		Branch:    s.branch,
		User:      req.User,
		Timestamp: s.clock(),
		Type:      req.Type,
		Amount:    sales.RoundCents(req.Amount),
		Concept:   req.Concept,
		Flags: ticket.Flags{
			CutPaper:   prefs.CutPaper,
			OpenDrawer: prefs.OpenDrawerOnCash,
		},
	}}
	result.Print.Requested = true
	if err := s.printer.PrintMovement(ctx, result.Ticket, prefs.SelectedPrinter); err != nil {
		s.logger.Error("print movement ticket", slog.String("type", string(req.Type)), slog.Any("error", err))
		result.Print.Error = err.Error()
	}
	return result, nil
}

func (s *Service) currentSettings(ctx context.Context) settings.Settings {
	if s.settings == nil {
		return settings.Settings{}
	}
	prefs, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("load settings, using defaults", slog.Any("error", err))
	}
	return prefs
}

func (s *Service) saleTicket(req Request, folio string, prefs settings.Settings) ticket.SaleTicket {
	sale := req.Sale
	items := make([]ticket.LineItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		description := item.Description
		if description == "" {
			description = item.SKU
		}
		items = append(items, ticket.LineItem{
			Quantity:    item.Quantity,
			Description: description,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	t := ticket.SaleTicket{
		Branch:    s.branch,
		Cashier:   req.Cashier,
		Shift:     int(sale.ShiftID),
		Folio:     folio,
		Customer:  sale.Customer(),
		Timestamp: s.clock(),
		Items:     items,
		Total:     sale.Total,
		Tendered:  sale.Tendered,
		Change:    sale.Change,
		Flags: ticket.Flags{
			CutPaper:   prefs.CutPaper,
			OpenDrawer: prefs.OpenDrawerOnCash && sale.IsCash(),
		},
	}
	if sale.Savings > 0 {
		savings := sale.Savings
		t.Savings = &savings
	}
	return t
}
