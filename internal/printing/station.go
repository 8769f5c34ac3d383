package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

// Mode selects how tickets reach the printer.
type Mode string

const (
	// ModeRaw sends ESC/POS bytes through the raw channel.
	ModeRaw Mode = "raw"
	// ModeHTML renders the visual ticket to PDF and prints it.
	ModeHTML Mode = "html"
)

// ErrHTMLUnavailable is returned when the HTML path is requested without a renderer.
var ErrHTMLUnavailable = errors.New("printing: html fallback not configured")

// Renderer produces the visual rendition of tickets. view.Engine satisfies it.
type Renderer interface {
	RenderSaleHTML(t ticket.SaleTicket) (string, error)
	RenderMovementHTML(m ticket.MovementTicket) (string, error)
}

// StationConfig wires a Station.
type StationConfig struct {
	Dispatcher *Dispatcher
	HTML       *HTMLPrinter
	Views      Renderer
	Mode       Mode
	Clock      func() time.Time
}

// Station is the printer control surface offered to the rest of the system.
type Station struct {
	dispatcher *Dispatcher
	html       *HTMLPrinter
	views      Renderer
	mode       Mode
	clock      func() time.Time
}

// NewStation builds a station. Mode defaults to raw.
func NewStation(cfg StationConfig) *Station {
	mode := cfg.Mode
	if mode != ModeHTML {
		mode = ModeRaw
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Station{dispatcher: cfg.Dispatcher, html: cfg.HTML, views: cfg.Views, mode: mode, clock: clock}
}

// Mode reports the configured delivery mode.
func (s *Station) Mode() Mode { return s.mode }

// ListPrinters enumerates host printers.
func (s *Station) ListPrinters(ctx context.Context) ([]string, error) {
	return s.dispatcher.provider.ListPrinters(ctx)
}

// DispatchRaw sends a prebuilt buffer verbatim.
func (s *Station) DispatchRaw(ctx context.Context, buf []byte, printer, job string) (Receipt, error) {
	return s.dispatcher.Dispatch(ctx, buf, printer, job)
}

// PrintHTML prints a visual document through the PDF fallback.
func (s *Station) PrintHTML(ctx context.Context, html, printer, job string) (Receipt, error) {
	if s.html == nil {
		return Receipt{}, ErrHTMLUnavailable
	}
	return s.html.Print(ctx, html, printer, job)
}

// KickDrawer opens the cash drawer wired to the printer.
func (s *Station) KickDrawer(ctx context.Context, printer string) (Receipt, error) {
	return s.dispatcher.Dispatch(ctx, ticket.EncodeDrawerKick(), printer, "cash-drawer")
}

// SelfTest prints the diagnostic page.
func (s *Station) SelfTest(ctx context.Context, printer string) (Receipt, error) {
	return s.dispatcher.Dispatch(ctx, ticket.EncodeSelfTest(printer, s.clock()), printer, "self-test")
}

// PrintSale prints a sale ticket in the configured mode.
func (s *Station) PrintSale(ctx context.Context, t ticket.SaleTicket, printer string) (Receipt, error) {
	if err := t.Validate(); err != nil {
		return Receipt{}, err
	}
	job := jobName("sale", t.Folio)
	if s.mode == ModeHTML {
		html, err := s.renderSale(t)
		if err != nil {
			return Receipt{}, err
		}
		return s.PrintHTML(ctx, html, printer, job)
	}
	return s.dispatcher.Dispatch(ctx, ticket.EncodeSale(t), printer, job)
}

// PrintMovement prints a cash movement ticket in the configured mode.
func (s *Station) PrintMovement(ctx context.Context, m ticket.MovementTicket, printer string) (Receipt, error) {
	if err := m.Validate(); err != nil {
		return Receipt{}, err
	}
	job := jobName("movement", strings.ToLower(string(m.Type)))
	if s.mode == ModeHTML {
		if s.views == nil {
			return Receipt{}, ErrHTMLUnavailable
		}
		html, err := s.views.RenderMovementHTML(m)
		if err != nil {
			return Receipt{}, err
		}
		return s.PrintHTML(ctx, html, printer, job)
	}
	return s.dispatcher.Dispatch(ctx, ticket.EncodeMovement(m), printer, job)
}

// PreviewSale returns the visual rendition without printing.
func (s *Station) PreviewSale(t ticket.SaleTicket) (string, error) {
	return s.renderSale(t)
}

func (s *Station) renderSale(t ticket.SaleTicket) (string, error) {
	if s.views == nil {
		return "", ErrHTMLUnavailable
	}
	return s.views.RenderSaleHTML(t)
}

func jobName(kind, ref string) string {
	if ref = strings.TrimSpace(ref); ref == "" {
		return "pos-" + kind
	}
	return fmt.Sprintf("pos-%s-%s", kind, ref)
}
