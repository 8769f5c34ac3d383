package checkout

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-pos/internal/printing"
	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

// StationPrinter prints inline on the local printing station.
type StationPrinter struct {
	Station *printing.Station
	Logger  *slog.Logger
}

// PrintSale implements TicketPrinter.
func (p StationPrinter) PrintSale(ctx context.Context, t ticket.SaleTicket, printer string) error {
	receipt, err := p.Station.PrintSale(ctx, t, printer)
	p.note(receipt, err)
	return err
}

// PrintMovement implements TicketPrinter.
func (p StationPrinter) PrintMovement(ctx context.Context, m ticket.MovementTicket, printer string) error {
	receipt, err := p.Station.PrintMovement(ctx, m, printer)
	p.note(receipt, err)
	return err
}

func (p StationPrinter) note(receipt printing.Receipt, err error) {
	if err != nil || p.Logger == nil {
		return
	}
	p.Logger.Debug("ticket printed",
		slog.String("job", receipt.Job),
		slog.String("outcome", string(receipt.Outcome)),
		slog.Int("bytes", receipt.Bytes),
	)
}
