package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/printing"
	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

// TicketStation prints tickets on the local hardware. printing.Station
// satisfies it.
type TicketStation interface {
	PrintSale(ctx context.Context, t ticket.SaleTicket, printer string) (printing.Receipt, error)
	PrintMovement(ctx context.Context, m ticket.MovementTicket, printer string) (printing.Receipt, error)
	SelfTest(ctx context.Context, printer string) (printing.Receipt, error)
}

// PrinterResolver supplies the selected printer when a task names none.
type PrinterResolver func(ctx context.Context) string

// PrintTicketJob executes print tasks on the worker.
type PrintTicketJob struct {
	Station TicketStation
	Resolve PrinterResolver
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPrintTicketJob constructs the print handlers.
func NewPrintTicketJob(station TicketStation, resolve PrinterResolver, logger *slog.Logger, metrics *jobmetrics.Metrics) *PrintTicketJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintTicketJob{Station: station, Resolve: resolve, Logger: logger, Metrics: metrics}
}

// HandleSale processes TaskPrintSaleTicket.
func (j *PrintTicketJob) HandleSale(ctx context.Context, task *asynq.Task) error {
	var payload PrintSalePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: decode sale ticket: %v", asynq.SkipRetry, err)
	}
	printer := j.printer(ctx, payload.Printer)
	return j.run(ctx, TaskPrintSaleTicket, func() (printing.Receipt, error) {
		return j.Station.PrintSale(ctx, payload.Ticket, printer)
	})
}

// HandleMovement processes TaskPrintMovementTicket.
func (j *PrintTicketJob) HandleMovement(ctx context.Context, task *asynq.Task) error {
	var payload PrintMovementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: decode movement ticket: %v", asynq.SkipRetry, err)
	}
	printer := j.printer(ctx, payload.Printer)
	return j.run(ctx, TaskPrintMovementTicket, func() (printing.Receipt, error) {
		return j.Station.PrintMovement(ctx, payload.Ticket, printer)
	})
}

// HandleSelfTest processes TaskPrinterSelfTest.
func (j *PrintTicketJob) HandleSelfTest(ctx context.Context, task *asynq.Task) error {
	var payload SelfTestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: decode self test: %v", asynq.SkipRetry, err)
	}
	printer := j.printer(ctx, payload.Printer)
	return j.run(ctx, TaskPrinterSelfTest, func() (printing.Receipt, error) {
		return j.Station.SelfTest(ctx, printer)
	})
}

// Handlers lists the print handlers for worker registration.
func (j *PrintTicketJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskPrintSaleTicket, Handler: j.HandleSale},
		{Type: TaskPrintMovementTicket, Handler: j.HandleMovement},
		{Type: TaskPrinterSelfTest, Handler: j.HandleSelfTest},
	}
}

func (j *PrintTicketJob) printer(ctx context.Context, requested string) string {
	if requested != "" || j.Resolve == nil {
		return requested
	}
	return j.Resolve(ctx)
}

func (j *PrintTicketJob) run(ctx context.Context, name string, print func() (printing.Receipt, error)) error {
	if j == nil || j.Station == nil {
		return errors.New("print job: station not configured")
	}
	tracker := j.Metrics.Track(name)
	receipt, err := print()
	tracker.End(err)
	if err != nil {
		j.Logger.Error("print task failed", slog.String("task", name), slog.Any("error", err))
		if errors.Is(err, ticket.ErrValidation) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	attrs := []any{
		slog.String("task", name),
		slog.String("job", receipt.Job),
		slog.String("outcome", string(receipt.Outcome)),
	}
	if receipt.Warning != "" {
		j.Logger.WarnContext(ctx, "print task unconfirmed", attrs...)
		return nil
	}
	j.Logger.InfoContext(ctx, "print task delivered", attrs...)
	return nil
}
