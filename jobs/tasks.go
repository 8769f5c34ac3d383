package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
)

const (
	// QueueDefault carries maintenance work such as catalog refreshes.
	QueueDefault = "default"
	// QueuePrint carries ticket print jobs.
	QueuePrint = "print"

	// TaskPrintSaleTicket prints a sale ticket.
	TaskPrintSaleTicket = "print:sale_ticket"
	// TaskPrintMovementTicket prints a cash movement ticket.
	TaskPrintMovementTicket = "print:movement_ticket"
	// TaskPrinterSelfTest prints the diagnostic page.
	TaskPrinterSelfTest = "print:self_test"
	// TaskCatalogRefresh refreshes the local catalog mirror of a branch.
	TaskCatalogRefresh = "catalog:refresh"
)

// printTimeout bounds a print task. The dispatcher applies its own helper
// timeout inside this window.
const printTimeout = time.Minute

// PrintSalePayload is the body of TaskPrintSaleTicket.
type PrintSalePayload struct {
	Ticket  ticket.SaleTicket `json:"ticket"`
	Printer string            `json:"printer,omitempty"`
}

// PrintMovementPayload is the body of TaskPrintMovementTicket.
type PrintMovementPayload struct {
	Ticket  ticket.MovementTicket `json:"ticket"`
	Printer string                `json:"printer,omitempty"`
}

// SelfTestPayload is the body of TaskPrinterSelfTest.
type SelfTestPayload struct {
	Printer string `json:"printer,omitempty"`
}

// CatalogRefreshPayload is the body of TaskCatalogRefresh. A zero branch
// selects the terminal's own branch.
type CatalogRefreshPayload struct {
	BranchID int64 `json:"branch_id,omitempty"`
}

// printOptions never retry: a replayed print job duplicates paper.
func printOptions() []asynq.Option {
	return []asynq.Option{asynq.Queue(QueuePrint), asynq.MaxRetry(0), asynq.Timeout(printTimeout)}
}

// NewPrintSaleTask builds a sale ticket print task.
func NewPrintSaleTask(payload PrintSalePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrintSaleTicket, body, printOptions()...), nil
}

// NewPrintMovementTask builds a movement ticket print task.
func NewPrintMovementTask(payload PrintMovementPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrintMovementTicket, body, printOptions()...), nil
}

// NewSelfTestTask builds a self-test print task.
func NewSelfTestTask(printer string) (*asynq.Task, error) {
	body, err := json.Marshal(SelfTestPayload{Printer: printer})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrinterSelfTest, body, printOptions()...), nil
}

// NewCatalogRefreshTask builds a catalog refresh task.
func NewCatalogRefreshTask(branchID int64) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogRefreshPayload{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
