// Package ticket builds ESC/POS byte streams for thermal receipt printers.
package ticket

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCustomer is the customer name stored on sales without a customer.
const DefaultCustomer = "Público General"

// ErrValidation marks a ticket model that breaks the encoder contract.
var ErrValidation = errors.New("ticket: invalid model")

// Branch identifies the store printed in the header.
type Branch struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Flags gate the hardware opcodes appended to a ticket.
type Flags struct {
	CutPaper   bool `json:"cut_paper"`
	OpenDrawer bool `json:"open_drawer"`
	Beep       bool `json:"beep"`
}

// LineItem is one row of the item table.
type LineItem struct {
	Quantity    float64 `json:"quantity"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// SaleTicket is the printable view of a completed sale.
type SaleTicket struct {
	Branch    Branch     `json:"branch"`
	Cashier   string     `json:"cashier"`
	Shift     int        `json:"shift"`
	Folio     string     `json:"folio"`
	Customer  string     `json:"customer,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	Tendered  float64    `json:"tendered"`
	Change    float64    `json:"change"`
	Savings   *float64   `json:"savings,omitempty"`
	Flags     Flags      `json:"flags"`
}

// Pieces sums the quantities of every line.
func (t SaleTicket) Pieces() float64 {
	var total float64
	for _, item := range t.Items {
		total += item.Quantity
	}
	return total
}

// Validate reports contract violations such as negative quantities.
func (t SaleTicket) Validate() error {
	for i, item := range t.Items {
		if item.Quantity < 0 {
			return fmt.Errorf("%w: negative quantity on line %d", ErrValidation, i+1)
		}
		if item.UnitPrice < 0 || item.Amount < 0 {
			return fmt.Errorf("%w: negative price on line %d", ErrValidation, i+1)
		}
	}
	if t.Total < 0 || t.Tendered < 0 {
		return fmt.Errorf("%w: negative totals", ErrValidation)
	}
	return nil
}

// MovementType enumerates cash drawer movements.
type MovementType string

const (
	// MovementDeposit puts cash into the drawer.
	MovementDeposit MovementType = "ENTRADA"
	// MovementWithdrawal takes cash out of the drawer.
	MovementWithdrawal MovementType = "SALIDA"
)

// MovementTicket is the printable view of a cash drawer movement.
type MovementTicket struct {
	Branch    Branch       `json:"branch"`
	User      string       `json:"user"`
	Timestamp time.Time    `json:"timestamp"`
	Type      MovementType `json:"type"`
	Amount    float64      `json:"amount"`
	Concept   string       `json:"concept,omitempty"`
	Flags     Flags        `json:"flags"`
}

// Validate reports contract violations of a movement.
func (m MovementTicket) Validate() error {
	if m.Amount < 0 {
		return fmt.Errorf("%w: negative movement amount", ErrValidation)
	}
	return nil
}
