// Package sales defines the finalized sale payload exchanged between the
// register, the offline queue and the remote ledger.
package sales

import (
	"errors"
	"strings"
)

// ErrValidation marks a payload that cannot be finalized.
var ErrValidation = errors.New("sales: invalid sale")

// PaymentMethod enumerates accepted tenders.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMixed    PaymentMethod = "mixed"
)

// Item is one sold line.
type Item struct {
	ProductID   int64   `json:"product_id,omitempty" validate:"gte=0"`
	SKU         string  `json:"sku" validate:"required,max=64"`
	Description string  `json:"description" validate:"max=200"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Amount      float64 `json:"amount" validate:"gte=0"`
}

// Sale is the full payload submitted to the ledger. Once finalized it is
// never mutated.
type Sale struct {
	Items         []Item        `json:"items" validate:"required,min=1,dive"`
	Total         float64       `json:"total" validate:"gte=0"`
	Tendered      float64       `json:"tendered" validate:"gte=0"`
	Change        float64       `json:"change" validate:"gte=0"`
	Savings       float64       `json:"savings,omitempty" validate:"gte=0"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=cash card transfer mixed"`
	BranchID      int64         `json:"branch_id" validate:"required,gt=0"`
	UserID        int64         `json:"user_id" validate:"required,gt=0"`
	ShiftID       int64         `json:"shift_id" validate:"gte=0"`
	CustomerID    *int64        `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	CustomerName  string        `json:"customer_name,omitempty" validate:"max=200"`
}

// Pieces sums item quantities.
func (s Sale) Pieces() float64 {
	var total float64
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// IsCash reports whether the drawer holds any of the tender.
func (s Sale) IsCash() bool {
	return s.PaymentMethod == PaymentCash || s.PaymentMethod == PaymentMixed
}

// Customer returns the display name of the buyer.
func (s Sale) Customer() string {
	return strings.TrimSpace(s.CustomerName)
}
