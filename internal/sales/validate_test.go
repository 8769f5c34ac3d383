package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSale() Sale {
	return Sale{
		Items: []Item{
			{SKU: "750100", Description: "Leche Entera 1L", Quantity: 2, UnitPrice: 25.5, Amount: 51},
			{SKU: "750200", Description: "Pan", Quantity: 1, UnitPrice: 12, Amount: 12},
		},
		Total:         63,
		Tendered:      100,
		Change:        37,
		PaymentMethod: PaymentCash,
		BranchID:      1,
		UserID:        7,
		ShiftID:       3,
	}
}

func TestValidatorAcceptsConsistentSale(t *testing.T) {
	require.NoError(t, NewValidator().Sale(validSale()))
}

func TestValidatorRejects(t *testing.T) {
	cases := map[string]func(*Sale){
		"no items":           func(s *Sale) { s.Items = nil },
		"zero quantity":      func(s *Sale) { s.Items[0].Quantity = 0 },
		"missing sku":        func(s *Sale) { s.Items[1].SKU = "" },
		"unknown payment":    func(s *Sale) { s.PaymentMethod = "crypto" },
		"missing branch":     func(s *Sale) { s.BranchID = 0 },
		"total mismatch":     func(s *Sale) { s.Total = 60 },
		"short tender":       func(s *Sale) { s.Tendered = 50; s.Change = 0 },
		"wrong change":       func(s *Sale) { s.Change = 30 },
		"non-positive buyer": func(s *Sale) { id := int64(0); s.CustomerID = &id },
	}
	v := NewValidator()
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSale()
			s.Items = append([]Item(nil), s.Items...)
			mutate(&s)
			assert.ErrorIs(t, v.Sale(s), ErrValidation)
		})
	}
}

func TestValidatorCardSkipsTenderChecks(t *testing.T) {
	s := validSale()
	s.PaymentMethod = PaymentCard
	s.Tendered = 0
	s.Change = 0
	assert.NoError(t, NewValidator().Sale(s))
}

func TestCalculations(t *testing.T) {
	assert.Equal(t, 51.0, LineAmount(2, 25.5))
	assert.Equal(t, 0.35, LineAmount(0.7, 0.5))
	assert.Equal(t, 37.0, ChangeDue(63, 100))
	assert.Zero(t, ChangeDue(63, 50))
	assert.Equal(t, 63.0, ItemsTotal(validSale().Items))
}
