package sales

import "math"

// centTolerance absorbs float rounding when comparing money.
const centTolerance = 0.005

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineAmount returns quantity times unit price rounded to cents.
func LineAmount(quantity, unitPrice float64) float64 {
	return RoundCents(quantity * unitPrice)
}

// ItemsTotal sums line amounts.
func ItemsTotal(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return RoundCents(total)
}

// ChangeDue returns the change owed for a tender, never negative.
func ChangeDue(total, tendered float64) float64 {
	change := RoundCents(tendered - total)
	if change < 0 {
		return 0
	}
	return change
}

func moneyEqual(a, b float64) bool {
	return math.Abs(a-b) < centTolerance
}
