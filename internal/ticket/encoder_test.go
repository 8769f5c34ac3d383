package ticket

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func sampleSale() SaleTicket {
	savings := 4.5
	return SaleTicket{
		Branch:    Branch{Name: "Abarrotes Centro", Address: "Av. Juárez 120", Phone: "555-0100"},
		Cashier:   "María López",
		Shift:     3,
		Folio:     "F-000123",
		Customer:  "Juan Pérez",
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Items: []LineItem{
			{Quantity: 2, Description: "Leche Entera 1L", UnitPrice: 25.50, Amount: 51.00},
			{Quantity: 1, Description: "Cereal de maiz con miel y almendras 500g", UnitPrice: 62.00, Amount: 62.00},
		},
		Total:    113.00,
		Tendered: 200.00,
		Change:   87.00,
		Savings:  &savings,
		Flags:    Flags{CutPaper: true, OpenDrawer: true},
	}
}

func encodeCP850(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.CodePage850.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func sectionLines(b *builder, s section) []string {
	var out []string
	for _, l := range b.lines {
		if l.section == s {
			out = append(out, l.text)
		}
	}
	return out
}

func TestEncodeSaleSingleItemScenario(t *testing.T) {
	model := SaleTicket{
		Branch:    Branch{Name: "Tienda"},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Items:     []LineItem{{Quantity: 2, Description: "Leche Entera 1L", UnitPrice: 25.50, Amount: 51.00}},
		Total:     51.00,
		Tendered:  51.00,
	}

	b := buildSale(model)
	rows := sectionLines(b, sectionItems)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, LineWidth, utf8.RuneCountInString(row))
	assert.Equal(t, "2   ", row[:ColQuantity])
	assert.Equal(t, padRight("Leche Entera 1L", ColDescription), row[ColQuantity:ColQuantity+ColDescription])
	assert.Equal(t, "     25.50", row[ColQuantity+ColDescription:ColQuantity+ColDescription+ColUnitPrice])
	assert.Equal(t, "      51.00", row[LineWidth-ColAmount:])

	totals := sectionLines(b, sectionTotals)
	assert.Contains(t, totals, "TOTAL: $51.00")
	assert.True(t, bytes.Contains(b.buf, []byte("TOTAL: $51.00")))
}

func TestEncodeSaleSectionsInOrder(t *testing.T) {
	buf := EncodeSale(sampleSale())

	header := bytes.Index(buf, []byte("Abarrotes Centro"))
	table := bytes.Index(buf, []byte("Leche Entera 1L"))
	totals := bytes.Index(buf, []byte("TOTAL: $113.00"))
	footer := bytes.Index(buf, encodeCP850(t, footerText))

	require.NotEqual(t, -1, header)
	require.NotEqual(t, -1, table)
	require.NotEqual(t, -1, totals)
	require.NotEqual(t, -1, footer)
	assert.Less(t, header, table)
	assert.Less(t, table, totals)
	assert.Less(t, totals, footer)
}

func TestEncodeSaleRowCountMatchesWrappedLines(t *testing.T) {
	model := sampleSale()
	b := buildSale(model)

	expected := 0
	for _, item := range model.Items {
		expected += len(WrapWords(item.Description, ColDescription))
	}
	rows := sectionLines(b, sectionItems)
	assert.Len(t, rows, expected)
	assert.Greater(t, expected, len(model.Items))

	continuation := rows[2]
	assert.True(t, strings.HasPrefix(continuation, strings.Repeat(" ", ColQuantity)))
	assert.NotContains(t, continuation, "62.00")
}

func TestEncodeSaleIsDeterministic(t *testing.T) {
	first := EncodeSale(sampleSale())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EncodeSale(sampleSale()))
	}
}

func TestEncodeSaleOpcodesFollowFlags(t *testing.T) {
	withFlags := EncodeSale(sampleSale())
	require.True(t, bytes.HasPrefix(withFlags, append(append([]byte{}, opInit...), opCodePage850...)))
	assert.True(t, bytes.Contains(withFlags, opFeedAndCut))
	assert.False(t, bytes.Contains(withFlags, opBeep))

	kick := bytes.Index(withFlags, opDrawerKick)
	header := bytes.Index(withFlags, []byte("Abarrotes Centro"))
	require.NotEqual(t, -1, kick)
	assert.Less(t, kick, header, "drawer opens before the header prints")

	model := sampleSale()
	model.Flags = Flags{Beep: true}
	plainTicket := EncodeSale(model)
	assert.False(t, bytes.Contains(plainTicket, opFeedAndCut))
	assert.False(t, bytes.Contains(plainTicket, opDrawerKick))
	assert.True(t, bytes.Contains(plainTicket, opBeep))
}

func TestEncodeSaleTranscodesToCodePage850(t *testing.T) {
	buf := EncodeSale(sampleSale())
	assert.True(t, bytes.Contains(buf, encodeCP850(t, "Av. Juárez 120")))
	assert.True(t, bytes.Contains(buf, encodeCP850(t, "CAJERO: María López")))
	assert.False(t, bytes.Contains(buf, []byte("María")), "utf-8 bytes must not reach the printer")
}

func TestEncodeSaleZeroItemsAndPlaceholders(t *testing.T) {
	b := buildSale(SaleTicket{})

	assert.Empty(t, sectionLines(b, sectionItems))
	header := sectionLines(b, sectionHeader)
	require.NotEmpty(t, header)
	assert.Equal(t, placeholderStore, header[0])

	meta := sectionLines(b, sectionMeta)
	assert.Contains(t, meta, "CAJERO: "+placeholderCashier)
	assert.Contains(t, meta, "TURNO: "+placeholderShift)
	assert.Contains(t, meta, "FOLIO: "+placeholderFolio)
	assert.Contains(t, meta, "CLIENTE: "+placeholderCustomer)

	totals := sectionLines(b, sectionTotals)
	assert.Contains(t, totals, "ARTICULOS: 0")
	assert.Contains(t, totals, "TOTAL: $0.00")
	assert.NotContains(t, strings.Join(totals, "\n"), "AHORRO")
	assert.Equal(t, []string{footerText}, sectionLines(b, sectionFooter))
}

func TestEncodeSaleEmptyDescriptionKeepsRow(t *testing.T) {
	b := buildSale(SaleTicket{Items: []LineItem{{Quantity: 1, UnitPrice: 3, Amount: 3}}})
	rows := sectionLines(b, sectionItems)
	require.Len(t, rows, 1)
	assert.Equal(t, "1   "+strings.Repeat(" ", ColDescription)+"      3.00"+"       3.00", rows[0])
}

func TestEncodeSaleMoneyHasNoThousandsSeparator(t *testing.T) {
	model := SaleTicket{Total: 1234567.891, Tendered: 1300000, Change: 65432.109}
	totals := sectionLines(buildSale(model), sectionTotals)
	assert.Contains(t, totals, "TOTAL: $1234567.89")
	assert.Contains(t, totals, "CAMBIO: $65432.11")
}

func TestEncodeMovement(t *testing.T) {
	model := MovementTicket{
		Branch:    Branch{Name: "Abarrotes Centro"},
		User:      "Supervisor",
		Timestamp: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
		Type:      MovementWithdrawal,
		Amount:    1500,
		Flags:     Flags{OpenDrawer: true, CutPaper: true},
	}
	b := buildMovement(model)

	meta := sectionLines(b, sectionMeta)
	assert.Contains(t, meta, "TIPO: SALIDA")
	assert.Contains(t, meta, "CONCEPTO: "+placeholderConcept)
	assert.Empty(t, sectionLines(b, sectionItems))

	amount := append(append(append([]byte{}, opSizeDouble...), opBoldOn...), []byte("$1500.00")...)
	assert.True(t, bytes.Contains(b.buf, amount), "amount block uses double size")
	assert.True(t, bytes.Contains(b.buf, opDrawerKick))
	assert.Equal(t, b.buf, EncodeMovement(model))
}

func TestEncodeDrawerKickOnly(t *testing.T) {
	buf := EncodeDrawerKick()
	expected := append(append(append([]byte{}, opInit...), opCodePage850...), opDrawerKick...)
	assert.Equal(t, expected, buf)
}

func TestEncodeSelfTestCutsAndBeeps(t *testing.T) {
	buf := EncodeSelfTest("EPSON-TM20", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, bytes.Contains(buf, []byte("EPSON-TM20")))
	assert.True(t, bytes.Contains(buf, opFeedAndCut))
	assert.True(t, bytes.Contains(buf, opBeep))
}

func TestSaleTicketValidate(t *testing.T) {
	model := sampleSale()
	require.NoError(t, model.Validate())

	model.Items[0].Quantity = -1
	assert.ErrorIs(t, model.Validate(), ErrValidation)
	assert.ErrorIs(t, MovementTicket{Amount: -5}.Validate(), ErrValidation)
}

func TestEncodeStripsControlBytesFromText(t *testing.T) {
	inject := "\x1dV\x42\x00\x1bp\x00\x19\xfa\x1bB\x03\x02\r\nX"
	sale := SaleTicket{
		Branch:    Branch{Name: "Tienda" + inject, Address: "Calle 1" + inject, Phone: "555" + inject},
		Cashier:   "Ana" + inject,
		Folio:     "F-1" + inject,
		Customer:  "Juan" + inject,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Items:     []LineItem{{Quantity: 1, Description: "Pan" + inject, UnitPrice: 10, Amount: 10}},
		Total:     10,
		Tendered:  10,
	}
	movement := MovementTicket{
		Branch:    sale.Branch,
		User:      "Ana" + inject,
		Timestamp: sale.Timestamp,
		Type:      MovementType("ENTRADA" + inject),
		Amount:    50,
		Concept:   "Fondo" + inject,
	}

	for name, out := range map[string][]byte{"sale": EncodeSale(sale), "movement": EncodeMovement(movement)} {
		assert.False(t, bytes.Contains(out, opFeedAndCut), "%s: cut without CutPaper", name)
		assert.False(t, bytes.Contains(out, opDrawerKick), "%s: drawer kick without OpenDrawer", name)
		assert.False(t, bytes.Contains(out, opBeep), "%s: beep without Beep", name)
		assert.False(t, bytes.Contains(out, []byte{0x1B, 'p'}), "%s: raw ESC from text", name)
	}

	b := buildSale(sale)
	for _, l := range b.lines {
		assert.NotContains(t, l.text, "\n")
		assert.NotContains(t, l.text, "\r")
	}

	sale.Flags = Flags{CutPaper: true, OpenDrawer: true, Beep: true}
	out := EncodeSale(sale)
	assert.Equal(t, 1, bytes.Count(out, opFeedAndCut))
	assert.Equal(t, 1, bytes.Count(out, opDrawerKick))
	assert.Equal(t, 1, bytes.Count(out, opBeep))
}
