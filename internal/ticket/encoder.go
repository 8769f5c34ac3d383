package ticket

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Placeholders printed when optional or missing fields are empty.
const (
	placeholderStore    = "PUNTO DE VENTA"
	placeholderCashier  = "SIN CAJERO"
	placeholderShift    = "-"
	placeholderFolio    = "SIN FOLIO"
	placeholderCustomer = "PÚBLICO GENERAL"
	placeholderConcept  = "SIN CONCEPTO"
	placeholderUser     = "SIN USUARIO"
	placeholderMovement = "SIN TIPO"

	footerText   = "¡GRACIAS POR SU COMPRA!"
	dateLayout   = "02/01/2006 15:04:05"
	signatureRow = "FIRMA: ______________________"
)

type section string

const (
	sectionHeader section = "header"
	sectionMeta   section = "meta"
	sectionItems  section = "items"
	sectionTotals section = "totals"
	sectionFooter section = "footer"
)

type style struct {
	bold   bool
	double bool
}

var (
	plain    = style{}
	bold     = style{bold: true}
	emphasis = style{bold: true, double: true}
)

// line records one printed text row; the encoder keeps them for layout checks.
type line struct {
	section section
	text    string
}

type builder struct {
	buf     []byte
	enc     *encoding.Encoder
	section section
	lines   []line
}

func newBuilder() *builder {
	b := &builder{enc: encoding.ReplaceUnsupported(charmap.CodePage850.NewEncoder())}
	b.raw(opInit, opCodePage850)
	return b
}

func (b *builder) raw(ops ...[]byte) {
	for _, op := range ops {
		b.buf = append(b.buf, op...)
	}
}

func (b *builder) enter(s section) {
	b.section = s
}

func (b *builder) text(align alignment, st style, s string) {
	s = stripControl(s)
	b.raw(align.opcode())
	if st.double {
		b.raw(opSizeDouble)
	}
	if st.bold {
		b.raw(opBoldOn)
	}
	b.buf = append(b.buf, b.encode(s)...)
	b.raw(opLineFeed)
	if st.bold {
		b.raw(opBoldOff)
	}
	if st.double {
		b.raw(opSizeNormal)
	}
	b.lines = append(b.lines, line{section: b.section, text: s})
}

func (b *builder) divider() {
	b.text(alignLeft, plain, strings.Repeat("-", LineWidth))
}

func (b *builder) encode(s string) []byte {
	out, err := b.enc.Bytes([]byte(s))
	if err != nil {
		return asciiOnly(s)
	}
	return out
}

// stripControl replaces control runes with spaces so model text can never
// carry printer opcodes or break the fixed-width layout. Rune counts are kept.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

func asciiOnly(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		out = append(out, '?')
	}
	return out
}

func (b *builder) header(branch Branch, at time.Time) {
	b.enter(sectionHeader)
	b.text(alignCenter, bold, fallback(branch.Name, placeholderStore))
	if strings.TrimSpace(branch.Address) != "" {
		b.text(alignCenter, plain, branch.Address)
	}
	if strings.TrimSpace(branch.Phone) != "" {
		b.text(alignCenter, plain, "TEL: "+branch.Phone)
	}
	b.text(alignCenter, plain, at.Format(dateLayout))
}

func (b *builder) footer(flags Flags) {
	b.enter(sectionFooter)
	b.text(alignCenter, plain, footerText)
	b.raw(opFeedTrailing)
	if flags.CutPaper {
		b.raw(opFeedAndCut)
	}
	if flags.Beep {
		b.raw(opBeep)
	}
}

func columnHeader() string {
	return padRight("CANT", ColQuantity) +
		padRight("DESCRIPCION", ColDescription) +
		padLeft("P.UNIT", ColUnitPrice) +
		padLeft("IMPORTE", ColAmount)
}

func (b *builder) itemRows(item LineItem) {
	wrapped := WrapWords(item.Description, ColDescription)
	first := padRight(FormatQuantity(item.Quantity), ColQuantity) +
		padRight(wrapped[0], ColDescription) +
		padLeft(FormatMoney(item.UnitPrice), ColUnitPrice) +
		padLeft(FormatMoney(item.Amount), ColAmount)
	b.text(alignLeft, plain, first)
	indent := strings.Repeat(" ", ColQuantity)
	for _, rest := range wrapped[1:] {
		b.text(alignLeft, plain, indent+rest)
	}
}

func shiftLabel(shift int) string {
	if shift <= 0 {
		return placeholderShift
	}
	return strconv.Itoa(shift)
}

// EncodeSale renders a sale ticket. Identical models produce identical bytes.
func EncodeSale(t SaleTicket) []byte {
	return buildSale(t).buf
}

func buildSale(t SaleTicket) *builder {
	b := newBuilder()
	if t.Flags.OpenDrawer {
		b.raw(opDrawerKick)
	}
	b.header(t.Branch, t.Timestamp)

	b.enter(sectionMeta)
	b.text(alignLeft, plain, "CAJERO: "+fallback(t.Cashier, placeholderCashier))
	b.text(alignLeft, plain, "TURNO: "+shiftLabel(t.Shift))
	b.text(alignRight, plain, "FOLIO: "+fallback(t.Folio, placeholderFolio))
	b.text(alignLeft, plain, "CLIENTE: "+fallback(t.Customer, placeholderCustomer))
	b.divider()
	b.text(alignLeft, bold, columnHeader())
	b.divider()

	b.enter(sectionItems)
	for _, item := range t.Items {
		b.itemRows(item)
	}

	b.enter(sectionTotals)
	b.divider()
	b.text(alignLeft, plain, "ARTICULOS: "+FormatQuantity(t.Pieces()))
	b.text(alignRight, bold, "TOTAL: $"+FormatMoney(t.Total))
	b.text(alignRight, bold, "PAGO CON: $"+FormatMoney(t.Tendered))
	b.text(alignRight, bold, "CAMBIO: $"+FormatMoney(t.Change))
	if t.Savings != nil && *t.Savings > 0 {
		b.text(alignRight, bold, "AHORRO: $"+FormatMoney(*t.Savings))
	}

	b.footer(t.Flags)
	return b
}

// EncodeMovement renders a cash drawer movement with an emphasized amount block.
func EncodeMovement(m MovementTicket) []byte {
	return buildMovement(m).buf
}

func buildMovement(m MovementTicket) *builder {
	b := newBuilder()
	if m.Flags.OpenDrawer {
		b.raw(opDrawerKick)
	}
	b.header(m.Branch, m.Timestamp)

	b.enter(sectionMeta)
	b.text(alignCenter, bold, "MOVIMIENTO DE CAJA")
	b.text(alignCenter, plain, "TIPO: "+fallback(string(m.Type), placeholderMovement))
	b.text(alignLeft, plain, "USUARIO: "+fallback(m.User, placeholderUser))
	b.text(alignLeft, plain, "CONCEPTO: "+fallback(m.Concept, placeholderConcept))
	b.divider()

	b.enter(sectionTotals)
	b.text(alignCenter, emphasis, "$"+FormatMoney(m.Amount))
	b.divider()
	b.text(alignLeft, plain, "")
	b.text(alignLeft, plain, signatureRow)

	b.footer(m.Flags)
	return b
}

// EncodeDrawerKick returns a buffer that only opens the cash drawer.
func EncodeDrawerKick() []byte {
	b := newBuilder()
	b.raw(opDrawerKick)
	return b.buf
}

// EncodeSelfTest renders a diagnostic page exercising alignment, styles and the
// code page, then cuts and beeps.
func EncodeSelfTest(printer string, at time.Time) []byte {
	b := newBuilder()
	b.enter(sectionHeader)
	b.text(alignCenter, bold, "PRUEBA DE IMPRESION")
	b.text(alignCenter, plain, fallback(printer, "IMPRESORA PREDETERMINADA"))
	b.text(alignCenter, plain, at.Format(dateLayout))

	b.enter(sectionMeta)
	b.divider()
	b.text(alignLeft, plain, "IZQUIERDA")
	b.text(alignCenter, plain, "CENTRO")
	b.text(alignRight, plain, "DERECHA")
	b.text(alignLeft, bold, "NEGRITA")
	b.text(alignCenter, emphasis, "DOBLE")
	b.text(alignLeft, plain, "ÁÉÍÓÚ Ñ ñ ü ¡ ¿")
	b.text(alignLeft, bold, columnHeader())
	b.divider()

	b.enter(sectionItems)
	b.itemRows(LineItem{Quantity: 1, Description: "Articulo de prueba", UnitPrice: 1, Amount: 1})

	b.footer(Flags{CutPaper: true, Beep: true})
	return b.buf
}
