package ticket

// ESC/POS opcodes understood by Epson-compatible thermal printers.
var (
	opInit         = []byte{0x1B, 0x40}
	opCodePage850  = []byte{0x1B, 0x74, 0x02}
	opAlignLeft    = []byte{0x1B, 0x61, 0x00}
	opAlignCenter  = []byte{0x1B, 0x61, 0x01}
	opAlignRight   = []byte{0x1B, 0x61, 0x02}
	opBoldOn       = []byte{0x1B, 0x45, 0x01}
	opBoldOff      = []byte{0x1B, 0x45, 0x00}
	opSizeNormal   = []byte{0x1D, 0x21, 0x00}
	opSizeDouble   = []byte{0x1D, 0x21, 0x11}
	opDrawerKick   = []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}
	opFeedAndCut   = []byte{0x1D, 0x56, 0x42, 0x00}
	opBeep         = []byte{0x1B, 0x42, 0x03, 0x02}
	opLineFeed     = []byte{0x0A}
	opFeedTrailing = []byte{0x1B, 0x64, 0x04}
)

// Column widths of the item table. They are fixed by the paper roll, not by content.
const (
	ColQuantity    = 4
	ColDescription = 19
	ColUnitPrice   = 10
	ColAmount      = 11

	// LineWidth is the printable width used by dividers and the item table.
	LineWidth = ColQuantity + ColDescription + ColUnitPrice + ColAmount
)

type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

func (a alignment) opcode() []byte {
	switch a {
	case alignCenter:
		return opAlignCenter
	case alignRight:
		return opAlignRight
	default:
		return opAlignLeft
	}
}
