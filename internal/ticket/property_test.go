package ticket

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"pgregory.net/rapid"
)

var genWord = rapid.StringMatching(`[a-zA-Z0-9áéíóúñÑ]{1,19}`)

func genDescription(t *rapid.T) string {
	words := rapid.SliceOfN(genWord, 0, 8).Draw(t, "words")
	sep := rapid.SampledFrom([]string{" ", "  ", "\t", " \n "}).Draw(t, "sep")
	return strings.Join(words, sep)
}

func genItem(t *rapid.T) LineItem {
	qty := rapid.IntRange(1, 999).Draw(t, "qty")
	cents := rapid.IntRange(0, 999_999).Draw(t, "cents")
	price := float64(cents) / 100
	return LineItem{
		Quantity:    float64(qty),
		Description: genDescription(t),
		UnitPrice:   price,
		Amount:      float64(qty*cents) / 100,
	}
}

func genSale(t *rapid.T) SaleTicket {
	items := rapid.SliceOfN(rapid.Custom(genItem), 1, 6).Draw(t, "items")
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return SaleTicket{
		Branch:    Branch{Name: rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "branch")},
		Cashier:   rapid.StringMatching(`[A-Za-zñ ]{0,16}`).Draw(t, "cashier"),
		Shift:     rapid.IntRange(0, 9).Draw(t, "shift"),
		Folio:     rapid.StringMatching(`F-[0-9]{0,6}`).Draw(t, "folio"),
		Timestamp: time.Unix(int64(rapid.IntRange(0, 2_000_000_000).Draw(t, "unix")), 0).UTC(),
		Items:     items,
		Total:     total,
		Tendered:  total,
		Flags: Flags{
			CutPaper:   rapid.Bool().Draw(t, "cut"),
			OpenDrawer: rapid.Bool().Draw(t, "drawer"),
			Beep:       rapid.Bool().Draw(t, "beep"),
		},
	}
}

func TestWrapWordsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := genDescription(t)
		width := rapid.IntRange(1, 40).Draw(t, "width")

		lines := WrapWords(text, width)
		if len(lines) == 0 {
			t.Fatalf("no lines for %q", text)
		}

		want := strings.Fields(text)
		got := strings.Fields(strings.Join(lines, " "))
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Fatalf("words changed: %q -> %q", want, got)
		}
		if len(want) == 0 {
			if len(lines) != 1 || lines[0] != "" {
				t.Fatalf("blank input wrapped to %q", lines)
			}
			return
		}

		for i, line := range lines {
			n := utf8.RuneCountInString(line)
			if n > width && len(strings.Fields(line)) != 1 {
				t.Fatalf("line %d %q exceeds width %d", i, line, width)
			}
			if i+1 < len(lines) {
				next := strings.Fields(lines[i+1])[0]
				if n+1+utf8.RuneCountInString(next) <= width {
					t.Fatalf("line %d %q could have taken %q", i, line, next)
				}
			}
		}
	})
}

func TestEncodeSaleProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sale := genSale(t)

		first := EncodeSale(sale)
		if !bytes.Equal(first, EncodeSale(sale)) {
			t.Fatalf("encoding is not deterministic")
		}

		prefix := append(append([]byte{}, opInit...), opCodePage850...)
		if !bytes.HasPrefix(first, prefix) {
			t.Fatalf("missing init sequence")
		}
		kicked := bytes.HasPrefix(first[len(prefix):], opDrawerKick)
		if kicked != sale.Flags.OpenDrawer {
			t.Fatalf("drawer kick present=%v with OpenDrawer=%v", kicked, sale.Flags.OpenDrawer)
		}
		if got := bytes.Contains(first, opFeedAndCut); got != sale.Flags.CutPaper {
			t.Fatalf("cut present=%v with CutPaper=%v", got, sale.Flags.CutPaper)
		}

		b := buildSale(sale)
		rows := sectionLines(b, sectionItems)
		if len(rows) < len(sale.Items) {
			t.Fatalf("%d rows for %d items", len(rows), len(sale.Items))
		}
		for _, row := range rows {
			if n := utf8.RuneCountInString(row); n > LineWidth {
				t.Fatalf("row %q is %d runes wide", row, n)
			}
		}
	})
}
