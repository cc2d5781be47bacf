package fonteco

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestSubsetRunes(t *testing.T) {
	font := testFont(t)
	test.T(t, font.SubsetRunes([]rune{'A', 'B', 'A', 'Z'}), []uint16{0, 1, 2, 3})
	test.T(t, font.SubsetRunes(nil), []uint16{0, 1})
}

func TestSubset(t *testing.T) {
	font := testFont(t)
	subset, err := font.Subset([]uint16{0, 1, 4}, SubsetOptions{Tables: KeepMinTables})
	test.Error(t, err)
	test.T(t, subset.NumGlyphs(), uint16(4)) // A pulled in by the composite

	b := subset.Write()
	test.T(t, subset.Length, uint32(len(b)))
	font2, err := ParseSFNT(b)
	test.Error(t, err)
	test.T(t, font2.NumGlyphs(), uint16(4))
	test.T(t, font2.GlyphIndex(' '), uint16(1))
	test.T(t, font2.GlyphIndex('Ä'), uint16(2))
	test.T(t, font2.GlyphIndex('A'), uint16(3))
	test.T(t, font2.GlyphIndex('B'), uint16(0))

	// the composite reaches its remapped component
	outline, err := font2.Glyf.Decompose(2)
	test.Error(t, err)
	test.T(t, outline.Contours[0][0], OutlinePoint{80, -20, true})
	outline, err = font2.Glyf.Decompose(3)
	test.Error(t, err)
	test.T(t, outline.Contours[0], []OutlinePoint{{50, 0, true}, {250, 700, true}, {350, 350, false}, {450, 0, true}})

	// equal advances collapse the metrics
	test.T(t, font2.Hhea.NumberOfHMetrics, uint16(1))
	test.T(t, font2.Hmtx.Advance(3), uint16(500))
	test.T(t, font2.Hmtx.LeftSideBearing(2), int16(10))

	// name records and glyph names are stripped
	test.T(t, font2.FontName(NameFontFamily), "")
	test.T(t, font2.GlyphName(2), "")
}

func TestSubsetErrors(t *testing.T) {
	font := testFont(t)
	_, err := font.Subset([]uint16{0, 9}, SubsetOptions{Tables: KeepMinTables})
	test.T(t, err.Error(), "subset: bad glyphID 9")
}

func TestSubsetKeepAll(t *testing.T) {
	font := testFont(t)
	font.Tables["kern"] = []byte{0x00, 0x00, 0x00, 0x00}

	subset, err := font.Subset([]uint16{0, 1, 2}, SubsetOptions{Tables: KeepAllTables})
	test.Error(t, err)
	_, ok := subset.Tables["kern"]
	test.That(t, ok, "kern must survive when all tables are kept")

	subset, err = font.Subset([]uint16{0, 1, 2}, SubsetOptions{Tables: KeepMinTables})
	test.Error(t, err)
	_, ok = subset.Tables["kern"]
	test.That(t, !ok, "kern must be dropped with the minimal table set")
}

func TestSubsetPresets(t *testing.T) {
	rs := AlphanumericRunes()
	test.T(t, len(rs), 63)
	test.T(t, rs[0], ' ')

	rs = LatinCyrillicRunes()
	test.T(t, len(rs), 161)
	test.T(t, rs[95], 'Ё')
	test.T(t, rs[97], rune(0x0410))
}
