package fonteco

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestRasterize(t *testing.T) {
	b := testFontBytes()
	font, err := ParseSFNT(b)
	test.Error(t, err)
	rast, err := NewRasterizer(font, b)
	test.Error(t, err)

	img, err := rast.Rasterize(0) // .notdef is skipped
	test.Error(t, err)
	test.That(t, img == nil, ".notdef must not render")

	img, err = rast.Rasterize(5) // no character mapping
	test.Error(t, err)
	test.That(t, img == nil, "unmapped glyph must not render")

	img, err = rast.Rasterize(2) // A
	test.Error(t, err)
	test.T(t, img.Bounds().Dx(), 512)
	test.T(t, img.Bounds().Dy(), 512)
	test.That(t, 0 < countInk(img), "A must leave ink on the canvas")

	img, err = rast.Rasterize(1) // space
	test.Error(t, err)
	test.That(t, img != nil, "space renders an empty canvas")
	test.T(t, countInk(img), 0)
}

func TestRasterizeComposite(t *testing.T) {
	b := testFontBytes()
	font, err := ParseSFNT(b)
	test.Error(t, err)
	rast, err := NewRasterizer(font, b)
	test.Error(t, err)

	// composite glyphs plot their on-curve points as single pixels
	img, err := rast.Rasterize(4)
	test.Error(t, err)
	black := 0
	for _, v := range img.Pix {
		if v == 0 {
			black++
		}
	}
	test.T(t, black, 3)
	test.T(t, img.Pix[50*img.Stride+50], uint8(0))
	test.T(t, img.Pix[50*img.Stride+285], uint8(0))
}

func TestRasterizeSubstitutes(t *testing.T) {
	b := testFontBytes()
	font, err := ParseSFNT(b)
	test.Error(t, err)
	rast, err := NewRasterizer(font, b)
	test.Error(t, err)

	// composites mapped to a problematic rune render the substitute character
	font.Cmap = &cmapTable{Subtables: []cmapSubtable{
		&cmapFormat6{FirstCode: 0x042F, GlyphIdArray: []uint16{4}}, // Я
	}}
	img, err := rast.Rasterize(4)
	test.Error(t, err)
	test.That(t, 100 < countInk(img), "substitute must render with ink")

	// other Cyrillic composites render their Latin visual analogue
	font.Cmap = &cmapTable{Subtables: []cmapSubtable{
		&cmapFormat6{FirstCode: 0x0410, GlyphIdArray: []uint16{4}}, // А
	}}
	img, err = rast.Rasterize(4)
	test.Error(t, err)
	test.That(t, 100 < countInk(img), "analogue must render with ink")

	// Cyrillic without an analogue falls back to outline point plotting
	font.Cmap = &cmapTable{Subtables: []cmapSubtable{
		&cmapFormat6{FirstCode: 0x0411, GlyphIdArray: []uint16{4}}, // Б
	}}
	img, err = rast.Rasterize(4)
	test.Error(t, err)
	test.T(t, countInk(img), 3)
}

func TestRasterizeReusesCanvas(t *testing.T) {
	b := testFontBytes()
	font, err := ParseSFNT(b)
	test.Error(t, err)
	rast, err := NewRasterizer(font, b)
	test.Error(t, err)

	img1, err := rast.Rasterize(2)
	test.Error(t, err)
	img2, err := rast.Rasterize(3)
	test.Error(t, err)
	test.That(t, &img1.Pix[0] == &img2.Pix[0], "canvas must be reused between glyphs")
}

func TestRasterizeNoExtent(t *testing.T) {
	font := testFont(t)
	line := &GlyphOutline{Contours: [][]OutlinePoint{{{0, 0, true}, {0, 100, true}}}}
	test.Error(t, font.SetGlyphOutline(2, line))
	b := font.Write()
	font2, err := ParseSFNT(b)
	test.Error(t, err)

	rast, err := NewRasterizer(font2, b)
	test.Error(t, err)
	_, err = rast.Rasterize(4) // composite referencing the degenerate outline
	test.That(t, err != nil, "expected error for an outline without extent")
}

func TestNewRasterizerErrors(t *testing.T) {
	font := testFont(t)
	_, err := NewRasterizer(font, []byte("not a font"))
	test.That(t, err != nil, "expected error for malformed font data")
}
