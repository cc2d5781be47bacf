package fonteco

import (
	"testing"
	"unicode/utf16"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func utf16be(s string) []byte {
	var b []byte
	for _, v := range utf16.Encode([]rune(s)) {
		b = append(b, byte(v>>8), byte(v))
	}
	return b
}

// simpleGlyphRecord writes a simple glyph record with one flag byte per point
// and long coordinate deltas.
func simpleGlyphRecord(contours [][]OutlinePoint) []byte {
	xMin, yMin := contours[0][0].X, contours[0][0].Y
	xMax, yMax := xMin, yMin
	for _, contour := range contours {
		for _, p := range contour {
			if p.X < xMin {
				xMin = p.X
			} else if xMax < p.X {
				xMax = p.X
			}
			if p.Y < yMin {
				yMin = p.Y
			} else if yMax < p.Y {
				yMax = p.Y
			}
		}
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteInt16(int16(len(contours)))
	w.WriteInt16(xMin)
	w.WriteInt16(yMin)
	w.WriteInt16(xMax)
	w.WriteInt16(yMax)
	end := -1
	for _, contour := range contours {
		end += len(contour)
		w.WriteUint16(uint16(end))
	}
	w.WriteUint16(0) // instructionLength
	for _, contour := range contours {
		for _, p := range contour {
			if p.OnCurve {
				w.WriteUint8(flagOnCurve)
			} else {
				w.WriteUint8(0)
			}
		}
	}
	var x int16
	for _, contour := range contours {
		for _, p := range contour {
			w.WriteInt16(p.X - x)
			x = p.X
		}
	}
	var y int16
	for _, contour := range contours {
		for _, p := range contour {
			w.WriteInt16(p.Y - y)
			y = p.Y
		}
	}
	return w.Bytes()
}

// testFontBytes serializes a six glyph test font: .notdef, an empty space, a
// triangle A with an off-curve point, a box B, a composite A.alt referencing A
// at an offset, and an unmapped box. Space, A, B and Adieresis are mapped.
func testFontBytes() []byte {
	tables := map[string][]byte{}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1)          // majorVersion
	w.WriteUint16(0)          // minorVersion
	w.WriteUint32(0x00010000) // fontRevision
	w.WriteUint32(0)          // checksumAdjustment
	w.WriteUint32(0x5F0F3CF5) // magicNumber
	w.WriteUint16(0)          // flags
	w.WriteUint16(1000)       // unitsPerEm
	w.WriteUint32(0)          // created
	w.WriteUint32(0)
	w.WriteUint32(0) // modified
	w.WriteUint32(0)
	w.WriteInt16(0)   // xMin
	w.WriteInt16(-20) // yMin
	w.WriteInt16(600) // xMax
	w.WriteInt16(700) // yMax
	w.WriteUint16(0)  // macStyle
	w.WriteUint16(8)  // lowestRecPPEM
	w.WriteInt16(2)   // fontDirectionHint
	w.WriteInt16(0)   // indexToLocFormat
	w.WriteInt16(0)   // glyphDataFormat
	tables["head"] = w.Bytes()

	w = parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1) // majorVersion
	w.WriteUint16(0) // minorVersion
	w.WriteInt16(800)  // ascender
	w.WriteInt16(-200) // descender
	w.WriteInt16(0)    // lineGap
	w.WriteUint16(500) // advanceWidthMax
	w.WriteInt16(10)   // minLeftSideBearing
	w.WriteInt16(0)    // minRightSideBearing
	w.WriteInt16(600)  // xMaxExtent
	w.WriteInt16(1)    // caretSlopeRise
	w.WriteInt16(0)    // caretSlopeRun
	w.WriteInt16(0)    // caretOffset
	w.WriteInt16(0)    // reserved
	w.WriteInt16(0)
	w.WriteInt16(0)
	w.WriteInt16(0)
	w.WriteInt16(0)  // metricDataFormat
	w.WriteUint16(6) // numberOfHMetrics
	tables["hhea"] = w.Bytes()

	w = parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00010000)
	w.WriteUint16(6) // numGlyphs
	for i := 0; i < 13; i++ {
		w.WriteUint16(0)
	}
	tables["maxp"] = w.Bytes()

	w = parse.NewBinaryWriter([]byte{})
	for i := 0; i < 6; i++ {
		w.WriteUint16(500) // advanceWidth
		w.WriteInt16(10)   // leftSideBearing
	}
	tables["hmtx"] = w.Bytes()

	records := [][]byte{
		simpleGlyphRecord([][]OutlinePoint{{{100, 0, true}, {100, 700, true}, {600, 700, true}, {600, 0, true}}}),
		{},
		simpleGlyphRecord([][]OutlinePoint{{{50, 0, true}, {250, 700, true}, {350, 350, false}, {450, 0, true}}}),
		simpleGlyphRecord([][]OutlinePoint{{{100, 0, true}, {100, 600, true}, {400, 600, true}, {400, 0, true}}}),
		nil, // composite, written below
		simpleGlyphRecord([][]OutlinePoint{{{0, 0, true}, {0, 100, true}, {100, 100, true}, {100, 0, true}}}),
	}
	w = parse.NewBinaryWriter([]byte{})
	w.WriteInt16(-1) // numberOfContours
	w.WriteInt16(80) // bounding box of A shifted by (30,-20)
	w.WriteInt16(-20)
	w.WriteInt16(480)
	w.WriteInt16(680)
	w.WriteUint16(0x0003) // ARG_1_AND_2_ARE_WORDS | ARGS_ARE_XY_VALUES
	w.WriteUint16(2)      // glyphIndex
	w.WriteInt16(30)
	w.WriteInt16(-20)
	records[4] = w.Bytes()

	glyf := parse.NewBinaryWriter([]byte{})
	loca := parse.NewBinaryWriter([]byte{})
	for _, record := range records {
		loca.WriteUint16(uint16(glyf.Len() >> 1))
		glyf.WriteBytes(record)
	}
	loca.WriteUint16(uint16(glyf.Len() >> 1))
	tables["glyf"] = glyf.Bytes()
	tables["loca"] = loca.Bytes()

	tables["cmap"] = cmapWrite([]rune{' ', 'A', 'B', 'Ä'}, map[rune]uint16{' ': 1, 'A': 2, 'B': 3, 'Ä': 4})

	tables["name"] = nameWrite(&nameTable{NameRecord: []nameRecord{
		{PlatformMacintosh, EncodingMacintoshRoman, 0, NameFontFamily, []byte("Test")},
		{PlatformMacintosh, EncodingMacintoshRoman, 0, NameFullFontName, []byte("Test Regular")},
		{PlatformWindows, 1, 0x0409, NameFontFamily, utf16be("Test")},
		{PlatformWindows, 1, 0x0409, NameFullFontName, utf16be("Test Regular")},
	}})

	w = parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00020000) // version
	w.WriteUint32(0)          // italicAngle
	w.WriteInt16(-75)         // underlinePosition
	w.WriteInt16(50)          // underlineThickness
	w.WriteUint32(0)          // isFixedPitch
	w.WriteUint32(0)          // minMemType42
	w.WriteUint32(0)          // maxMemType42
	w.WriteUint32(0)          // minMemType1
	w.WriteUint32(0)          // maxMemType1
	w.WriteUint16(6)          // numGlyphs
	for _, index := range []uint16{0, 3, 36, 37, 258, 4} {
		w.WriteUint16(index)
	}
	w.WriteUint8(5)
	w.WriteString("A.alt")
	tables["post"] = w.Bytes()

	tags := []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"}
	w = parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00010000) // sfntVersion
	w.WriteUint16(9)          // numTables
	w.WriteUint16(128)        // searchRange
	w.WriteUint16(3)          // entrySelector
	w.WriteUint16(16)         // rangeShift
	offset := uint32(12 + 16*9)
	for _, tag := range tags {
		w.WriteString(tag)
		w.WriteUint32(0) // checksum, not validated on parse
		w.WriteUint32(offset)
		w.WriteUint32(uint32(len(tables[tag])))
		offset += (uint32(len(tables[tag])) + 3) &^ 3
	}
	for _, tag := range tags {
		w.WriteBytes(tables[tag])
		for 0 < w.Len()&3 {
			w.WriteUint8(0)
		}
	}
	return w.Bytes()
}

func testFont(t *testing.T) *SFNT {
	font, err := ParseSFNT(testFontBytes())
	test.Error(t, err)
	return font
}

func TestParseSFNT(t *testing.T) {
	font := testFont(t)
	test.T(t, font.NumGlyphs(), uint16(6))
	test.T(t, font.Head.UnitsPerEm, uint16(1000))
	test.T(t, font.Head.IndexToLocFormat, int16(0))
	test.T(t, font.Head.XMin, int16(0))
	test.T(t, font.Head.YMin, int16(-20))
	test.T(t, font.Head.XMax, int16(600))
	test.T(t, font.Head.YMax, int16(700))
	test.T(t, font.Hhea.Ascender, int16(800))
	test.T(t, font.Hhea.Descender, int16(-200))
	test.T(t, font.Hhea.NumberOfHMetrics, uint16(6))
	test.T(t, font.Hmtx.Advance(2), uint16(500))
	test.T(t, font.Hmtx.LeftSideBearing(2), int16(10))

	test.T(t, font.GlyphIndex(' '), uint16(1))
	test.T(t, font.GlyphIndex('A'), uint16(2))
	test.T(t, font.GlyphIndex('B'), uint16(3))
	test.T(t, font.GlyphIndex('Ä'), uint16(4))
	test.T(t, font.GlyphIndex('Z'), uint16(0))
	r, ok := font.Cmap.ToUnicode(2)
	test.That(t, ok, "glyph 2 must map back to a rune")
	test.T(t, r, 'A')

	test.T(t, font.GlyphName(0), ".notdef")
	test.T(t, font.GlyphName(2), "A")
	test.T(t, font.GlyphName(4), "A.alt")
	test.T(t, font.FindGlyphName("space"), uint16(1))
	test.T(t, font.FindGlyphName("B"), uint16(3))

	test.T(t, font.FontName(NameFontFamily), "Test")
	test.T(t, font.FontName(NameFullFontName), "Test Regular")
}

func TestParseSFNTErrors(t *testing.T) {
	_, err := ParseSFNT([]byte{0x00, 0x01, 0x00})
	test.T(t, err, ErrInvalidFontData)

	_, err = ParseSFNT([]byte("OTTO\x00\x00\x00\x00\x00\x00\x00\x00"))
	test.T(t, err.Error(), "CFF glyph outlines are not supported")

	_, err = ParseSFNT([]byte("ttcf\x00\x00\x00\x00\x00\x00\x00\x00"))
	test.T(t, err.Error(), "font collections are not supported")

	_, err = ParseSFNT([]byte("abcd\x00\x00\x00\x00\x00\x00\x00\x00"))
	test.T(t, err.Error(), "bad SFNT version")

	font := testFont(t)
	delete(font.Tables, "post")
	_, err = ParseSFNT(font.Write())
	test.T(t, err.Error(), "post: missing table")
}

func parseCmapTable(t *testing.T, b []byte, numGlyphs uint16) *cmapTable {
	font := &SFNT{Tables: map[string][]byte{"cmap": b}, Maxp: &maxpTable{NumGlyphs: numGlyphs}}
	test.Error(t, font.parseCmap())
	return font.Cmap
}

func TestParseCmapFormats(t *testing.T) {
	// format 0
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0)  // version
	w.WriteUint16(1)  // numTables
	w.WriteUint16(1)  // platformID
	w.WriteUint16(0)  // encodingID
	w.WriteUint32(12) // subtableOffset
	w.WriteUint16(0)  // format
	w.WriteUint16(262)
	w.WriteUint16(0) // language
	glyphIDs := make([]byte, 256)
	glyphIDs['A'] = 2
	w.WriteBytes(glyphIDs)
	cmap := parseCmapTable(t, w.Bytes(), 6)
	test.T(t, cmap.Get('A'), uint16(2))
	test.T(t, cmap.Get('B'), uint16(0))
	r, ok := cmap.ToUnicode(2)
	test.That(t, ok, "glyph 2 must map back to a rune")
	test.T(t, r, 'A')

	// format 6
	w = parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0)  // version
	w.WriteUint16(1)  // numTables
	w.WriteUint16(1)  // platformID
	w.WriteUint16(0)  // encodingID
	w.WriteUint32(12) // subtableOffset
	w.WriteUint16(6)  // format
	w.WriteUint16(16)
	w.WriteUint16(0)  // language
	w.WriteUint16(65) // firstCode
	w.WriteUint16(3)  // entryCount
	w.WriteUint16(2)
	w.WriteUint16(3)
	w.WriteUint16(4)
	cmap = parseCmapTable(t, w.Bytes(), 6)
	test.T(t, cmap.Get('A'), uint16(2))
	test.T(t, cmap.Get('C'), uint16(4))
	test.T(t, cmap.Get('D'), uint16(0))
	r, ok = cmap.ToUnicode(3)
	test.That(t, ok, "glyph 3 must map back to a rune")
	test.T(t, r, 'B')
}

func TestCmapWrite(t *testing.T) {
	// scattered glyph IDs for m-o force a glyphIdArray segment
	runeMap := map[rune]uint16{'a': 1, 'b': 2, 'm': 4, 'n': 2, 'o': 5}
	b := cmapWrite([]rune{'a', 'b', 'm', 'n', 'o'}, runeMap)
	cmap := parseCmapTable(t, b, 6)
	for r, glyphID := range runeMap {
		test.T(t, cmap.Get(r), glyphID)
	}
	test.T(t, cmap.Get('c'), uint16(0))
	test.T(t, cmap.Get(0xFFFE), uint16(0))
}

func TestCmapWriteFormat12(t *testing.T) {
	runeMap := map[rune]uint16{'A': 3, 0x1F600: 1, 0x1F601: 2}
	b := cmapWrite([]rune{'A', 0x1F600, 0x1F601}, runeMap)
	cmap := parseCmapTable(t, b, 6)
	test.T(t, cmap.Get('A'), uint16(3))
	test.T(t, cmap.Get(0x1F600), uint16(1))
	test.T(t, cmap.Get(0x1F601), uint16(2))
	test.T(t, cmap.Get('B'), uint16(0))
	r, ok := cmap.ToUnicode(2)
	test.That(t, ok, "glyph 2 must map back to a rune")
	test.T(t, r, rune(0x1F601))
}

func TestParsePostVersions(t *testing.T) {
	header := func(version uint32) *parse.BinaryWriter {
		w := parse.NewBinaryWriter([]byte{})
		w.WriteUint32(version)
		for i := 0; i < 7; i++ {
			w.WriteUint32(0)
		}
		return w
	}

	font := &SFNT{Tables: map[string][]byte{"post": header(0x00010000).Bytes()}, Maxp: &maxpTable{NumGlyphs: 6}}
	test.Error(t, font.parsePost())
	test.T(t, font.Post.Get(36), "A") // standard Macintosh order

	font = &SFNT{Tables: map[string][]byte{"post": header(0x00030000).Bytes()}, Maxp: &maxpTable{NumGlyphs: 6}}
	test.Error(t, font.parsePost())
	test.T(t, font.Post.Get(2), "")

	font = &SFNT{Tables: map[string][]byte{"post": header(0x00025000).Bytes()}, Maxp: &maxpTable{NumGlyphs: 6}}
	test.That(t, font.parsePost() != nil, "expected error for version 2.5")
}

func TestGlyf(t *testing.T) {
	font := testFont(t)
	test.T(t, len(font.Glyf.Get(1)), 0) // space has no outline
	test.That(t, font.Glyf.Get(9) == nil, "glyph 9 must not exist")
	test.T(t, font.Glyf.IsComposite(2), false)
	test.T(t, font.Glyf.IsComposite(4), true)

	xMin, yMin, xMax, yMax, err := font.Glyf.Bounds(2)
	test.Error(t, err)
	test.T(t, xMin, int16(50))
	test.T(t, yMin, int16(0))
	test.T(t, xMax, int16(450))
	test.T(t, yMax, int16(700))

	deps, err := font.Glyf.Dependencies(4)
	test.Error(t, err)
	test.T(t, deps, []uint16{4, 2})
	deps, err = font.Glyf.Dependencies(3)
	test.Error(t, err)
	test.T(t, deps, []uint16{3})
	_, err = font.Glyf.Dependencies(9)
	test.That(t, err != nil, "expected error for bad glyphID")
}

func TestGlyfDecompose(t *testing.T) {
	font := testFont(t)
	outline, err := font.Glyf.Decompose(2)
	test.Error(t, err)
	test.T(t, len(outline.Contours), 1)
	test.T(t, outline.Contours[0], []OutlinePoint{{50, 0, true}, {250, 700, true}, {350, 350, false}, {450, 0, true}})
	test.T(t, outline.NumPoints(), 4)

	outline, err = font.Glyf.Decompose(1)
	test.Error(t, err)
	test.T(t, len(outline.Contours), 0)

	// the composite shifts A by (30,-20)
	outline, err = font.Glyf.Decompose(4)
	test.Error(t, err)
	test.T(t, len(outline.Contours), 1)
	test.T(t, outline.Contours[0], []OutlinePoint{{80, -20, true}, {280, 680, true}, {380, 330, false}, {480, -20, true}})

	_, err = font.Glyf.Decompose(9)
	test.That(t, err != nil, "expected error for bad glyphID")
}

func TestSetGlyphOutline(t *testing.T) {
	font := testFont(t)
	box := &GlyphOutline{Contours: [][]OutlinePoint{
		{{0, 0, true}, {0, 750, true}, {500, 750, true}, {500, 0, true}},
	}}
	test.Error(t, font.SetGlyphOutline(3, box))

	font2, err := ParseSFNT(font.Write())
	test.Error(t, err)
	outline, err := font2.Glyf.Decompose(3)
	test.Error(t, err)
	test.T(t, outline.Contours[0], []OutlinePoint{{0, 0, true}, {0, 750, true}, {500, 750, true}, {500, 0, true}})

	// untouched glyphs survive the rebuild
	outline, err = font2.Glyf.Decompose(2)
	test.Error(t, err)
	test.T(t, outline.Contours[0], []OutlinePoint{{50, 0, true}, {250, 700, true}, {350, 350, false}, {450, 0, true}})
	outline, err = font2.Glyf.Decompose(4)
	test.Error(t, err)
	test.T(t, outline.Contours[0][0], OutlinePoint{80, -20, true})

	// the font bounding box follows the new outline
	test.T(t, font2.Head.YMax, int16(750))
	test.T(t, font2.Head.YMin, int16(-20))

	// empty outlines blank the glyph
	test.Error(t, font.SetGlyphOutline(5, &GlyphOutline{}))
	font3, err := ParseSFNT(font.Write())
	test.Error(t, err)
	test.T(t, len(font3.Glyf.Get(5)), 0)
	outline, err = font3.Glyf.Decompose(5)
	test.Error(t, err)
	test.T(t, len(outline.Contours), 0)

	err = font.SetGlyphOutline(9, box)
	test.That(t, err != nil, "expected error for bad glyphID")
}

func TestWriteChecksum(t *testing.T) {
	font := testFont(t)
	b := font.Write()
	test.T(t, calcChecksum(b), uint32(0xB1B0AFBA))
	font2, err := ParseSFNT(b)
	test.Error(t, err)
	test.T(t, font2.NumGlyphs(), uint16(6))
}

func TestAppendNameSuffix(t *testing.T) {
	font := testFont(t)
	font.AppendNameSuffix(" Eco")
	test.T(t, font.FontName(NameFontFamily), "Test Eco")
	test.T(t, font.FontName(NameFullFontName), "Test Regular Eco")
	for _, record := range font.Name.Get(NameFontFamily) {
		if record.Platform == PlatformWindows {
			test.Bytes(t, record.Value, utf16be("Test Eco"))
		}
	}

	font2, err := ParseSFNT(font.Write())
	test.Error(t, err)
	test.T(t, font2.FontName(NameFontFamily), "Test Eco")
	test.T(t, font2.FontName(NameFullFontName), "Test Regular Eco")
}
