package fonteco

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// SFNT is a parsed TrueType font. Tables holds the raw binary data of each
// table, the parsed tables expose what the perforation pipeline needs. Glyph
// outlines can be replaced before the font is written back out.
type SFNT struct {
	Length uint32
	Tables map[string][]byte

	Cmap *cmapTable
	Head *headTable
	Hhea *hheaTable
	Hmtx *hmtxTable
	Maxp *maxpTable
	Name *nameTable
	Post *postTable
	Glyf *glyfTable
	Loca *locaTable

	glyphData [][]byte // pending glyph replacements, nil entries keep the original
}

// NumGlyphs returns the number of glyphs the font contains.
func (sfnt *SFNT) NumGlyphs() uint16 {
	return sfnt.Maxp.NumGlyphs
}

// GlyphIndex returns the glyph ID for the given rune, it returns zero if the
// rune is not mapped.
func (sfnt *SFNT) GlyphIndex(r rune) uint16 {
	return sfnt.Cmap.Get(r)
}

// GlyphName returns the name of the glyph, or an empty string if the font has
// no name for it.
func (sfnt *SFNT) GlyphName(glyphID uint16) string {
	return sfnt.Post.Get(glyphID)
}

// FindGlyphName returns the glyph ID with the given name, or zero if it does
// not exist.
func (sfnt *SFNT) FindGlyphName(name string) uint16 {
	return sfnt.Post.Find(name)
}

// ParseSFNT parses a TrueType font file. CFF glyph outlines and font
// collections are not supported.
func ParseSFNT(b []byte) (*SFNT, error) {
	if len(b) < 12 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	sfntVersion := r.ReadString(4)
	if sfntVersion == "OTTO" {
		return nil, fmt.Errorf("CFF glyph outlines are not supported")
	} else if sfntVersion == "ttcf" {
		return nil, fmt.Errorf("font collections are not supported")
	} else if sfntVersion != "true" && sfntVersion != "\x00\x01\x00\x00" {
		return nil, fmt.Errorf("bad SFNT version")
	}

	numTables := r.ReadUint16()
	_ = r.ReadUint16() // searchRange
	_ = r.ReadUint16() // entrySelector
	_ = r.ReadUint16() // rangeShift
	if r.Len() < 16*uint32(numTables) {
		return nil, ErrInvalidFontData
	}

	sfnt := &SFNT{
		Length: uint32(len(b)),
		Tables: make(map[string][]byte, numTables),
	}
	for i := 0; i < int(numTables); i++ {
		tag := r.ReadString(4)
		_ = r.ReadUint32() // checksum
		offset := r.ReadUint32()
		length := r.ReadUint32()
		if uint32(len(b)) < offset || uint32(len(b))-offset < length {
			return nil, ErrInvalidFontData
		}
		sfnt.Tables[tag] = b[offset : offset+length]
	}

	for _, tag := range []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"} {
		if _, ok := sfnt.Tables[tag]; !ok {
			return nil, fmt.Errorf("%s: missing table", tag)
		}
	}

	// head and maxp are needed to parse loca, loca to parse glyf
	if err := sfnt.parseHead(); err != nil {
		return nil, err
	} else if err := sfnt.parseMaxp(); err != nil {
		return nil, err
	} else if err := sfnt.parseLoca(); err != nil {
		return nil, err
	} else if err := sfnt.parseGlyf(); err != nil {
		return nil, err
	} else if err := sfnt.parseHhea(); err != nil {
		return nil, err
	} else if err := sfnt.parseHmtx(); err != nil {
		return nil, err
	} else if err := sfnt.parseCmap(); err != nil {
		return nil, err
	} else if err := sfnt.parseName(); err != nil {
		return nil, err
	} else if err := sfnt.parsePost(); err != nil {
		return nil, err
	}
	return sfnt, nil
}

type headTable struct {
	FontRevision     uint32
	UnitsPerEm       uint16
	XMin             int16
	YMin             int16
	XMax             int16
	YMax             int16
	IndexToLocFormat int16
}

func (sfnt *SFNT) parseHead() error {
	b := sfnt.Tables["head"]
	if len(b) != 54 {
		return fmt.Errorf("head: bad table")
	}

	sfnt.Head = &headTable{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint16() != 1 || r.ReadUint16() != 0 {
		return fmt.Errorf("head: bad version")
	}
	sfnt.Head.FontRevision = r.ReadUint32()
	_ = r.ReadUint32() // checksumAdjustment
	if r.ReadUint32() != 0x5F0F3CF5 {
		return fmt.Errorf("head: bad magic number")
	}
	_ = r.ReadUint16() // flags
	sfnt.Head.UnitsPerEm = r.ReadUint16()
	_ = r.ReadUint32() // created
	_ = r.ReadUint32()
	_ = r.ReadUint32() // modified
	_ = r.ReadUint32()
	sfnt.Head.XMin = r.ReadInt16()
	sfnt.Head.YMin = r.ReadInt16()
	sfnt.Head.XMax = r.ReadInt16()
	sfnt.Head.YMax = r.ReadInt16()
	_ = r.ReadUint16() // macStyle
	_ = r.ReadUint16() // lowestRecPPEM
	_ = r.ReadInt16()  // fontDirectionHint
	sfnt.Head.IndexToLocFormat = r.ReadInt16()
	if sfnt.Head.IndexToLocFormat != 0 && sfnt.Head.IndexToLocFormat != 1 {
		return fmt.Errorf("head: bad indexToLocFormat")
	}
	return nil
}

type hheaTable struct {
	Ascender         int16
	Descender        int16
	LineGap          int16
	AdvanceWidthMax  uint16
	NumberOfHMetrics uint16
}

func (sfnt *SFNT) parseHhea() error {
	b := sfnt.Tables["hhea"]
	if len(b) != 36 {
		return fmt.Errorf("hhea: bad table")
	}

	sfnt.Hhea = &hheaTable{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint16() != 1 || r.ReadUint16() != 0 {
		return fmt.Errorf("hhea: bad version")
	}
	sfnt.Hhea.Ascender = r.ReadInt16()
	sfnt.Hhea.Descender = r.ReadInt16()
	sfnt.Hhea.LineGap = r.ReadInt16()
	sfnt.Hhea.AdvanceWidthMax = r.ReadUint16()
	_ = r.ReadInt16() // minLeftSideBearing
	_ = r.ReadInt16() // minRightSideBearing
	_ = r.ReadInt16() // xMaxExtent
	_ = r.ReadInt16() // caretSlopeRise
	_ = r.ReadInt16() // caretSlopeRun
	_ = r.ReadInt16() // caretOffset
	_ = r.ReadInt16() // reserved
	_ = r.ReadInt16()
	_ = r.ReadInt16()
	_ = r.ReadInt16()
	if r.ReadInt16() != 0 {
		return fmt.Errorf("hhea: bad metricDataFormat")
	}
	sfnt.Hhea.NumberOfHMetrics = r.ReadUint16()
	if sfnt.Hhea.NumberOfHMetrics == 0 || sfnt.Maxp.NumGlyphs < sfnt.Hhea.NumberOfHMetrics {
		return fmt.Errorf("hhea: bad numberOfHMetrics")
	}
	return nil
}

type maxpTable struct {
	NumGlyphs uint16
}

func (sfnt *SFNT) parseMaxp() error {
	b := sfnt.Tables["maxp"]
	if len(b) != 32 {
		return fmt.Errorf("maxp: bad table")
	}

	sfnt.Maxp = &maxpTable{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint32() != 0x00010000 {
		return fmt.Errorf("maxp: bad version")
	}
	sfnt.Maxp.NumGlyphs = r.ReadUint16()
	return nil
}

type hmtxLongHorMetric struct {
	AdvanceWidth    uint16
	LeftSideBearing int16
}

type hmtxTable struct {
	HMetrics         []hmtxLongHorMetric
	LeftSideBearings []int16
}

// Advance returns the advance width of the glyph.
func (hmtx *hmtxTable) Advance(glyphID uint16) uint16 {
	if uint16(len(hmtx.HMetrics)) <= glyphID {
		glyphID = uint16(len(hmtx.HMetrics)) - 1
	}
	return hmtx.HMetrics[glyphID].AdvanceWidth
}

// LeftSideBearing returns the left side bearing of the glyph.
func (hmtx *hmtxTable) LeftSideBearing(glyphID uint16) int16 {
	if uint16(len(hmtx.HMetrics)) <= glyphID {
		if uint16(len(hmtx.LeftSideBearings)) <= glyphID-uint16(len(hmtx.HMetrics)) {
			return 0
		}
		return hmtx.LeftSideBearings[glyphID-uint16(len(hmtx.HMetrics))]
	}
	return hmtx.HMetrics[glyphID].LeftSideBearing
}

func (sfnt *SFNT) parseHmtx() error {
	b := sfnt.Tables["hmtx"]
	length := 4*uint32(sfnt.Hhea.NumberOfHMetrics) + 2*uint32(sfnt.Maxp.NumGlyphs-sfnt.Hhea.NumberOfHMetrics)
	if uint32(len(b)) != length {
		return fmt.Errorf("hmtx: bad table")
	}

	sfnt.Hmtx = &hmtxTable{}
	sfnt.Hmtx.HMetrics = make([]hmtxLongHorMetric, sfnt.Hhea.NumberOfHMetrics)
	sfnt.Hmtx.LeftSideBearings = make([]int16, sfnt.Maxp.NumGlyphs-sfnt.Hhea.NumberOfHMetrics)
	r := parse.NewBinaryReader(b)
	for i := range sfnt.Hmtx.HMetrics {
		sfnt.Hmtx.HMetrics[i].AdvanceWidth = r.ReadUint16()
		sfnt.Hmtx.HMetrics[i].LeftSideBearing = r.ReadInt16()
	}
	for i := range sfnt.Hmtx.LeftSideBearings {
		sfnt.Hmtx.LeftSideBearings[i] = r.ReadInt16()
	}
	return nil
}

type postTable struct {
	ItalicAngle        float64
	UnderlinePosition  int16
	UnderlineThickness int16
	IsFixedPitch       uint32

	// version 2
	GlyphNameIndex []uint16
	stringData     [][]byte
	nameMap        map[string]uint16
}

// Get returns the name of the glyph, or an empty string if the font has no
// name for it.
func (post *postTable) Get(glyphID uint16) string {
	if len(post.GlyphNameIndex) <= int(glyphID) {
		return ""
	}
	index := post.GlyphNameIndex[glyphID]
	if index < 258 {
		return macintoshGlyphNames[index]
	} else if len(post.stringData) <= int(index)-258 {
		return ""
	}
	return string(post.stringData[index-258])
}

// Find returns the glyph ID with the given name, or zero if it does not
// exist.
func (post *postTable) Find(name string) uint16 {
	if post.nameMap == nil {
		post.nameMap = make(map[string]uint16, len(post.GlyphNameIndex))
		for glyphID, index := range post.GlyphNameIndex {
			if index < 258 {
				post.nameMap[macintoshGlyphNames[index]] = uint16(glyphID)
			} else if int(index)-258 < len(post.stringData) {
				post.nameMap[string(post.stringData[index-258])] = uint16(glyphID)
			}
		}
	}
	return post.nameMap[name] // returns 0 if not found
}

func (sfnt *SFNT) parsePost() error {
	b := sfnt.Tables["post"]
	if len(b) < 32 {
		return fmt.Errorf("post: bad table")
	}

	sfnt.Post = &postTable{}
	r := parse.NewBinaryReader(b)
	version := r.ReadUint32()
	sfnt.Post.ItalicAngle = float64(r.ReadInt32()) / (1 << 16)
	sfnt.Post.UnderlinePosition = r.ReadInt16()
	sfnt.Post.UnderlineThickness = r.ReadInt16()
	sfnt.Post.IsFixedPitch = r.ReadUint32()
	_ = r.ReadUint32() // minMemType42
	_ = r.ReadUint32() // maxMemType42
	_ = r.ReadUint32() // minMemType1
	_ = r.ReadUint32() // maxMemType1
	if version == 0x00010000 && len(b) == 32 {
		sfnt.Post.GlyphNameIndex = make([]uint16, 258)
		for i := 0; i < 258; i++ {
			sfnt.Post.GlyphNameIndex[i] = uint16(i)
		}
		return nil
	} else if version == 0x00020000 && 34 <= len(b) {
		numGlyphs := r.ReadUint16()
		if numGlyphs != sfnt.Maxp.NumGlyphs {
			return fmt.Errorf("post: numGlyphs does not match maxp table numGlyphs")
		} else if uint32(len(b)) < 34+2*uint32(numGlyphs) {
			return fmt.Errorf("post: bad table")
		}

		numStrings := 0
		sfnt.Post.GlyphNameIndex = make([]uint16, numGlyphs)
		for i := 0; i < int(numGlyphs); i++ {
			sfnt.Post.GlyphNameIndex[i] = r.ReadUint16()
			if 258 <= sfnt.Post.GlyphNameIndex[i] {
				numStrings++
			}
		}

		sfnt.Post.stringData = make([][]byte, 0, numStrings)
		for 2 <= r.Len() {
			length := r.ReadUint8()
			if r.Len() < uint32(length) || 63 < length {
				return fmt.Errorf("post: bad stringData")
			}
			sfnt.Post.stringData = append(sfnt.Post.stringData, r.ReadBytes(uint32(length)))
		}
		if 1 < r.Len() || len(sfnt.Post.stringData) != numStrings {
			return fmt.Errorf("post: bad stringData")
		}
		return nil
	} else if version == 0x00025000 && len(b) == 32 {
		return fmt.Errorf("post: version 2.5 not supported")
	} else if version == 0x00030000 && len(b) == 32 {
		// no PostScript glyph names provided
		return nil
	}
	return fmt.Errorf("post: bad version")
}

var macintoshGlyphNames = [258]string{
	".notdef", ".null", "nonmarkingreturn", "space", "exclam", "quotedbl",
	"numbersign", "dollar", "percent", "ampersand", "quotesingle", "parenleft",
	"parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "colon", "semicolon", "less", "equal", "greater", "question", "at",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O",
	"P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z", "bracketleft",
	"backslash", "bracketright", "asciicircum", "underscore", "grave", "a",
	"b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p",
	"q", "r", "s", "t", "u", "v", "w", "x", "y", "z", "braceleft", "bar",
	"braceright", "asciitilde", "Adieresis", "Aring", "Ccedilla", "Eacute",
	"Ntilde", "Odieresis", "Udieresis", "aacute", "agrave", "acircumflex",
	"adieresis", "atilde", "aring", "ccedilla", "eacute", "egrave",
	"ecircumflex", "edieresis", "iacute", "igrave", "icircumflex", "idieresis",
	"ntilde", "oacute", "ograve", "ocircumflex", "odieresis", "otilde",
	"uacute", "ugrave", "ucircumflex", "udieresis", "dagger", "degree", "cent",
	"sterling", "section", "bullet", "paragraph", "germandbls", "registered",
	"copyright", "trademark", "acute", "dieresis", "notequal", "AE", "Oslash",
	"infinity", "plusminus", "lessequal", "greaterequal", "yen", "mu",
	"partialdiff", "summation", "product", "pi", "integral", "ordfeminine",
	"ordmasculine", "Omega", "ae", "oslash", "questiondown", "exclamdown",
	"logicalnot", "radical", "florin", "approxequal", "Delta", "guillemotleft",
	"guillemotright", "ellipsis", "nonbreakingspace", "Agrave", "Atilde",
	"Otilde", "OE", "oe", "endash", "emdash", "quotedblleft", "quotedblright",
	"quoteleft", "quoteright", "divide", "lozenge", "ydieresis", "Ydieresis",
	"fraction", "currency", "guilsinglleft", "guilsinglright", "fi", "fl",
	"daggerdbl", "periodcentered", "quotesinglbase", "quotedblbase",
	"perthousand", "Acircumflex", "Ecircumflex", "Aacute", "Edieresis",
	"Egrave", "Iacute", "Icircumflex", "Idieresis", "Igrave", "Oacute",
	"Ocircumflex", "apple", "Ograve", "Uacute", "Ucircumflex", "Ugrave",
	"dotlessi", "circumflex", "tilde", "macron", "breve", "dotaccent", "ring",
	"cedilla", "hungarumlaut", "ogonek", "caron", "Lslash", "lslash", "Scaron",
	"scaron", "Zcaron", "zcaron", "brokenbar", "Eth", "eth", "Yacute",
	"yacute", "Thorn", "thorn", "minus", "multiply", "onesuperior",
	"twosuperior", "threesuperior", "onehalf", "onequarter", "threequarters",
	"franc", "Gbreve", "gbreve", "Idotaccent", "Scedilla", "scedilla",
	"Cacute", "cacute", "Ccaron", "ccaron", "dcroat",
}
