package fonteco

import (
	"fmt"
	"sort"

	"github.com/tdewolff/parse/v2"
)

var (
	KeepAllTables = []string{"all"}
	KeepMinTables = []string{"min"}
)

// SubsetOptions control which tables survive subsetting.
type SubsetOptions struct {
	Tables []string
}

// AlphanumericRunes returns ASCII letters, digits and the space character.
func AlphanumericRunes() []rune {
	rs := []rune{' '}
	for r := 'a'; r <= 'z'; r++ {
		rs = append(rs, r)
	}
	for r := 'A'; r <= 'Z'; r++ {
		rs = append(rs, r)
	}
	for r := '0'; r <= '9'; r++ {
		rs = append(rs, r)
	}
	return rs
}

// LatinCyrillicRunes returns the printable Basic Latin range plus the core
// Cyrillic alphabet.
func LatinCyrillicRunes() []rune {
	var rs []rune
	for r := rune(0x20); r <= 0x7E; r++ {
		rs = append(rs, r)
	}
	rs = append(rs, 'Ё', 'ё')
	for r := rune(0x0410); r <= 0x044F; r++ {
		rs = append(rs, r)
	}
	return rs
}

// SubsetRunes returns the glyph IDs that cover the given characters, always
// including .notdef and the space glyph. Characters the font does not map
// are silently skipped.
func (sfnt *SFNT) SubsetRunes(rs []rune) []uint16 {
	glyphIDs := []uint16{0}
	seen := map[uint16]bool{0: true}
	add := func(glyphID uint16) {
		if glyphID != 0 && !seen[glyphID] {
			glyphIDs = append(glyphIDs, glyphID)
			seen[glyphID] = true
		}
	}
	add(sfnt.GlyphIndex(' '))
	for _, r := range rs {
		add(sfnt.GlyphIndex(r))
	}
	return glyphIDs
}

// Subset returns a new font containing only the passed glyphIDs, which gives
// a significant size reduction. The glyphIDs appear in the given order and
// composite dependencies are appended at the end.
func (sfnt *SFNT) Subset(glyphIDs []uint16, options SubsetOptions) (*SFNT, error) {
	// glyph mapping from original to subset
	glyphMap := make(map[uint16]uint16, len(glyphIDs))
	for subsetGlyphID, glyphID := range glyphIDs {
		if sfnt.Maxp.NumGlyphs <= glyphID {
			return nil, fmt.Errorf("subset: bad glyphID %v", glyphID)
		}
		glyphMap[glyphID] = uint16(subsetGlyphID)
	}

	// composite glyphs pull in their dependencies at the end
	origLen := len(glyphIDs)
	for i := 0; i < origLen; i++ {
		if glyphIDs[i] == 0 {
			continue
		}
		deps, err := sfnt.Glyf.Dependencies(glyphIDs[i])
		if err != nil {
			return nil, err
		}
		for _, glyphID := range deps[1:] {
			if _, ok := glyphMap[glyphID]; !ok {
				subsetGlyphID := uint16(len(glyphIDs))
				glyphIDs = append(glyphIDs, glyphID)
				glyphMap[glyphID] = subsetGlyphID
			}
		}
	}

	var tags []string
	if len(options.Tables) == 1 && options.Tables[0] == "min" {
		tags = []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"}
	} else if len(options.Tables) == 1 && options.Tables[0] == "all" {
		for tag := range sfnt.Tables {
			tags = append(tags, tag)
		}
	} else {
		tags = options.Tables
	}
	sort.Strings(tags) // so that glyf is before loca

	// preliminary calculations
	indexToLocFormat := int16(1)                   // for head and loca
	glyfOffsets := make([]uint32, len(glyphIDs)+1) // for loca
	numberOfHMetrics := uint16(len(glyphIDs))      // for hhea and hmtx
	if 1 < numberOfHMetrics {
		advance := sfnt.Hmtx.Advance(glyphIDs[numberOfHMetrics-1])
		for 1 < numberOfHMetrics {
			if sfnt.Hmtx.Advance(glyphIDs[numberOfHMetrics-2]) != advance {
				break
			}
			numberOfHMetrics--
		}
	}

	sfntOld := sfnt
	sfnt = &SFNT{
		Tables: map[string][]byte{},
		Loca:   &locaTable{}, // for glyf
	}
	maxp := *sfntOld.Maxp
	maxp.NumGlyphs = uint16(len(glyphIDs))
	sfnt.Maxp = &maxp

	for _, tag := range tags {
		table := sfntOld.Tables[tag]
		switch tag {
		case "cmap":
			rs := make([]rune, 0, len(glyphIDs))
			runeMap := make(map[rune]uint16, len(glyphIDs))
			for subsetGlyphID, glyphID := range glyphIDs {
				if r, ok := sfntOld.Cmap.ToUnicode(glyphID); ok {
					if _, ok := runeMap[r]; !ok {
						rs = append(rs, r)
						runeMap[r] = uint16(subsetGlyphID)
					}
				}
			}
			sfnt.Tables[tag] = cmapWrite(rs, runeMap)
			if err := sfnt.parseCmap(); err != nil {
				return nil, fmt.Errorf("subset: %v", err)
			}
		case "glyf":
			w := parse.NewBinaryWriter([]byte{})
			for i, glyphID := range glyphIDs {
				if glyphID == 0 {
					// empty .notdef
					glyfOffsets[i+1] = w.Len()
					continue
				}

				b := sfntOld.Glyf.Get(glyphID)
				if b == nil {
					return nil, fmt.Errorf("glyf: bad glyphID %v", glyphID)
				}
				if 0 < len(b) && b[0]&0x80 != 0 {
					// composite, remap its component glyph IDs on a copy
					c := make([]byte, len(b))
					copy(c, b)
					if err := updateCompositeGlyphIDs(c, glyphMap); err != nil {
						return nil, err
					}
					b = c
				}
				w.WriteBytes(b)
				if len(b)%2 == 1 {
					// glyph offsets must be even for the loca short format
					w.WriteUint8(0)
				}
				glyfOffsets[i+1] = w.Len()
			}
			if w.Len() <= 0xFFFF*2 {
				indexToLocFormat = 0 // short format
			}
			sfnt.Tables[tag] = w.Bytes()

			sfnt.Glyf = &glyfTable{
				data: w.Bytes(),
				loca: sfnt.Loca,
			}
		case "head":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:50])
			w.WriteInt16(indexToLocFormat) // indexToLocFormat
			w.WriteBytes(table[52:])
			sfnt.Tables[tag] = w.Bytes()

			head := *sfntOld.Head
			head.IndexToLocFormat = indexToLocFormat
			sfnt.Head = &head
		case "hhea":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:34])
			w.WriteUint16(numberOfHMetrics) // numberOfHMetrics
			sfnt.Tables[tag] = w.Bytes()

			hhea := *sfntOld.Hhea
			hhea.NumberOfHMetrics = numberOfHMetrics
			sfnt.Hhea = &hhea
		case "hmtx":
			sfnt.Hmtx = &hmtxTable{
				HMetrics:         make([]hmtxLongHorMetric, numberOfHMetrics),
				LeftSideBearings: make([]int16, len(glyphIDs)-int(numberOfHMetrics)),
			}
			n := 4*int(numberOfHMetrics) + 2*(len(glyphIDs)-int(numberOfHMetrics))
			w := parse.NewBinaryWriter(make([]byte, 0, n))
			for subsetGlyphID, glyphID := range glyphIDs {
				lsb := sfntOld.Hmtx.LeftSideBearing(glyphID)
				if subsetGlyphID < int(numberOfHMetrics) {
					adv := sfntOld.Hmtx.Advance(glyphID)
					sfnt.Hmtx.HMetrics[subsetGlyphID].AdvanceWidth = adv
					sfnt.Hmtx.HMetrics[subsetGlyphID].LeftSideBearing = lsb
					w.WriteUint16(adv)
				} else {
					sfnt.Hmtx.LeftSideBearings[subsetGlyphID-int(numberOfHMetrics)] = lsb
				}
				w.WriteInt16(lsb)
			}
			sfnt.Tables[tag] = w.Bytes()
		case "loca":
			var w *parse.BinaryWriter
			if indexToLocFormat == 0 {
				// short format
				w = parse.NewBinaryWriter(make([]byte, 0, 2*len(glyfOffsets)))
				for _, offset := range glyfOffsets {
					w.WriteUint16(uint16(offset / 2))
				}
			} else {
				// long format
				w = parse.NewBinaryWriter(make([]byte, 0, 4*len(glyfOffsets)))
				for _, offset := range glyfOffsets {
					w.WriteUint32(offset)
				}
			}
			sfnt.Tables[tag] = w.Bytes()

			sfnt.Loca.Format = indexToLocFormat
			sfnt.Loca.data = w.Bytes()
		case "maxp":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:4])
			w.WriteUint16(uint16(len(glyphIDs))) // numGlyphs
			w.WriteBytes(table[6:])
			sfnt.Tables[tag] = w.Bytes()
		case "name":
			w := parse.NewBinaryWriter(make([]byte, 0, 6))
			w.WriteUint16(0) // version
			w.WriteUint16(0) // count
			w.WriteUint16(6) // storageOffset
			sfnt.Tables[tag] = w.Bytes()

			sfnt.Name = &nameTable{}
		case "post":
			w := parse.NewBinaryWriter(make([]byte, 0, 32))
			w.WriteUint32(0x00030000) // version, no glyph names
			w.WriteBytes(table[4:32])
			sfnt.Tables[tag] = w.Bytes()

			sfnt.Post = &postTable{
				ItalicAngle:        sfntOld.Post.ItalicAngle,
				UnderlinePosition:  sfntOld.Post.UnderlinePosition,
				UnderlineThickness: sfntOld.Post.UnderlineThickness,
				IsFixedPitch:       sfntOld.Post.IsFixedPitch,
			}
		default:
			sfnt.Tables[tag] = table
		}
	}
	sfnt.Length = uint32(12 + 16*len(sfnt.Tables))
	for _, table := range sfnt.Tables {
		sfnt.Length += (uint32(len(table)) + 3) &^ 3
	}
	return sfnt, nil
}
