package fonteco

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/tdewolff/parse/v2"
)

// MaxCmapSegments is the maximum number of cmap segments that will be
// accepted.
const MaxCmapSegments = 20000

type cmapSubtable interface {
	Get(rune) (uint16, bool)
	ToUnicode(uint16) (rune, bool)
}

type cmapEncodingRecord struct {
	PlatformID uint16
	EncodingID uint16
	Format     uint16
	Subtable   uint16
}

type cmapTable struct {
	EncodingRecords []cmapEncodingRecord
	Subtables       []cmapSubtable
}

// Get returns the glyph ID for the given rune. Subtables are consulted in the
// order in which they appear, zero is returned when no subtable maps the
// rune.
func (cmap *cmapTable) Get(r rune) uint16 {
	for _, subtable := range cmap.Subtables {
		if glyphID, ok := subtable.Get(r); ok && glyphID != 0 {
			return glyphID
		}
	}
	return 0
}

// ToUnicode returns the rune that maps to the given glyph ID. Subtables are
// consulted in the order in which they appear.
func (cmap *cmapTable) ToUnicode(glyphID uint16) (rune, bool) {
	for _, subtable := range cmap.Subtables {
		if r, ok := subtable.ToUnicode(glyphID); ok {
			return r, true
		}
	}
	return 0, false
}

type cmapFormat0 struct {
	GlyphIdArray [256]uint8

	unicodeMap map[uint16]rune
	once       sync.Once
}

func (subtable *cmapFormat0) Get(r rune) (uint16, bool) {
	if r < 0 || 256 <= r {
		return 0, false
	}
	return uint16(subtable.GlyphIdArray[r]), true
}

func (subtable *cmapFormat0) ToUnicode(glyphID uint16) (rune, bool) {
	if glyphID == 0 || 256 <= glyphID {
		return 0, false
	}
	subtable.once.Do(func() {
		subtable.unicodeMap = make(map[uint16]rune, 256)
		for r := 255; 0 <= r; r-- {
			subtable.unicodeMap[uint16(subtable.GlyphIdArray[r])] = rune(r)
		}
	})
	r, ok := subtable.unicodeMap[glyphID]
	return r, ok
}

type cmapFormat4 struct {
	StartCode     []uint16
	EndCode       []uint16
	IdDelta       []int16
	IdRangeOffset []uint16
	GlyphIdArray  []uint16

	unicodeMap map[uint16]rune
	once       sync.Once
}

func (subtable *cmapFormat4) glyphID(i int, r uint16) uint16 {
	if subtable.IdRangeOffset[i] == 0 {
		// modulo 65536 with the idDelta cast and addition overflow
		return uint16(subtable.IdDelta[i]) + r
	}
	// idRangeOffset is in bytes from its own position in the segment array
	index := int(subtable.IdRangeOffset[i]/2) + int(r-subtable.StartCode[i]) - (len(subtable.StartCode) - i)
	return subtable.GlyphIdArray[index] // index is always valid
}

func (subtable *cmapFormat4) Get(r rune) (uint16, bool) {
	if r < 0 || 65536 <= r {
		return 0, false
	}
	for i := range subtable.StartCode {
		if subtable.StartCode[i] <= uint16(r) && uint16(r) <= subtable.EndCode[i] {
			return subtable.glyphID(i, uint16(r)), true
		}
	}
	return 0, false
}

func (subtable *cmapFormat4) ToUnicode(glyphID uint16) (rune, bool) {
	if glyphID == 0 {
		return 0, false
	}
	subtable.once.Do(func() {
		subtable.unicodeMap = map[uint16]rune{}
		for i := range subtable.StartCode {
			for r := rune(subtable.StartCode[i]); r <= rune(subtable.EndCode[i]); r++ {
				id := subtable.glyphID(i, uint16(r))
				if _, ok := subtable.unicodeMap[id]; !ok {
					subtable.unicodeMap[id] = r
				}
			}
		}
	})
	r, ok := subtable.unicodeMap[glyphID]
	return r, ok
}

type cmapFormat6 struct {
	FirstCode    uint16
	GlyphIdArray []uint16
}

func (subtable *cmapFormat6) Get(r rune) (uint16, bool) {
	if r < int32(subtable.FirstCode) || uint32(len(subtable.GlyphIdArray)) <= uint32(r)-uint32(subtable.FirstCode) {
		return 0, false
	}
	return subtable.GlyphIdArray[uint32(r)-uint32(subtable.FirstCode)], true
}

func (subtable *cmapFormat6) ToUnicode(glyphID uint16) (rune, bool) {
	if glyphID == 0 {
		return 0, false
	}
	for i, id := range subtable.GlyphIdArray {
		if id == glyphID {
			return rune(subtable.FirstCode) + rune(i), true
		}
	}
	return 0, false
}

type cmapFormat12 struct {
	StartCharCode []uint32
	EndCharCode   []uint32
	StartGlyphID  []uint32

	unicodeMap map[uint16]rune
	once       sync.Once
}

func (subtable *cmapFormat12) Get(r rune) (uint16, bool) {
	if r < 0 {
		return 0, false
	}
	for i := range subtable.StartCharCode {
		if subtable.StartCharCode[i] <= uint32(r) && uint32(r) <= subtable.EndCharCode[i] {
			return uint16(uint32(r) - subtable.StartCharCode[i] + subtable.StartGlyphID[i]), true
		}
	}
	return 0, false
}

func (subtable *cmapFormat12) ToUnicode(glyphID uint16) (rune, bool) {
	if glyphID == 0 {
		return 0, false
	}
	subtable.once.Do(func() {
		subtable.unicodeMap = map[uint16]rune{}
		for i := range subtable.StartCharCode {
			for r := subtable.StartCharCode[i]; r <= subtable.EndCharCode[i]; r++ {
				id := uint16(r - subtable.StartCharCode[i] + subtable.StartGlyphID[i])
				if _, ok := subtable.unicodeMap[id]; !ok {
					subtable.unicodeMap[id] = rune(r)
				}
			}
		}
	})
	r, ok := subtable.unicodeMap[glyphID]
	return r, ok
}

func (sfnt *SFNT) parseCmap() error {
	b := sfnt.Tables["cmap"]
	if len(b) < 4 {
		return fmt.Errorf("cmap: bad table")
	}

	sfnt.Cmap = &cmapTable{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint16() != 0 {
		return fmt.Errorf("cmap: bad version")
	}
	numTables := r.ReadUint16()
	if uint32(len(b)) < 4+8*uint32(numTables) {
		return fmt.Errorf("cmap: bad table")
	}

	subtableIDs := map[uint32]uint16{} // offset into the table => subtable index
	for j := 0; j < int(numTables); j++ {
		platformID := r.ReadUint16()
		encodingID := r.ReadUint16()
		offset := r.ReadUint32()
		if uint32(len(b))-8 < offset {
			return fmt.Errorf("cmap: bad subtable %d", j)
		}

		rs := parse.NewBinaryReader(b[offset:])
		format := rs.ReadUint16()
		subtableID, parsed := subtableIDs[offset]
		if !parsed {
			subtable, err := sfnt.parseCmapSubtable(format, rs)
			if err != nil {
				return fmt.Errorf("cmap: subtable %d: %v", j, err)
			} else if subtable == nil {
				continue // unsupported format
			}
			subtableID = uint16(len(sfnt.Cmap.Subtables))
			subtableIDs[offset] = subtableID
			sfnt.Cmap.Subtables = append(sfnt.Cmap.Subtables, subtable)
		}
		sfnt.Cmap.EncodingRecords = append(sfnt.Cmap.EncodingRecords, cmapEncodingRecord{
			PlatformID: platformID,
			EncodingID: encodingID,
			Format:     format,
			Subtable:   subtableID,
		})
	}
	if len(sfnt.Cmap.Subtables) == 0 {
		return fmt.Errorf("cmap: no supported subtables")
	}
	return nil
}

// parseCmapSubtable parses a single subtable with the format already read. It
// returns nil for formats the pipeline does not use.
func (sfnt *SFNT) parseCmapSubtable(format uint16, rs *parse.BinaryReader) (cmapSubtable, error) {
	switch format {
	case 0:
		if rs.Len() < 260 {
			return nil, fmt.Errorf("bad length")
		}
		_ = rs.ReadUint16() // length
		_ = rs.ReadUint16() // language

		subtable := &cmapFormat0{}
		copy(subtable.GlyphIdArray[:], rs.ReadBytes(256))
		for _, glyphID := range subtable.GlyphIdArray {
			if sfnt.Maxp.NumGlyphs <= uint16(glyphID) {
				return nil, fmt.Errorf("bad glyphID")
			}
		}
		return subtable, nil
	case 4:
		if rs.Len() < 12 {
			return nil, fmt.Errorf("bad length")
		}
		length := uint32(rs.ReadUint16())
		if length < 16 || rs.Len()+4 < length-2 {
			return nil, fmt.Errorf("bad length")
		}
		_ = rs.ReadUint16() // language

		segCount := rs.ReadUint16()
		if segCount%2 != 0 || segCount == 0 {
			return nil, fmt.Errorf("bad segCount")
		}
		segCount /= 2
		if MaxCmapSegments < segCount {
			return nil, fmt.Errorf("too many segments")
		}
		_ = rs.ReadUint16() // searchRange
		_ = rs.ReadUint16() // entrySelector
		_ = rs.ReadUint16() // rangeShift
		if rs.Len() < 2+8*uint32(segCount) {
			return nil, fmt.Errorf("bad length")
		}

		subtable := &cmapFormat4{}
		subtable.EndCode = make([]uint16, segCount)
		for i := 0; i < int(segCount); i++ {
			endCode := rs.ReadUint16()
			if 0 < i && endCode <= subtable.EndCode[i-1] {
				return nil, fmt.Errorf("bad endCode")
			}
			subtable.EndCode[i] = endCode
		}
		_ = rs.ReadUint16() // reservedPad
		subtable.StartCode = make([]uint16, segCount)
		for i := 0; i < int(segCount); i++ {
			startCode := rs.ReadUint16()
			if subtable.EndCode[i] < startCode || 0 < i && startCode <= subtable.EndCode[i-1] {
				return nil, fmt.Errorf("bad startCode")
			}
			subtable.StartCode[i] = startCode
		}
		if subtable.StartCode[segCount-1] != 0xFFFF || subtable.EndCode[segCount-1] != 0xFFFF {
			return nil, fmt.Errorf("bad last startCode or endCode")
		}

		subtable.IdDelta = make([]int16, segCount)
		for i := 0; i < int(segCount-1); i++ {
			subtable.IdDelta[i] = rs.ReadInt16()
		}
		_ = rs.ReadUint16() // last value may be invalid
		subtable.IdDelta[segCount-1] = 1

		if length < 16+8*uint32(segCount) {
			return nil, fmt.Errorf("bad length")
		}
		glyphIdArrayLength := (length - 16 - 8*uint32(segCount)) / 2
		if rs.Len() < 2*uint32(segCount)+2*glyphIdArrayLength {
			return nil, fmt.Errorf("bad length")
		}
		subtable.IdRangeOffset = make([]uint16, segCount)
		for i := 0; i < int(segCount-1); i++ {
			idRangeOffset := rs.ReadUint16()
			if idRangeOffset%2 != 0 {
				return nil, fmt.Errorf("bad idRangeOffset")
			} else if idRangeOffset != 0 {
				index := int(idRangeOffset/2) + int(subtable.EndCode[i]-subtable.StartCode[i]) - (int(segCount) - i)
				if index < 0 || glyphIdArrayLength <= uint32(index) {
					return nil, fmt.Errorf("bad idRangeOffset")
				}
			}
			subtable.IdRangeOffset[i] = idRangeOffset
		}
		_ = rs.ReadUint16() // last value may be invalid
		subtable.IdRangeOffset[segCount-1] = 0

		subtable.GlyphIdArray = make([]uint16, glyphIdArrayLength)
		for i := 0; i < int(glyphIdArrayLength); i++ {
			glyphID := rs.ReadUint16()
			if sfnt.Maxp.NumGlyphs <= glyphID {
				return nil, fmt.Errorf("bad glyphID")
			}
			subtable.GlyphIdArray[i] = glyphID
		}
		return subtable, nil
	case 6:
		if rs.Len() < 8 {
			return nil, fmt.Errorf("bad length")
		}
		_ = rs.ReadUint16() // length
		_ = rs.ReadUint16() // language

		subtable := &cmapFormat6{}
		subtable.FirstCode = rs.ReadUint16()
		entryCount := rs.ReadUint16()
		if rs.Len() < 2*uint32(entryCount) {
			return nil, fmt.Errorf("bad length")
		}
		subtable.GlyphIdArray = make([]uint16, entryCount)
		for i := 0; i < int(entryCount); i++ {
			subtable.GlyphIdArray[i] = rs.ReadUint16()
		}
		return subtable, nil
	case 12:
		if rs.Len() < 14 {
			return nil, fmt.Errorf("bad length")
		}
		_ = rs.ReadUint16() // reserved
		_ = rs.ReadUint32() // length
		_ = rs.ReadUint32() // language
		numGroups := rs.ReadUint32()
		if MaxCmapSegments < numGroups {
			return nil, fmt.Errorf("too many groups")
		} else if rs.Len() < 12*numGroups {
			return nil, fmt.Errorf("bad length")
		}

		subtable := &cmapFormat12{}
		subtable.StartCharCode = make([]uint32, numGroups)
		subtable.EndCharCode = make([]uint32, numGroups)
		subtable.StartGlyphID = make([]uint32, numGroups)
		for i := 0; i < int(numGroups); i++ {
			startCharCode := rs.ReadUint32()
			endCharCode := rs.ReadUint32()
			startGlyphID := rs.ReadUint32()
			if endCharCode < startCharCode || 0 < i && startCharCode <= subtable.EndCharCode[i-1] {
				return nil, fmt.Errorf("bad character code range")
			} else if uint32(sfnt.Maxp.NumGlyphs) <= endCharCode-startCharCode || uint32(sfnt.Maxp.NumGlyphs)-(endCharCode-startCharCode) <= startGlyphID {
				return nil, fmt.Errorf("bad glyphID")
			}
			subtable.StartCharCode[i] = startCharCode
			subtable.EndCharCode[i] = endCharCode
			subtable.StartGlyphID[i] = startGlyphID
		}
		return subtable, nil
	}
	return nil, nil
}

// cmapWrite serializes a cmap table that maps the given runes to their glyph
// IDs, using format 4 for runes within the basic plane and format 12
// otherwise. The subtable is referenced by a Unicode and a Windows encoding
// record.
func cmapWrite(rs []rune, runeMap map[rune]uint16) []byte {
	if len(rs) == 0 {
		return []byte{0x00, 0x00, 0x00, 0x00}
	}

	rs = append([]rune{}, rs...)
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	var maxRune rune
	for _, r := range rs {
		if maxRune < r {
			maxRune = r
		}
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0) // version
	w.WriteUint16(2) // numTables, two encodings of the same subtable
	if maxRune <= 0xFFFF {
		w.WriteUint16(0)  // platformID
		w.WriteUint16(3)  // encodingID
		w.WriteUint32(20) // subtableOffset
		w.WriteUint16(3)  // platformID
		w.WriteUint16(1)  // encodingID
		w.WriteUint32(20) // subtableOffset
		cmapWriteFormat4(w, rs, runeMap)
	} else {
		w.WriteUint16(0)  // platformID
		w.WriteUint16(4)  // encodingID
		w.WriteUint32(20) // subtableOffset
		w.WriteUint16(3)  // platformID
		w.WriteUint16(10) // encodingID
		w.WriteUint32(20) // subtableOffset
		cmapWriteFormat12(w, rs, runeMap)
	}
	return w.Bytes()
}

func cmapWriteFormat4(w *parse.BinaryWriter, rs []rune, runeMap map[rune]uint16) {
	// split the runes into segments of contiguous runes, each segment maps
	// through idDelta when its glyph IDs are contiguous as well and through
	// glyphIdArray otherwise
	type segment struct {
		start, end uint16
		glyphIDs   []uint16 // nil when contiguous
		delta      int16
	}
	var segments []segment
	for i := 0; i < len(rs); {
		j := i + 1
		contiguous := true
		for j < len(rs) && rs[j-1]+1 == rs[j] {
			if runeMap[rs[j-1]]+1 != runeMap[rs[j]] {
				contiguous = false
			}
			j++
		}
		seg := segment{start: uint16(rs[i]), end: uint16(rs[j-1])}
		if contiguous {
			seg.delta = int16(runeMap[rs[i]] - uint16(rs[i]))
		} else {
			for _, r := range rs[i:j] {
				seg.glyphIDs = append(seg.glyphIDs, runeMap[r])
			}
		}
		segments = append(segments, seg)
		i = j
	}
	if rs[len(rs)-1] != 0xFFFF {
		segments = append(segments, segment{start: 0xFFFF, end: 0xFFFF, delta: 1}) // map to .notdef
	}

	segCount := len(segments)
	entrySelector := uint16(0)
	for 1<<(entrySelector+1) <= segCount {
		entrySelector++
	}
	searchRange := uint16(1) << (entrySelector + 1)

	start := w.Len()
	w.WriteUint16(4) // format
	w.WriteUint16(0) // length (set later)
	w.WriteUint16(0) // language
	w.WriteUint16(uint16(segCount) * 2)
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(uint16(segCount)*2 - searchRange)
	for _, seg := range segments {
		w.WriteUint16(seg.end)
	}
	w.WriteUint16(0) // reservedPad
	for _, seg := range segments {
		w.WriteUint16(seg.start)
	}
	for _, seg := range segments {
		w.WriteInt16(seg.delta)
	}
	glyphIdIndex := 0
	for i, seg := range segments {
		if seg.glyphIDs == nil {
			w.WriteUint16(0)
		} else {
			// offset in bytes from this idRangeOffset entry to the glyph IDs
			w.WriteUint16(uint16(segCount-i+glyphIdIndex) * 2)
			glyphIdIndex += len(seg.glyphIDs)
		}
	}
	for _, seg := range segments {
		for _, glyphID := range seg.glyphIDs {
			w.WriteUint16(glyphID)
		}
	}
	binary.BigEndian.PutUint16(w.Bytes()[start+2:], uint16(w.Len()-start)) // set length
}

func cmapWriteFormat12(w *parse.BinaryWriter, rs []rune, runeMap map[rune]uint16) {
	start := w.Len()
	w.WriteUint16(12) // format
	w.WriteUint16(0)  // reserved
	w.WriteUint32(0)  // length (set later)
	w.WriteUint32(0)  // language
	w.WriteUint32(0)  // numGroups (set later)

	numGroups := uint32(1)
	startCharCode := uint32(rs[0])
	startGlyphID := uint32(runeMap[rs[0]])
	n := uint32(1)
	for i := 1; i < len(rs); i++ {
		r := rs[i]
		glyphID := runeMap[r]
		if r == rs[i-1] {
			continue
		} else if uint32(r) == startCharCode+n && uint32(glyphID) == startGlyphID+n {
			n++
		} else {
			w.WriteUint32(startCharCode)
			w.WriteUint32(startCharCode + n - 1)
			w.WriteUint32(startGlyphID)
			numGroups++
			startCharCode = uint32(r)
			startGlyphID = uint32(glyphID)
			n = 1
		}
	}
	w.WriteUint32(startCharCode)
	w.WriteUint32(startCharCode + n - 1)
	w.WriteUint32(startGlyphID)

	binary.BigEndian.PutUint32(w.Bytes()[start+4:], w.Len()-start) // set length
	binary.BigEndian.PutUint32(w.Bytes()[start+12:], numGroups)    // set numGroups
}
