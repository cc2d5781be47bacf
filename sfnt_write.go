package fonteco

import (
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/tdewolff/parse/v2"
)

// Write serializes the font as TrueType. Pending glyph outline changes are
// merged into the glyf and loca tables first, and all table checksums and
// the head checksum adjustment are recalculated.
func (sfnt *SFNT) Write() []byte {
	if sfnt.glyphData != nil {
		sfnt.rebuildGlyf()
	}

	tags := make([]string, 0, len(sfnt.Tables))
	for tag := range sfnt.Tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	// write header
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00010000) // sfntVersion
	numTables := uint16(len(tags))
	entrySelector := uint16(math.Log2(float64(numTables)))
	searchRange := uint16(1 << (entrySelector + 4))
	w.WriteUint16(numTables)                  // numTables
	w.WriteUint16(searchRange)                // searchRange
	w.WriteUint16(entrySelector)              // entrySelector
	w.WriteUint16(numTables<<4 - searchRange) // rangeShift

	// we'll write the table records at the end
	w.WriteBytes(make([]byte, numTables<<4))

	// write tables
	var checksumAdjustmentPos uint32
	offsets, lengths := make([]uint32, numTables), make([]uint32, numTables)
	for i, tag := range tags {
		offsets[i] = w.Len()
		table := sfnt.Tables[tag]
		if tag == "head" {
			// reset checksumAdjustment and set the modified timestamp
			checksumAdjustmentPos = w.Len() + 8
			w.WriteBytes(table[:8])
			w.WriteUint32(0)
			w.WriteBytes(table[12:28])
			modified := int64(time.Now().UTC().Sub(time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)) / 1e9)
			w.WriteUint32(uint32(modified >> 32))
			w.WriteUint32(uint32(modified))
			w.WriteBytes(table[36:])
		} else {
			w.WriteBytes(table)
		}
		lengths[i] = w.Len() - offsets[i]

		padding := (4 - lengths[i]&3) & 3
		for j := 0; j < int(padding); j++ {
			w.WriteUint8(0)
		}
	}

	// add table record entries
	buf := w.Bytes()
	for i, tag := range tags {
		pos := 12 + i<<4
		copy(buf[pos:], []byte(tag))
		padding := (4 - lengths[i]&3) & 3
		checksum := calcChecksum(buf[offsets[i] : offsets[i]+lengths[i]+padding])
		binary.BigEndian.PutUint32(buf[pos+4:], checksum)
		binary.BigEndian.PutUint32(buf[pos+8:], offsets[i])
		binary.BigEndian.PutUint32(buf[pos+12:], lengths[i])
	}
	binary.BigEndian.PutUint32(buf[checksumAdjustmentPos:], 0xB1B0AFBA-calcChecksum(buf))
	return buf
}

// rebuildGlyf merges pending glyph replacements into new glyf and loca
// tables, choosing the short loca format when offsets permit, and updates
// the font bounding box in head.
func (sfnt *SFNT) rebuildGlyf() {
	numGlyphs := int(sfnt.Maxp.NumGlyphs)
	records := make([][]byte, numGlyphs)
	total := uint32(0)
	for i := 0; i < numGlyphs; i++ {
		b := sfnt.glyphData[i]
		if b == nil {
			b = sfnt.Glyf.Get(uint16(i))
		}
		records[i] = b
		total += uint32(len(b))
		if len(b)%2 == 1 {
			total++ // glyph offsets must be even
		}
	}
	longFormat := 0x1FFFE < total

	glyfW := parse.NewBinaryWriter(make([]byte, 0, total))
	locaW := parse.NewBinaryWriter([]byte{})
	writeOffset := func(offset uint32) {
		if longFormat {
			locaW.WriteUint32(offset)
		} else {
			locaW.WriteUint16(uint16(offset >> 1))
		}
	}
	for _, b := range records {
		writeOffset(glyfW.Len())
		glyfW.WriteBytes(b)
		if len(b)%2 == 1 {
			glyfW.WriteUint8(0)
		}
	}
	writeOffset(glyfW.Len())

	// font bounding box from the glyph headers
	var xMin, yMin, xMax, yMax int16
	first := true
	for _, b := range records {
		if len(b) < 10 {
			continue
		}
		gxMin := int16(binary.BigEndian.Uint16(b[2:]))
		gyMin := int16(binary.BigEndian.Uint16(b[4:]))
		gxMax := int16(binary.BigEndian.Uint16(b[6:]))
		gyMax := int16(binary.BigEndian.Uint16(b[8:]))
		if first {
			xMin, yMin, xMax, yMax = gxMin, gyMin, gxMax, gyMax
			first = false
			continue
		}
		if gxMin < xMin {
			xMin = gxMin
		}
		if gyMin < yMin {
			yMin = gyMin
		}
		if xMax < gxMax {
			xMax = gxMax
		}
		if yMax < gyMax {
			yMax = gyMax
		}
	}

	head := make([]byte, len(sfnt.Tables["head"]))
	copy(head, sfnt.Tables["head"])
	if !first {
		binary.BigEndian.PutUint16(head[36:], uint16(xMin))
		binary.BigEndian.PutUint16(head[38:], uint16(yMin))
		binary.BigEndian.PutUint16(head[40:], uint16(xMax))
		binary.BigEndian.PutUint16(head[42:], uint16(yMax))
		sfnt.Head.XMin, sfnt.Head.YMin = xMin, yMin
		sfnt.Head.XMax, sfnt.Head.YMax = xMax, yMax
	}
	indexToLocFormat := int16(0)
	if longFormat {
		indexToLocFormat = 1
	}
	binary.BigEndian.PutUint16(head[50:], uint16(indexToLocFormat))
	sfnt.Head.IndexToLocFormat = indexToLocFormat

	sfnt.Tables["head"] = head
	sfnt.Tables["glyf"] = glyfW.Bytes()
	sfnt.Tables["loca"] = locaW.Bytes()
	sfnt.Loca = &locaTable{Format: indexToLocFormat, data: sfnt.Tables["loca"]}
	sfnt.Glyf.data = sfnt.Tables["glyf"]
	sfnt.Glyf.loca = sfnt.Loca
	sfnt.glyphData = nil
}
