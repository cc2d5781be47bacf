package fonteco

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/parse/v2"
)

var woff2TableTags = []string{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

// WriteWOFF2 serializes the font as WOFF2 with Brotli compressed table data.
// Tables are stored untransformed (null transform for glyf and loca). Pending
// glyph outline changes are merged first. See https://www.w3.org/TR/WOFF2/
func (sfnt *SFNT) WriteWOFF2() ([]byte, error) {
	if sfnt.glyphData != nil {
		sfnt.rebuildGlyf()
	}

	tags := make([]string, 0, len(sfnt.Tables))
	for tag := range sfnt.Tables {
		if tag == "DSIG" {
			continue // signature invalidated by repackaging
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	totalSfntSize := uint32(12 + 16*len(tags))
	for _, tag := range tags {
		totalSfntSize += (uint32(len(sfnt.Tables[tag])) + 3) &^ 3
	}

	w := parse.NewBinaryWriter(make([]byte, 0, sfnt.Length*6/10)) // estimated size
	w.WriteString("wOF2")               // signature
	w.WriteUint32(0x00010000)           // flavor
	w.WriteUint32(0)                    // length (set later)
	w.WriteUint16(uint16(len(tags)))    // numTables
	w.WriteUint16(0)                    // reserved
	w.WriteUint32(totalSfntSize)        // totalSfntSize
	w.WriteUint32(0)                    // totalCompressedSize (set later)
	w.WriteUint16(1)                    // majorVersion
	w.WriteUint16(0)                    // minorVersion
	w.WriteUint32(0)                    // metaOffset
	w.WriteUint32(0)                    // metaLength
	w.WriteUint32(0)                    // metaOrigLength
	w.WriteUint32(0)                    // privOffset
	w.WriteUint32(0)                    // privLength

	for _, tag := range tags {
		tagIndex := -1
		for index, woff2Tag := range woff2TableTags {
			if woff2Tag == tag {
				tagIndex = index
				break
			}
		}

		// null transform: version 3 for glyf and loca, 0 otherwise, and no
		// transformLength field
		transformVersion := 0
		if tag == "glyf" || tag == "loca" {
			transformVersion = 3
		}
		w.WriteUint8(byte(transformVersion)<<6 | byte(tagIndex)&0x3F) // flags
		if tagIndex == -1 {
			w.WriteString(tag) // tag
		}
		writeUintBase128(w, uint32(len(sfnt.Tables[tag]))) // origLength
	}

	headerLength := w.Len()
	buf := &bytes.Buffer{}
	wBrotli := brotli.NewWriter(buf)
	for _, tag := range tags {
		table := sfnt.Tables[tag]
		if tag == "head" {
			head := make([]byte, len(table))
			copy(head, table)
			flags := binary.BigEndian.Uint16(head[16:])
			flags |= 0x0800 // bit 11, font is compressed
			binary.BigEndian.PutUint16(head[16:], flags)
			table = head
		}
		if _, err := wBrotli.Write(table); err != nil {
			return nil, err
		}
	}
	if err := wBrotli.Close(); err != nil {
		return nil, err
	}
	w.WriteBytes(buf.Bytes())

	// pad to 4-byte boundary
	// apparently not in the specification, but required by at least Firefox
	totalCompressedSize := w.Len() - headerLength // excludes the null bytes
	padding := (4 - w.Len()&3) & 3
	for i := 0; i < int(padding); i++ {
		w.WriteUint8(0)
	}

	b := w.Bytes()
	binary.BigEndian.PutUint32(b[8:], uint32(len(b)))   // length
	binary.BigEndian.PutUint32(b[20:], totalCompressedSize) // totalCompressedSize
	return b, nil
}

func writeUintBase128(w *parse.BinaryWriter, accum uint32) {
	// see https://www.w3.org/TR/WOFF2/#DataTypes
	if accum == 0 {
		w.WriteUint8(0)
		return
	}
	written := false
	for i := 4; 0 <= i; i-- {
		mask := uint32(0x7F) << (i * 7)
		if v := accum & mask; written || v != 0 {
			v >>= i * 7
			if i != 0 {
				v |= 0x80
			}
			w.WriteUint8(byte(v))
			written = true
		}
	}
}
