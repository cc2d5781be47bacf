package fonteco

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func readBase128(b []byte) (uint32, int) {
	var v uint32
	for i := 0; i < len(b); i++ {
		v = v<<7 | uint32(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return v, len(b)
}

func TestWriteWOFF2(t *testing.T) {
	font := testFont(t)
	b, err := font.WriteWOFF2()
	test.Error(t, err)

	test.T(t, string(b[:4]), "wOF2")
	test.T(t, binary.BigEndian.Uint32(b[4:]), uint32(0x00010000))
	test.T(t, binary.BigEndian.Uint32(b[8:]), uint32(len(b)))
	test.T(t, binary.BigEndian.Uint16(b[12:]), uint16(9))
	test.T(t, len(b)&3, 0)

	totalSfntSize := uint32(12 + 16*9)
	for _, table := range font.Tables {
		totalSfntSize += (uint32(len(table)) + 3) &^ 3
	}
	test.T(t, binary.BigEndian.Uint32(b[16:]), totalSfntSize)

	// directory entries appear in sorted tag order with base128 lengths
	tags := []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"}
	offset := 48
	for _, tag := range tags {
		flags := b[offset]
		offset++
		if flags&0x3F == 0x3F {
			offset += 4 // literal tag
		}
		if tag == "glyf" || tag == "loca" {
			test.T(t, flags>>6, uint8(3)) // null transform
		} else {
			test.T(t, flags>>6, uint8(0))
		}
		origLength, n := readBase128(b[offset:])
		offset += n
		test.T(t, origLength, uint32(len(font.Tables[tag])))
	}

	// the compressed stream concatenates the raw tables in tag order
	totalCompressedSize := binary.BigEndian.Uint32(b[20:])
	r := brotli.NewReader(bytes.NewReader(b[offset : offset+int(totalCompressedSize)]))
	data, err := io.ReadAll(r)
	test.Error(t, err)
	total := 0
	for _, table := range font.Tables {
		total += len(table)
	}
	test.T(t, len(data), total)
	test.Bytes(t, data[:len(font.Tables["cmap"])], font.Tables["cmap"])

	// head gains the compressed-font flag
	headOffset := len(font.Tables["cmap"]) + len(font.Tables["glyf"])
	headFlags := binary.BigEndian.Uint16(data[headOffset+16:])
	test.T(t, headFlags&0x0800, uint16(0x0800))
}

func TestWriteWOFF2SkipsDSIG(t *testing.T) {
	font := testFont(t)
	font.Tables["DSIG"] = []byte{0x00, 0x00, 0x00, 0x01}
	b, err := font.WriteWOFF2()
	test.Error(t, err)
	test.T(t, binary.BigEndian.Uint16(b[12:]), uint16(9))
}

func TestWriteUintBase128(t *testing.T) {
	var tests = []struct {
		v uint32
		b []byte
	}{
		{0, []byte{0x00}},
		{63, []byte{0x3F}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x00}},
		{154, []byte{0x81, 0x1A}},
		{0xFFFFFFFF, []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, tt := range tests {
		w := parse.NewBinaryWriter([]byte{})
		writeUintBase128(w, tt.v)
		test.Bytes(t, w.Bytes(), tt.b)

		v, n := readBase128(tt.b)
		test.T(t, v, tt.v)
		test.T(t, n, len(tt.b))
	}
}
