package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/tdewolff/fonteco"
	"github.com/tdewolff/parse/v2"
)

type Info struct {
	Input string `index:"0" desc:"Input font file."`
}

func (cmd *Info) Run() error {
	b, err := os.ReadFile(cmd.Input)
	if err != nil {
		return err
	}
	sfnt, err := fonteco.ParseSFNT(b)
	if err != nil {
		return err
	}

	r := parse.NewBinaryReader(b)
	_ = r.ReadUint32() // sfntVersion
	numTables := int(r.ReadUint16())
	_ = r.ReadBytes(6)

	fmt.Printf("File: %s\n\n", cmd.Input)
	if family := sfnt.FontName(fonteco.NameFontFamily); family != "" {
		fmt.Printf("Family name: %s\n", family)
	}
	if full := sfnt.FontName(fonteco.NameFullFontName); full != "" {
		fmt.Printf("Full name: %s\n", full)
	}
	fmt.Printf("Glyphs: %d\n", sfnt.NumGlyphs())
	fmt.Printf("Units per em: %d\n", sfnt.Head.UnitsPerEm)
	fmt.Printf("Ascender: %d\n", sfnt.Hhea.Ascender)
	fmt.Printf("Descender: %d\n", sfnt.Hhea.Descender)
	fmt.Printf("Bounding box: [%d %d %d %d]\n", sfnt.Head.XMin, sfnt.Head.YMin, sfnt.Head.XMax, sfnt.Head.YMax)

	macStyle := fonteco.Uint16ToFlags(binary.BigEndian.Uint16(sfnt.Tables["head"][44:]))
	styleNames := []string{"bold", "italic", "underline", "outline", "shadow", "condensed", "extended"}
	style := ""
	for i, name := range styleNames {
		if macStyle[i] {
			style += " " + name
		}
	}
	if style == "" {
		style = " regular"
	}
	fmt.Printf("Style:%s\n", style)

	fmt.Printf("\nTable directory:\n")
	nLen := int(math.Log10(float64(len(b)))) + 1
	for i := 0; i < numTables; i++ {
		tag := r.ReadString(4)
		checksum := r.ReadUint32()
		offset := r.ReadUint32()
		length := r.ReadUint32()
		fmt.Printf("  %2d  %s  checksum=0x%08X  offset=%*d  length=%*d\n", i, tag, checksum, nLen, offset, nLen, length)
	}
	return nil
}
