package main

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tdewolff/fonteco"
)

type Subset struct {
	Quiet  bool     `short:"q" desc:"Suppress output except for errors."`
	Force  bool     `short:"f" desc:"Force overwriting existing files."`
	Preset string   `short:"p" desc:"Character preset: alphanumeric or cyrillic."`
	Glyphs []string `short:"g" name:"glyph" desc:"List of glyph IDs to keep, eg. 1-100."`
	Chars  []string `short:"c" name:"char" desc:"List of literal characters to keep, eg. a-z."`
	Names  []string `short:"n" name:"name" desc:"List of glyph names to keep, eg. space."`
	Output string   `short:"o" desc:"Output font file, .woff2 writes WOFF2."`
	Input  string   `index:"0" desc:"Input font file."`
}

func (cmd *Subset) Run() error {
	if cmd.Quiet {
		Warning = log.New(io.Discard, "", 0)
	}
	if cmd.Output == "" {
		cmd.Output = cmd.Input
	}

	sfnt, b, err := readFont(cmd.Input)
	if err != nil {
		if cmd.Input == "-" {
			return err
		}
		return fmt.Errorf("%v: %v", cmd.Input, err)
	}

	glyphMap := map[uint16]bool{}
	glyphMap[0] = true

	// presets cover the common cases, explicit lists refine them
	switch cmd.Preset {
	case "":
	case "alphanumeric":
		for _, glyphID := range sfnt.SubsetRunes(fonteco.AlphanumericRunes()) {
			glyphMap[glyphID] = true
		}
	case "cyrillic":
		for _, glyphID := range sfnt.SubsetRunes(fonteco.LatinCyrillicRunes()) {
			glyphMap[glyphID] = true
		}
	default:
		return fmt.Errorf("unknown preset: %v", cmd.Preset)
	}

	for _, glyph := range cmd.Glyphs {
		if dash := strings.IndexByte(glyph, '-'); dash != -1 {
			first, err := strconv.ParseInt(glyph[:dash], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid glyph ID: %v", err)
			}
			last, err := strconv.ParseInt(glyph[dash+1:], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid glyph ID: %v", err)
			}
			if last < first || first < 0 || 65535 < last {
				return fmt.Errorf("invalid glyph ID range: %d-%d", first, last)
			}
			for first != last+1 {
				glyphMap[uint16(first)] = true
				first++
			}
		} else {
			glyphID, err := strconv.ParseInt(glyph, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid glyph ID: %v", err)
			}
			if glyphID < 0 || 65535 < glyphID {
				return fmt.Errorf("invalid glyph ID: %v", glyphID)
			}
			glyphMap[uint16(glyphID)] = true
		}
	}

	for _, s := range cmd.Chars {
		for _, r := range s {
			glyphID := sfnt.GlyphIndex(r)
			if glyphID == 0 {
				Warning.Println("glyph not found:", string(r))
			} else {
				glyphMap[glyphID] = true
			}
		}
	}

	for _, name := range cmd.Names {
		glyphID := sfnt.FindGlyphName(name)
		if glyphID == 0 {
			Warning.Println("glyph name not found:", name)
		} else {
			glyphMap[glyphID] = true
		}
	}

	// convert to sorted list, prevents duplicates
	glyphIDs := make([]uint16, 0, len(glyphMap))
	for glyphID := range glyphMap {
		glyphIDs = append(glyphIDs, glyphID)
	}
	sort.Slice(glyphIDs, func(i, j int) bool { return glyphIDs[i] < glyphIDs[j] })

	numGlyphs := sfnt.NumGlyphs()
	sfntSubset, err := sfnt.Subset(glyphIDs, fonteco.SubsetOptions{Tables: fonteco.KeepMinTables})
	if err != nil {
		if cmd.Input == "-" {
			return err
		}
		return fmt.Errorf("%v: %v", cmd.Input, err)
	}

	n, err := writeFont(cmd.Output, cmd.Force, sfntSubset)
	if err != nil {
		return err
	}
	if !cmd.Quiet && cmd.Output != "-" {
		ratio := 1.0
		if 0 < len(b) {
			ratio = float64(n) / float64(len(b))
		}
		fmt.Printf("%v:  %v => %v glyphs,  %v => %v (%.1f%%)\n", filepath.Base(cmd.Output), numGlyphs, sfntSubset.NumGlyphs(), formatBytes(uint64(len(b))), formatBytes(uint64(n)), ratio*100.0)
	}
	return nil
}
