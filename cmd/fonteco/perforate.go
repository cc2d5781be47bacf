package main

import (
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/tdewolff/fonteco"
)

type Perforate struct {
	Quiet         bool    `short:"q" desc:"Suppress output except for errors."`
	Force         bool    `short:"f" desc:"Force overwriting existing files."`
	Percent       float64 `short:"p" name:"percent" desc:"Percentage of ink to remove, 0-100."`
	Mode          string  `short:"m" name:"mode" desc:"Dithering mode: point, shape or line."`
	Render        string  `short:"r" name:"render" desc:"Render mode: original, simplified, optimized or optimized_masked."`
	Levels        int     `short:"l" name:"levels" desc:"Number of gray levels or grid size, 0 uses the render mode default."`
	PointSize     int     `name:"point-size" desc:"Size of removed points in pixels."`
	Scale         float64 `name:"scale" desc:"Pixel to font unit scale, 0 derives it from the font."`
	Test          bool    `short:"t" name:"test" desc:"Process only the first 20 glyphs."`
	LegacyCoords  bool    `name:"legacy-coords" desc:"Deprecated: reproduce the historical coordinate transform."`
	Suffix        string  `name:"suffix" desc:"Suffix appended to the font family name."`
	ShapeType     string  `name:"shape" desc:"Shape type: circle or square."`
	ShapeSize     string  `name:"shape-size" desc:"Shape size policy: fixed, random or biggest."`
	LineStyle     string  `name:"line" desc:"Line type: straight or curved."`
	LinePlacement string  `name:"line-placement" desc:"Line placement: parallel or random."`
	Lines         int     `name:"lines" desc:"Number of lines to remove, 0 derives it from the ink coverage."`
	DebugDir      string  `name:"debug" desc:"Directory for staged debug images of the last processed glyph."`
	Preview       string  `name:"preview" desc:"Write a perforated sample of the output font as PNG."`
	Output        string  `short:"o" desc:"Output font file, .woff2 writes WOFF2."`
	Input         string  `index:"0" desc:"Input font file."`
}

func (cmd *Perforate) Run() error {
	if cmd.Quiet {
		Warning = log.New(io.Discard, "", 0)
	}
	if cmd.Output == "" {
		return fmt.Errorf("output file must be set")
	}

	sfnt, _, err := readFont(cmd.Input)
	if err != nil {
		if cmd.Input == "-" {
			return err
		}
		return fmt.Errorf("%v: %v", cmd.Input, err)
	}

	shape := fonteco.DefaultShapeOptions()
	shape.Type = fonteco.ShapeType(cmd.ShapeType)
	shape.Size = fonteco.SizePolicy(cmd.ShapeSize)
	line := fonteco.DefaultLineOptions()
	line.Type = fonteco.LineType(cmd.LineStyle)
	line.Placement = fonteco.LinePlacement(cmd.LinePlacement)
	line.Count = cmd.Lines

	opts := fonteco.NewOptions()
	opts.ReductionPercentage = cmd.Percent
	opts.PointSize = cmd.PointSize
	opts.DitheringMode = fonteco.DitheringMode(cmd.Mode)
	opts.RenderMode = fonteco.TraceMode(cmd.Render)
	opts.NumLevels = cmd.Levels
	opts.ScaleFactor = cmd.Scale
	opts.TestMode = cmd.Test
	opts.CoordinateBugMode = cmd.LegacyCoords
	opts.Shape = shape
	opts.Line = line
	opts.NameSuffix = cmd.Suffix
	opts.DebugDir = cmd.DebugDir
	opts.Warnings = func(msg string) {
		Warning.Println(msg)
	}
	if !cmd.Quiet {
		opts.Progress = func(percent int) {
			fmt.Printf("\rperforating... %3d%%", percent)
			if percent == 100 {
				fmt.Print("\n")
			}
		}
	}

	if err := fonteco.PerforateSFNT(sfnt, opts); err != nil {
		return err
	}
	n, err := writeFont(cmd.Output, cmd.Force, sfnt)
	if err != nil {
		return err
	}
	if !cmd.Quiet && cmd.Output != "-" {
		fmt.Printf("%v:  %v glyphs,  %v\n", filepath.Base(cmd.Output), sfnt.NumGlyphs(), formatBytes(uint64(n)))
	}

	if cmd.Preview != "" {
		if cmd.Output == "-" {
			return fmt.Errorf("cannot preview when writing to stdout")
		} else if filepath.Ext(cmd.Output) == ".woff2" {
			return fmt.Errorf("cannot preview WOFF2 output")
		}
		if err := fonteco.Visualize(cmd.Output, cmd.Preview, 0.0); err != nil {
			return err
		}
	}
	return nil
}
