package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
	"github.com/tdewolff/fonteco"
	"github.com/tdewolff/prompt"
	xdraw "golang.org/x/image/draw"
)

type Draw struct {
	Force   bool    `short:"f" desc:"Force overwriting existing files."`
	Glyph   int     `short:"g" name:"glyph" desc:"Glyph ID to draw."`
	Char    string  `short:"c" desc:"Character to draw."`
	Text    string  `short:"t" desc:"Sample text to render, requires an output image."`
	Size    float64 `short:"s" desc:"Font size for sample text."`
	Columns int     `name:"columns" desc:"Terminal width of the ASCII preview."`
	Output  string  `short:"o" desc:"Output PNG file, prints ASCII art when not set."`
	Input   string  `index:"0" desc:"Input font file."`
}

func (cmd *Draw) Run() error {
	sfnt, b, err := readFont(cmd.Input)
	if err != nil {
		if cmd.Input == "-" {
			return err
		}
		return fmt.Errorf("%v: %v", cmd.Input, err)
	}

	if cmd.Text != "" {
		if cmd.Output == "" {
			return fmt.Errorf("sample text requires an output image")
		}
		return cmd.renderText(b)
	}

	glyphID := uint16(cmd.Glyph)
	if cmd.Char != "" {
		r, _ := utf8.DecodeRuneInString(cmd.Char)
		if glyphID = sfnt.GlyphIndex(r); glyphID == 0 {
			return fmt.Errorf("glyph not found: %s", string(r))
		}
	}

	rast, err := fonteco.NewRasterizer(sfnt, b)
	if err != nil {
		return err
	}
	img, err := rast.Rasterize(glyphID)
	if err != nil {
		return err
	} else if img == nil {
		return fmt.Errorf("glyph %v has no character mapping", glyphID)
	}

	if cmd.Output == "" {
		// terminal characters are roughly twice as tall as wide
		small := image.NewGray(image.Rect(0, 0, cmd.Columns, cmd.Columns/2))
		xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		printASCII(small)
		return nil
	}

	if _, err := os.Stat(cmd.Output); err == nil {
		if !cmd.Force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", cmd.Output), false) {
			return nil
		}
	}
	f, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (cmd *Draw) renderText(fontData []byte) error {
	fontFamily := canvas.NewFontFamily("font")
	if err := fontFamily.LoadFont(fontData, 0, canvas.FontRegular); err != nil {
		return err
	}
	face := fontFamily.Face(cmd.Size, canvas.Black, canvas.FontRegular, canvas.FontNormal)

	line := canvas.NewTextLine(face, cmd.Text, canvas.Left)
	bounds := line.Bounds()
	margin := cmd.Size / 4.0
	c := canvas.New(bounds.W()+2.0*margin, bounds.H()+2.0*margin)
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0.0, 0.0, canvas.Rectangle(c.W, c.H))
	ctx.DrawText(margin-bounds.X0, margin-bounds.Y0, line)

	if _, err := os.Stat(cmd.Output); err == nil {
		if !cmd.Force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", cmd.Output), false) {
			return nil
		}
	}
	return renderers.Write(cmd.Output, c)
}
