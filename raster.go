package fonteco

import (
	"fmt"
	"image"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
)

const (
	canvasSize     = 512
	rasterFontSize = 400
	rasterMargin   = 50
)

// problematicGlyphs are composite glyphs whose visual shape is close enough
// to a simple substitute that we render the substitute instead.
var problematicGlyphs = map[rune]string{
	'Н': "H",
	'П': "P",
	'Э': "E",
	'Я': "R",
	'э': "e",
	'я': "r",
	'Ё': "E",
	'ё': "e",
	'Й': "N",
	'й': "n",
}

// cyrillicToLatin maps Cyrillic codepoints to visually similar Latin
// characters, used to render composite Cyrillic glyphs.
var cyrillicToLatin = map[rune]string{
	0x0410: "A",
	0x0412: "B",
	0x0415: "E",
	0x0417: "3",
	0x0418: "N",
	0x041A: "K",
	0x041C: "M",
	0x041E: "O",
	0x0420: "P",
	0x0421: "C",
	0x0422: "T",
	0x0423: "Y",
	0x0425: "X",
	0x0430: "a",
	0x0435: "e",
	0x043E: "o",
	0x0440: "p",
	0x0441: "c",
	0x0443: "y",
	0x0445: "x",
}

// Rasterizer renders glyphs of a font onto a reused grayscale canvas, black
// ink on a white background.
type Rasterizer struct {
	sfnt     *SFNT
	ctx      *freetype.Context
	canvas   *image.Gray
	baseline int
}

// NewRasterizer creates a rasterizer for the font. fontData must be the
// serialized form of sfnt.
func NewRasterizer(sfnt *SFNT, fontData []byte) (*Rasterizer, error) {
	ttf, err := freetype.ParseFont(fontData)
	if err != nil {
		return nil, fmt.Errorf("rasterizer: %v", err)
	}

	canvas := newCanvas(canvasSize, canvasSize)
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(ttf)
	ctx.SetFontSize(rasterFontSize)
	ctx.SetClip(canvas.Bounds())
	ctx.SetDst(canvas)
	ctx.SetSrc(image.Black)

	face := truetype.NewFace(ttf, &truetype.Options{
		Size: rasterFontSize,
		DPI:  72,
	})
	ascent := int(face.Metrics().Ascent >> 6)

	return &Rasterizer{
		sfnt:     sfnt,
		ctx:      ctx,
		canvas:   canvas,
		baseline: rasterMargin + ascent,
	}, nil
}

// Rasterize renders the glyph onto the canvas. A nil image without error
// means the glyph has no renderable character and should be skipped.
// The returned image is reused by the next call.
func (rast *Rasterizer) Rasterize(glyphID uint16) (*image.Gray, error) {
	if glyphID == 0 {
		return nil, nil // .notdef
	}
	r, ok := rast.sfnt.Cmap.ToUnicode(glyphID)
	if !ok {
		return nil, nil
	}
	if !rast.sfnt.Glyf.IsComposite(glyphID) {
		return rast.drawString(string(r))
	}

	// composite glyphs render through freetype only when a simple substitute
	// exists, otherwise their decomposed outline points are plotted directly
	if sub, ok := problematicGlyphs[r]; ok {
		return rast.drawString(sub)
	}
	if 0x0400 <= r && r <= 0x04FF {
		if sub, ok := cyrillicToLatin[r]; ok {
			return rast.drawString(sub)
		}
	}
	return rast.plotOutline(glyphID)
}

func (rast *Rasterizer) drawString(s string) (*image.Gray, error) {
	clearGray(rast.canvas)
	if _, err := rast.ctx.DrawString(s, freetype.Pt(rasterMargin, rast.baseline)); err != nil {
		return nil, fmt.Errorf("rasterizer: %v", err)
	}
	return rast.canvas, nil
}

// plotOutline plots the on-curve outline points of a glyph as single pixels,
// scaled to fit the canvas. Curves contribute only their endpoints, which
// loses the curved shape but keeps the glyph's silhouette workable. Font
// units increase upward, the mirroring cancels against the output transform.
func (rast *Rasterizer) plotOutline(glyphID uint16) (*image.Gray, error) {
	outline, err := rast.sfnt.Glyf.Decompose(glyphID)
	if err != nil {
		return nil, err
	}

	first := true
	var xMin, yMin, xMax, yMax int16
	for _, contour := range outline.Contours {
		for _, p := range contour {
			if first {
				xMin, yMin, xMax, yMax = p.X, p.Y, p.X, p.Y
				first = false
				continue
			}
			if p.X < xMin {
				xMin = p.X
			} else if xMax < p.X {
				xMax = p.X
			}
			if p.Y < yMin {
				yMin = p.Y
			} else if yMax < p.Y {
				yMax = p.Y
			}
		}
	}
	if first || xMax <= xMin || yMax <= yMin {
		return nil, fmt.Errorf("glyph %v: outline has no extent", glyphID)
	}

	scaleX := float64(canvasSize-2*rasterMargin) / float64(xMax-xMin)
	scaleY := float64(canvasSize-2*rasterMargin) / float64(yMax-yMin)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	clearGray(rast.canvas)
	for _, contour := range outline.Contours {
		for _, p := range contour {
			if !p.OnCurve {
				continue
			}
			x := int(float64(p.X-xMin)*scale) + rasterMargin
			y := int(float64(p.Y-yMin)*scale) + rasterMargin
			if 0 <= x && x < canvasSize && 0 <= y && y < canvasSize {
				rast.canvas.Pix[y*rast.canvas.Stride+x] = 0
			}
		}
	}
	return rast.canvas, nil
}
