// Package fonteco perforates TrueType fonts to reduce the amount of ink they
// need when printed. Each glyph is rasterized, a fraction of its ink pixels
// is removed by a spatial point process, and the perforated bitmap is traced
// back into a glyph outline.
package fonteco

import (
	"fmt"
	"image"
	"math"
	"os"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
)

// DitheringMode selects the removal operator applied to each glyph bitmap.
type DitheringMode string

const (
	// DitherPoints removes single pixels at quasi-random positions.
	DitherPoints DitheringMode = "point"
	// DitherShapes removes circles or squares fully covered by ink.
	DitherShapes DitheringMode = "shape"
	// DitherLines removes straight or curved strokes.
	DitherLines DitheringMode = "line"
)

// Options control the perforation pipeline. The zero value is not valid, use
// NewOptions for the defaults.
type Options struct {
	ReductionPercentage float64       // fraction of ink to remove, in [0,100]
	PointSize           int           // side of the removed square per point, at least 1
	DitheringMode       DitheringMode // removal operator
	RenderMode          TraceMode     // outline reconstruction mode
	NumLevels           int           // gray levels or grid size, 0 uses the mode default
	ScaleFactor         float64       // pixel to font unit scale, 0 derives it from unitsPerEm
	TestMode            bool          // process only the first 20 glyphs
	CoordinateBugMode   bool          // deprecated: reproduce the historical broken transform
	Shape               *ShapeOptions // shape removal parameters
	Line                *LineOptions  // line removal parameters
	Progress            func(int)     // completion callback, 0 to 100
	Warnings            func(string)  // per-glyph diagnostics
	DebugDir            string        // when set, write staged PNGs of the last processed glyph
	NameSuffix          string        // appended to the family and full font name
}

// NewOptions returns the default perforation options: remove 20% of ink as
// single points and trace the curves faithfully.
func NewOptions() *Options {
	return &Options{
		ReductionPercentage: 20.0,
		PointSize:           1,
		DitheringMode:       DitherPoints,
		RenderMode:          TraceOriginal,
		NameSuffix:          " Eco",
	}
}

// Validate checks the options, it does not touch any glyph.
func (opts *Options) Validate() error {
	if opts.ReductionPercentage < 0.0 || 100.0 < opts.ReductionPercentage {
		return fmt.Errorf("invalid reduction percentage: %v", opts.ReductionPercentage)
	}
	if opts.PointSize < 1 {
		return fmt.Errorf("invalid point size: %v", opts.PointSize)
	}
	switch opts.DitheringMode {
	case DitherPoints, DitherShapes, DitherLines:
	default:
		return fmt.Errorf("unknown dithering mode %q", opts.DitheringMode)
	}
	switch opts.RenderMode {
	case TraceOriginal, TraceSimplified, TraceOptimized, TraceOptimizedMasked:
	default:
		return fmt.Errorf("unknown render mode %q", opts.RenderMode)
	}
	if opts.Shape != nil {
		if err := opts.Shape.Validate(); err != nil {
			return err
		}
	}
	if opts.Line != nil {
		if err := opts.Line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// numLevelsOrDefault resolves NumLevels 0 to the recommended value of the
// render mode.
func (opts *Options) numLevelsOrDefault() int {
	if opts.NumLevels != 0 {
		return opts.NumLevels
	}
	if opts.RenderMode == TraceSimplified {
		return 4
	}
	return 100
}

// Perforate reads a TrueType font, perforates its glyphs and writes the
// result. Output files ending in .woff2 are written as WOFF2, all others as
// plain TTF. The output is written once, after all glyphs are processed.
func Perforate(input, output string, opts *Options) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	sfnt, err := ParseSFNT(data)
	if err != nil {
		return err
	}
	if err := perforate(sfnt, data, opts); err != nil {
		return err
	}

	var b []byte
	if strings.HasSuffix(strings.ToLower(output), ".woff2") {
		if b, err = sfnt.WriteWOFF2(); err != nil {
			return err
		}
	} else {
		b = sfnt.Write()
	}
	return os.WriteFile(output, b, 0644)
}

// PerforateSFNT perforates the glyphs of an already parsed font in place.
func PerforateSFNT(sfnt *SFNT, opts *Options) error {
	return perforate(sfnt, sfnt.Write(), opts)
}

func perforate(sfnt *SFNT, fontData []byte, opts *Options) error {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	warn := opts.Warnings
	if warn == nil {
		warn = func(string) {}
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int) {}
	}

	rec, err := NewReconstructor(opts.RenderMode, opts.numLevelsOrDefault(), warn)
	if err != nil {
		return err
	}
	rec.DebugDir = opts.DebugDir
	rast, err := NewRasterizer(sfnt, fontData)
	if err != nil {
		return err
	}

	// the blank shape substituted into unprocessed glyphs, taken from the
	// original space glyph before any outline changes
	blank := blankGlyphData(sfnt)

	scale := opts.ScaleFactor
	ascender := float64(sfnt.Hhea.Ascender)
	pointCount := int(math.Round(canvasSize * canvasSize * opts.ReductionPercentage / 100.0))

	numGlyphs := int(sfnt.NumGlyphs())
	limit := numGlyphs
	if opts.TestMode && 20 < limit {
		limit = 20
	}
	modified := make([]bool, numGlyphs)
	for i := 0; i < limit; i++ {
		progress(100 * i / limit)
		glyphID := uint16(i)

		img, err := rast.Rasterize(glyphID)
		if err != nil {
			warn(fmt.Sprintf("glyph %v: %v", glyphID, err))
			continue
		} else if img == nil {
			continue // no renderable character, blanked below
		}
		if opts.DebugDir != "" {
			writeDebugImage(opts.DebugDir, "1_initial.png", img)
		}

		// the point set is generated for every mode, shape and line removal
		// derive their own budgets from the glyph's ink coverage
		if 1 <= pointCount {
			points, err := SobolPoints(canvasSize, canvasSize, pointCount)
			if err != nil {
				return err
			}
			if opts.DitheringMode == DitherPoints {
				RemovePoints(img, points, opts.PointSize)
			}
		}
		switch opts.DitheringMode {
		case DitherShapes:
			shape := opts.Shape
			if shape == nil {
				shape = DefaultShapeOptions()
			}
			if _, err := RemoveShapes(img, opts.ReductionPercentage, shape); err != nil {
				warn(fmt.Sprintf("glyph %v: %v", glyphID, err))
				continue
			}
		case DitherLines:
			line := opts.Line
			if line == nil {
				line = DefaultLineOptions()
			}
			if err := RemoveLines(img, opts.ReductionPercentage, line); err != nil {
				warn(fmt.Sprintf("glyph %v: %v", glyphID, err))
				continue
			}
		}
		if opts.DebugDir != "" {
			writeDebugImage(opts.DebugDir, "2_dithered.png", img)
		}

		traced, err := rec.Trace(img)
		if err != nil {
			warn(fmt.Sprintf("glyph %v: %v", glyphID, err))
			continue
		}
		if opts.DebugDir != "" {
			debugOutline(opts.DebugDir, traced)
		}

		glyphScale := scale
		if glyphScale <= 0.0 {
			glyphScale = float64(sfnt.Head.UnitsPerEm) / float64(traced.Height)
		}
		outline, err := buildGlyph(traced, glyphScale, ascender, opts.CoordinateBugMode)
		if err != nil {
			warn(fmt.Sprintf("glyph %v: %v", glyphID, err))
			continue
		}
		if err := sfnt.SetGlyphOutline(glyphID, outline); err != nil {
			warn(err.Error())
			continue
		}
		modified[i] = true
	}

	// every glyph that was not perforated gets the blank shape, so that the
	// full font renders uniformly sparse
	for i := 0; i < numGlyphs; i++ {
		if !modified[i] {
			sfnt.setGlyphData(uint16(i), blank)
		}
	}
	progress(100)

	if opts.NameSuffix != "" {
		sfnt.AppendNameSuffix(opts.NameSuffix)
	}
	return nil
}

// blankGlyphData returns a copy of the space glyph's raw data, found through
// cmap or by its post name, or an empty record when the font has no space.
func blankGlyphData(sfnt *SFNT) []byte {
	glyphID := sfnt.GlyphIndex(' ')
	if glyphID == 0 {
		glyphID = sfnt.FindGlyphName("space")
	}
	if glyphID != 0 {
		if b := sfnt.Glyf.Get(glyphID); b != nil {
			blank := make([]byte, len(b))
			copy(blank, b)
			return blank
		}
	}
	return []byte{}
}

// pixelPoint is a quadratic outline point in bitmap pixel coordinates.
type pixelPoint struct {
	x, y    float64
	onCurve bool
}

// outlineContours converts traced path commands into quadratic point
// contours. Cubic segments are approximated by a single quadratic-like pair
// of off-curve points at three quarters towards each control point, and the
// duplicate closing point potrace emits is dropped.
func outlineContours(outline *Outline) [][]pixelPoint {
	var contours [][]pixelPoint
	var contour []pixelPoint
	var lastX, lastY float64
	for _, cmd := range outline.Commands {
		switch cmd.Op {
		case OpMoveTo:
			if 0 < len(contour) {
				contours = append(contours, contour)
			}
			contour = []pixelPoint{{cmd.X, cmd.Y, true}}
		case OpLineTo:
			contour = append(contour, pixelPoint{cmd.X, cmd.Y, true})
		case OpCubeTo:
			contour = append(contour,
				pixelPoint{lastX + 0.75*(cmd.CX1-lastX), lastY + 0.75*(cmd.CY1-lastY), false},
				pixelPoint{cmd.X + 0.75*(cmd.CX2-cmd.X), cmd.Y + 0.75*(cmd.CY2-cmd.Y), false},
				pixelPoint{cmd.X, cmd.Y, true})
		case OpClose:
			if 1 < len(contour) {
				last := contour[len(contour)-1]
				if last.onCurve && last.x == contour[0].x && last.y == contour[0].y {
					contour = contour[:len(contour)-1]
				}
			}
			if 0 < len(contour) {
				contours = append(contours, contour)
			}
			contour = nil
		}
		if cmd.Op != OpClose {
			lastX, lastY = cmd.X, cmd.Y
		}
	}
	if 0 < len(contour) {
		contours = append(contours, contour)
	}
	return contours
}

// buildGlyph transforms a traced outline from pixel space into font units:
// x scales, y scales, flips and shifts onto the baseline using the ascender.
// Coordinates outside the glyph coordinate range are an error.
func buildGlyph(outline *Outline, scale, ascender float64, legacy bool) (*GlyphOutline, error) {
	contours := outlineContours(outline)
	if legacy {
		return buildGlyphLegacy(contours, scale)
	}
	glyph := &GlyphOutline{Contours: make([][]OutlinePoint, 0, len(contours))}
	for _, contour := range contours {
		points := make([]OutlinePoint, len(contour))
		for i, p := range contour {
			x := math.Round(p.x * scale)
			y := math.Round(-p.y*scale + ascender)
			if x < math.MinInt16 || math.MaxInt16 < x || y < math.MinInt16 || math.MaxInt16 < y {
				return nil, fmt.Errorf("coordinate outside glyph coordinate range")
			}
			points[i] = OutlinePoint{int16(x), int16(y), p.onCurve}
		}
		glyph.Contours = append(glyph.Contours, points)
	}
	return glyph, nil
}

// buildGlyphLegacy reproduces the historical transform for old output
// compatibility. It walks the flattened point list through the aliasing index
// (n-i) mod n, so later points read already transformed earlier values, swaps
// x and y, truncates toward zero and never shifts onto the baseline. On-curve
// flags keep their position.
func buildGlyphLegacy(contours [][]pixelPoint, scale float64) (*GlyphOutline, error) {
	var flat [][2]float64
	var onCurve []bool
	lengths := make([]int, 0, len(contours))
	for _, contour := range contours {
		for _, p := range contour {
			flat = append(flat, [2]float64{p.x, p.y})
			onCurve = append(onCurve, p.onCurve)
		}
		lengths = append(lengths, len(contour))
	}

	n := len(flat)
	for i := 0; i < n; i++ {
		j := (n - i) % n
		x, y := flat[j][0], flat[j][1]
		flat[i] = [2]float64{math.Trunc(y * scale), math.Trunc(x * scale)}
	}

	glyph := &GlyphOutline{Contours: make([][]OutlinePoint, 0, len(contours))}
	k := 0
	for _, length := range lengths {
		points := make([]OutlinePoint, length)
		for i := 0; i < length; i++ {
			x, y := flat[k][0], flat[k][1]
			if x < math.MinInt16 || math.MaxInt16 < x || y < math.MinInt16 || math.MaxInt16 < y {
				return nil, fmt.Errorf("coordinate outside glyph coordinate range")
			}
			points[i] = OutlinePoint{int16(x), int16(y), onCurve[k]}
			k++
		}
		glyph.Contours = append(glyph.Contours, points)
	}
	return glyph, nil
}

// debugOutline draws the straight skeleton of a traced outline.
func debugOutline(dir string, outline *Outline) {
	img := newCanvas(outline.Width, outline.Height)
	var lastX, lastY, startX, startY int
	for _, cmd := range outline.Commands {
		switch cmd.Op {
		case OpMoveTo:
			startX, startY = int(cmd.X), int(cmd.Y)
			lastX, lastY = startX, startY
		case OpLineTo, OpCubeTo:
			x, y := int(cmd.X), int(cmd.Y)
			strokeLine(img, lastX, lastY, x, y, 1, 0, 0)
			lastX, lastY = x, y
		case OpClose:
			strokeLine(img, lastX, lastY, startX, startY, 1, 0, 0)
		}
	}
	writeDebugImage(dir, "6_path.png", img)
}

// Visualize renders the sample text "Aa" of a font at large size, perforates
// it with the given percentage of points and writes the result as PNG.
func Visualize(fontPath, outPath string, percentage float64) error {
	if percentage < 0.0 || 100.0 < percentage {
		return fmt.Errorf("invalid reduction percentage: %v", percentage)
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return err
	}
	ttf, err := freetype.ParseFont(data)
	if err != nil {
		return err
	}

	const size = 800
	const fontSize = 600
	img := newCanvas(size, size)
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(ttf)
	ctx.SetFontSize(fontSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.Black)
	face := truetype.NewFace(ttf, &truetype.Options{Size: fontSize, DPI: 72})
	ascent := int(face.Metrics().Ascent >> 6)
	if _, err := ctx.DrawString("Aa", freetype.Pt(10, 10+ascent)); err != nil {
		return err
	}

	count := int(math.Round(size * size * percentage / 100.0))
	if 1 <= count {
		points, err := SobolPoints(size, size, count)
		if err != nil {
			return err
		}
		RemovePoints(img, points, 1)
	}
	return savePNG(outPath, img)
}
