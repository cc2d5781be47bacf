package fonteco

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
)

// ShapeType selects the perforation shape for shape-based removal.
type ShapeType string

const (
	ShapeCircle ShapeType = "circle"
	ShapeSquare ShapeType = "square"
)

// SizePolicy selects how shape sizes are chosen.
type SizePolicy string

const (
	SizeFixed   SizePolicy = "fixed"
	SizeRandom  SizePolicy = "random"
	SizeBiggest SizePolicy = "biggest"
)

// LineType selects the stroke form for line-based removal.
type LineType string

const (
	LineStraight LineType = "straight"
	LineCurved   LineType = "curved"
)

// LinePlacement selects how strokes are laid out over the canvas.
type LinePlacement string

const (
	LineParallel LinePlacement = "parallel"
	LineRandom   LinePlacement = "random"
)

// ShapeOptions configures shape-based removal.
type ShapeOptions struct {
	Type   ShapeType
	Size   SizePolicy
	Fixed  int // side or diameter in pixels when Size is fixed
	Margin int // minimum distance between shapes and to the canvas edge
}

// DefaultShapeOptions returns the shape removal defaults.
func DefaultShapeOptions() *ShapeOptions {
	return &ShapeOptions{
		Type:   ShapeCircle,
		Size:   SizeFixed,
		Fixed:  4,
		Margin: 2,
	}
}

// Validate returns an error if any option is out of range.
func (opts *ShapeOptions) Validate() error {
	switch opts.Type {
	case ShapeCircle, ShapeSquare:
	default:
		return fmt.Errorf("unknown shape type %q", opts.Type)
	}
	switch opts.Size {
	case SizeFixed, SizeRandom, SizeBiggest:
	default:
		return fmt.Errorf("unknown shape size policy %q", opts.Size)
	}
	if opts.Size == SizeFixed && opts.Fixed < 1 {
		return fmt.Errorf("invalid fixed shape size %d", opts.Fixed)
	}
	if opts.Margin < 0 {
		return fmt.Errorf("invalid shape margin %d", opts.Margin)
	}
	return nil
}

// PlacedShape records a shape painted by RemoveShapes.
type PlacedShape struct {
	X, Y, Size int
}

// RemoveShapes paints non-overlapping shapes of background over the foreground
// of img. The number of placement attempts is a percentage of the current
// foreground pixel count, candidate centers are drawn from the shuffled
// foreground. Shapes must fit within the canvas with the configured margin,
// must not cover background pixels, and keep at least margin distance between
// each other. Placements that do not fit are skipped.
func RemoveShapes(img *image.Gray, percentage float64, opts *ShapeOptions) ([]PlacedShape, error) {
	if opts == nil {
		opts = DefaultShapeOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if percentage < 0.0 || 100.0 < percentage {
		return nil, fmt.Errorf("invalid percentage %v, must be in [0,100]", percentage)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var foreground []Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*img.Stride+x] < 128 {
				foreground = append(foreground, Point{x, y})
			}
		}
	}
	if len(foreground) == 0 {
		return nil, nil
	}
	n := int(float64(len(foreground)) * percentage / 100.0)
	rand.Shuffle(len(foreground), func(i, j int) {
		foreground[i], foreground[j] = foreground[j], foreground[i]
	})

	maxSize := w
	if h < w {
		maxSize = h
	}
	maxSize /= 4
	if maxSize < 1 {
		maxSize = 1
	}

	var placed []PlacedShape
	for _, c := range foreground {
		if n <= len(placed) {
			break
		}
		size := 0
		switch opts.Size {
		case SizeFixed:
			size = opts.Fixed
			if !shapeFits(img, placed, c, size, opts) {
				continue
			}
		case SizeRandom:
			biggest := largestShape(img, placed, c, maxSize, opts)
			if biggest == 0 {
				continue
			}
			size = 1 + rand.Intn(biggest)
		case SizeBiggest:
			size = largestShape(img, placed, c, maxSize, opts)
			if size == 0 {
				continue
			}
		}
		paintShape(img, c, size, opts.Type)
		placed = append(placed, PlacedShape{c.X, c.Y, size})
	}
	return placed, nil
}

func largestShape(img *image.Gray, placed []PlacedShape, c Point, maxSize int, opts *ShapeOptions) int {
	size := 0
	for s := 1; s <= maxSize && shapeFits(img, placed, c, s, opts); s++ {
		size = s
	}
	return size
}

func shapeFits(img *image.Gray, placed []PlacedShape, c Point, size int, opts *ShapeOptions) bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	half := size / 2
	if c.X-half-opts.Margin < 0 || w <= c.X-half+size+opts.Margin-1 ||
		c.Y-half-opts.Margin < 0 || h <= c.Y-half+size+opts.Margin-1 {
		return false
	}
	for _, p := range placed {
		dx, dy := float64(c.X-p.X), float64(c.Y-p.Y)
		if math.Sqrt(dx*dx+dy*dy) < float64(opts.Margin)+float64(size)/2.0+float64(p.Size)/2.0 {
			return false
		}
	}
	r := float64(size) / 2.0
	for y := c.Y - half; y < c.Y-half+size; y++ {
		for x := c.X - half; x < c.X-half+size; x++ {
			if opts.Type == ShapeCircle {
				dx, dy := float64(x-c.X), float64(y-c.Y)
				if r*r < dx*dx+dy*dy {
					continue
				}
			}
			if 128 <= img.Pix[y*img.Stride+x] {
				return false
			}
		}
	}
	return true
}

func paintShape(img *image.Gray, c Point, size int, typ ShapeType) {
	half := size / 2
	r := float64(size) / 2.0
	for y := c.Y - half; y < c.Y-half+size; y++ {
		for x := c.X - half; x < c.X-half+size; x++ {
			if typ == ShapeCircle {
				dx, dy := float64(x-c.X), float64(y-c.Y)
				if r*r < dx*dx+dy*dy {
					continue
				}
			}
			img.SetGray(x, y, color.Gray{0xFF})
		}
	}
}

// LineOptions configures line-based removal.
type LineOptions struct {
	Type      LineType
	Placement LinePlacement
	Count     int     // number of strokes, zero derives it from the foreground
	Width     int     // stroke width in pixels
	Margin    int     // untouched band along the canvas edges
	Curvature float64 // bow of curved strokes as a fraction of their length
}

// DefaultLineOptions returns the line removal defaults.
func DefaultLineOptions() *LineOptions {
	return &LineOptions{
		Type:      LineStraight,
		Placement: LineParallel,
		Width:     2,
		Margin:    2,
		Curvature: 0.2,
	}
}

// Validate returns an error if any option is out of range.
func (opts *LineOptions) Validate() error {
	switch opts.Type {
	case LineStraight, LineCurved:
	default:
		return fmt.Errorf("unknown line type %q", opts.Type)
	}
	switch opts.Placement {
	case LineParallel, LineRandom:
	default:
		return fmt.Errorf("unknown line placement %q", opts.Placement)
	}
	if opts.Count < 0 {
		return fmt.Errorf("invalid line count %d", opts.Count)
	}
	if opts.Width < 1 {
		return fmt.Errorf("invalid line width %d", opts.Width)
	}
	if opts.Margin < 0 {
		return fmt.Errorf("invalid line margin %d", opts.Margin)
	}
	if opts.Curvature < 0.0 {
		return fmt.Errorf("invalid line curvature %v", opts.Curvature)
	}
	return nil
}

// RemoveLines paints strokes of background across img. Parallel placement
// spreads the strokes evenly at a shared random orientation, random placement
// draws each stroke through a random point at a random angle. When Count is
// zero the number of strokes is derived from the foreground pixel count and
// the percentage, so that sparse glyphs receive fewer strokes.
func RemoveLines(img *image.Gray, percentage float64, opts *LineOptions) error {
	if opts == nil {
		opts = DefaultLineOptions()
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if percentage < 0.0 || 100.0 < percentage {
		return fmt.Errorf("invalid percentage %v, must be in [0,100]", percentage)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := opts.Count
	if n == 0 {
		foreground := 0
		for _, v := range img.Pix {
			if v < 128 {
				foreground++
			}
		}
		if foreground == 0 {
			return nil
		}
		// Each full-width stroke removes on the order of width*min(w,h)
		// pixels.
		strokeArea := opts.Width * w
		if h < w {
			strokeArea = opts.Width * h
		}
		n = int(float64(foreground) * percentage / 100.0 / float64(strokeArea))
		if n < 1 {
			n = 1
		}
	}

	length := float64(w + h)
	switch opts.Placement {
	case LineParallel:
		angle := rand.Float64() * math.Pi
		dirX, dirY := math.Cos(angle), math.Sin(angle)
		normX, normY := -dirY, dirX
		cx, cy := float64(w)/2.0, float64(h)/2.0
		extent := math.Abs(normX)*float64(w) + math.Abs(normY)*float64(h)
		for i := 0; i < n; i++ {
			offset := (float64(i+1)/float64(n+1) - 0.5) * extent
			px, py := cx+offset*normX, cy+offset*normY
			strokeAt(img, px, py, dirX, dirY, length, opts)
		}
	case LineRandom:
		for i := 0; i < n; i++ {
			px := float64(opts.Margin) + rand.Float64()*float64(w-2*opts.Margin)
			py := float64(opts.Margin) + rand.Float64()*float64(h-2*opts.Margin)
			angle := rand.Float64() * math.Pi
			strokeAt(img, px, py, math.Cos(angle), math.Sin(angle), length, opts)
		}
	}
	return nil
}

// strokeAt paints one stroke through (px,py) along (dirX,dirY), straight or
// bowed by the curvature towards the stroke normal.
func strokeAt(img *image.Gray, px, py, dirX, dirY, length float64, opts *LineOptions) {
	x0, y0 := px-dirX*length, py-dirY*length
	x1, y1 := px+dirX*length, py+dirY*length
	if opts.Type == LineStraight {
		strokeLine(img, int(x0), int(y0), int(x1), int(y1), opts.Width, opts.Margin, 0xFF)
		return
	}
	bow := opts.Curvature * 2.0 * length
	cx := (x0+x1)/2.0 - dirY*bow
	cy := (y0+y1)/2.0 + dirX*bow
	steps := int(2.0*length) + 1
	prevX, prevY := int(x0), int(y0)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		u := 1.0 - t
		x := u*u*x0 + 2.0*u*t*cx + t*t*x1
		y := u*u*y0 + 2.0*u*t*cy + t*t*y1
		strokeLine(img, prevX, prevY, int(x), int(y), opts.Width, opts.Margin, 0xFF)
		prevX, prevY = int(x), int(y)
	}
}
