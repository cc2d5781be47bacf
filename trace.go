package fonteco

import (
	"fmt"
	"image"
	"math"

	"github.com/dennwc/gotrace"
)

// TraceMode selects how traced curves are turned into glyph outlines.
type TraceMode string

const (
	// TraceOriginal reproduces the traced curves faithfully with lines and
	// cubic curves.
	TraceOriginal TraceMode = "original"
	// TraceSimplified quantizes the bitmap to a few gray levels before
	// tracing.
	TraceSimplified TraceMode = "simplified"
	// TraceOptimized collapses all control points onto a coarse grid and
	// connects the cell centroids by a nearest-neighbor path.
	TraceOptimized TraceMode = "optimized"
	// TraceOptimizedMasked is TraceOptimized restricted to the dilated
	// coverage mask of the traced curves, long or mask-crossing jumps start
	// a new contour.
	TraceOptimizedMasked TraceMode = "optimized_masked"
)

// PathOp is an outline path command operator.
type PathOp int

const (
	OpMoveTo PathOp = iota
	OpLineTo
	OpCubeTo
	OpClose
)

// PathCommand is a single outline path command. CX1, CY1, CX2 and CY2 are only
// used by OpCubeTo.
type PathCommand struct {
	Op                 PathOp
	CX1, CY1, CX2, CY2 float64
	X, Y               float64
}

// Outline is a traced glyph outline in bitmap pixel coordinates, the origin is
// the top-left corner with y growing downwards.
type Outline struct {
	Commands []PathCommand
	Width    int
	Height   int
}

// Empty returns true if the outline has no path commands.
func (outline *Outline) Empty() bool {
	return len(outline.Commands) == 0
}

func (outline *Outline) moveTo(x, y float64) {
	outline.Commands = append(outline.Commands, PathCommand{Op: OpMoveTo, X: x, Y: y})
}

func (outline *Outline) lineTo(x, y float64) {
	outline.Commands = append(outline.Commands, PathCommand{Op: OpLineTo, X: x, Y: y})
}

func (outline *Outline) cubeTo(cx1, cy1, cx2, cy2, x, y float64) {
	outline.Commands = append(outline.Commands, PathCommand{Op: OpCubeTo, CX1: cx1, CY1: cy1, CX2: cx2, CY2: cy2, X: x, Y: y})
}

func (outline *Outline) close() {
	outline.Commands = append(outline.Commands, PathCommand{Op: OpClose})
}

// Reconstructor traces perforated glyph bitmaps back into outlines.
type Reconstructor struct {
	Mode      TraceMode
	NumLevels int
	Warn      func(string)
	DebugDir  string
}

// NewReconstructor returns a reconstructor for the given trace mode. NumLevels
// is the number of gray levels for TraceSimplified and the grid size for the
// optimized modes, it is ignored by TraceOriginal.
func NewReconstructor(mode TraceMode, numLevels int, warn func(string)) (*Reconstructor, error) {
	switch mode {
	case TraceOriginal, TraceSimplified, TraceOptimized, TraceOptimizedMasked:
	default:
		return nil, fmt.Errorf("unknown render mode %q", mode)
	}
	if mode == TraceSimplified && (numLevels < 2 || 256 < numLevels) {
		return nil, fmt.Errorf("invalid number of levels %d, must be in [2,256]", numLevels)
	} else if (mode == TraceOptimized || mode == TraceOptimizedMasked) && numLevels < 2 {
		return nil, fmt.Errorf("invalid grid size %d, must be at least 2", numLevels)
	}
	if warn == nil {
		warn = func(string) {}
	}
	return &Reconstructor{
		Mode:      mode,
		NumLevels: numLevels,
		Warn:      warn,
	}, nil
}

// Trace vectorizes the glyph bitmap into an outline. Ink must be dark on a
// light background. Canvases larger than 512 pixels in either direction are
// downscaled to 256 by 256 before tracing. An empty bitmap yields an empty
// outline, not an error.
func (rec *Reconstructor) Trace(img *image.Gray) (*Outline, error) {
	work := cloneGray(img)
	invertGray(work)
	if b := work.Bounds(); 512 < b.Dx() || 512 < b.Dy() {
		work = downscaleArea(work, 256, 256)
	}
	if rec.Mode == TraceSimplified {
		if rec.NumLevels < 4 {
			rec.Warn(fmt.Sprintf("simplifying to %d levels may produce blank glyphs", rec.NumLevels))
		}
		var err error
		if work, err = SimplifyBitmap(work, rec.NumLevels); err != nil {
			return nil, err
		}
		if rec.DebugDir != "" {
			writeDebugImage(rec.DebugDir, "3_simplified.png", work)
		}
	}
	bin := binarize(work, 128)
	if rec.DebugDir != "" {
		writeDebugImage(rec.DebugDir, "4_binary.png", bin)
	}

	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	bm := gotrace.NewBitmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.Pix[y*bin.Stride+x] != 0 {
				bm.Set(x, y, true)
			}
		}
	}
	paths, err := gotrace.Trace(bm, nil)
	if err != nil {
		return nil, fmt.Errorf("trace: %v", err)
	}

	switch rec.Mode {
	case TraceOptimized:
		return rec.optimizedOutline(paths, w, h), nil
	case TraceOptimizedMasked:
		return rec.maskedOutline(paths, w, h), nil
	}
	return originalOutline(paths, w, h), nil
}

// curveStart returns the start point of a traced curve, which potrace stores
// as the end point of its last segment.
func curveStart(curve []gotrace.Segment) gotrace.Point {
	return curve[len(curve)-1].Pnt[2]
}

// originalOutline converts each traced curve into a closed contour, corner
// segments become two lines and smooth segments become cubic curves.
func originalOutline(paths []gotrace.Path, width, height int) *Outline {
	outline := &Outline{Width: width, Height: height}
	for _, path := range paths {
		if len(path.Curve) == 0 {
			continue
		}
		start := curveStart(path.Curve)
		outline.moveTo(start.X, start.Y)
		for _, seg := range path.Curve {
			if seg.Type == gotrace.TypeCorner {
				outline.lineTo(seg.Pnt[1].X, seg.Pnt[1].Y)
				outline.lineTo(seg.Pnt[2].X, seg.Pnt[2].Y)
			} else {
				outline.cubeTo(seg.Pnt[0].X, seg.Pnt[0].Y, seg.Pnt[1].X, seg.Pnt[1].Y, seg.Pnt[2].X, seg.Pnt[2].Y)
			}
		}
		outline.close()
	}
	return outline
}

// controlPoints pools the control points of all traced curves, including each
// curve's start point.
func controlPoints(paths []gotrace.Path) [][2]float64 {
	var points [][2]float64
	for _, path := range paths {
		if len(path.Curve) == 0 {
			continue
		}
		start := curveStart(path.Curve)
		points = append(points, [2]float64{start.X, start.Y})
		for _, seg := range path.Curve {
			if seg.Type == gotrace.TypeCorner {
				points = append(points, [2]float64{seg.Pnt[1].X, seg.Pnt[1].Y})
				points = append(points, [2]float64{seg.Pnt[2].X, seg.Pnt[2].Y})
			} else {
				points = append(points, [2]float64{seg.Pnt[0].X, seg.Pnt[0].Y})
				points = append(points, [2]float64{seg.Pnt[1].X, seg.Pnt[1].Y})
				points = append(points, [2]float64{seg.Pnt[2].X, seg.Pnt[2].Y})
			}
		}
	}
	return points
}

// gridCentroids snaps points onto a grid by grid cells over their bounding box
// and returns the centroid of each occupied cell, in first-encounter order.
func gridCentroids(points [][2]float64, grid int) [][2]float64 {
	minX, minY := points[0][0], points[0][1]
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	cell := func(v, min, max float64) int {
		if max <= min {
			return 0
		}
		c := int((v - min) / (max - min) * float64(grid))
		if grid <= c {
			c = grid - 1
		}
		return c
	}

	type accum struct {
		x, y float64
		n    int
	}
	slot := map[int]int{}
	var cells []accum
	for _, p := range points {
		key := cell(p[1], minY, maxY)*grid + cell(p[0], minX, maxX)
		i, ok := slot[key]
		if !ok {
			i = len(cells)
			slot[key] = i
			cells = append(cells, accum{})
		}
		cells[i].x += p[0]
		cells[i].y += p[1]
		cells[i].n++
	}
	centroids := make([][2]float64, len(cells))
	for i, c := range cells {
		centroids[i] = [2]float64{c.x / float64(c.n), c.y / float64(c.n)}
	}
	return centroids
}

// optimizedOutline pools all control points, collapses them onto a coarse grid
// and connects the cell centroids with a single greedy nearest-neighbor
// contour.
func (rec *Reconstructor) optimizedOutline(paths []gotrace.Path, width, height int) *Outline {
	if rec.NumLevels < 50 {
		rec.Warn(fmt.Sprintf("grid size %d may produce overly coarse outlines, 100 or more is recommended", rec.NumLevels))
	}
	outline := &Outline{Width: width, Height: height}
	points := controlPoints(paths)
	if len(points) == 0 {
		return outline
	}
	centroids := gridCentroids(points, rec.NumLevels)

	visited := make([]bool, len(centroids))
	visited[0] = true
	cur := 0
	outline.moveTo(centroids[0][0], centroids[0][1])
	for n := 1; n < len(centroids); n++ {
		best, bestD := -1, math.MaxFloat64
		for j, c := range centroids {
			if !visited[j] {
				if d := distSq(centroids[cur][0], centroids[cur][1], c[0], c[1]); d < bestD {
					best, bestD = j, d
				}
			}
		}
		visited[best] = true
		cur = best
		outline.lineTo(centroids[best][0], centroids[best][1])
	}
	outline.close()
	return outline
}

// maskedOutline is optimizedOutline restricted to the coverage of the traced
// curves. A mask is built by XOR-filling each curve's control polygon and
// dilating it twice, centroids outside the mask are dropped and the walk never
// takes a segment that leaves the mask or jumps more than twenty percent of
// the canvas diagonal, it starts a new contour instead.
func (rec *Reconstructor) maskedOutline(paths []gotrace.Path, width, height int) *Outline {
	if rec.NumLevels < 50 {
		rec.Warn(fmt.Sprintf("grid size %d may produce overly coarse outlines, 100 or more is recommended", rec.NumLevels))
	}
	outline := &Outline{Width: width, Height: height}
	points := controlPoints(paths)
	if len(points) == 0 {
		return outline
	}

	mask := image.NewGray(image.Rect(0, 0, width, height))
	for _, path := range paths {
		if len(path.Curve) == 0 {
			continue
		}
		var poly [][2]float64
		start := curveStart(path.Curve)
		poly = append(poly, [2]float64{start.X, start.Y})
		for _, seg := range path.Curve {
			if seg.Type == gotrace.TypeCorner {
				poly = append(poly, [2]float64{seg.Pnt[1].X, seg.Pnt[1].Y})
				poly = append(poly, [2]float64{seg.Pnt[2].X, seg.Pnt[2].Y})
			} else {
				poly = append(poly, [2]float64{seg.Pnt[0].X, seg.Pnt[0].Y})
				poly = append(poly, [2]float64{seg.Pnt[1].X, seg.Pnt[1].Y})
				poly = append(poly, [2]float64{seg.Pnt[2].X, seg.Pnt[2].Y})
			}
		}
		xorMask(mask, fillPolygon(width, height, poly))
	}
	mask = dilate3x3(mask, 2)
	if rec.DebugDir != "" {
		writeDebugImage(rec.DebugDir, "5_mask.png", mask)
	}

	centroids := gridCentroids(points, rec.NumLevels)
	kept := make([][2]float64, 0, len(centroids))
	for _, c := range centroids {
		if maskNear(mask, int(c[0]), int(c[1])) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		rec.Warn("mask filtering removed all points, keeping unfiltered set")
		kept = centroids
	}

	maxDSq := 0.2 * math.Hypot(float64(width), float64(height))
	maxDSq *= maxDSq
	visited := make([]bool, len(kept))
	visited[0] = true
	cur := 0
	contours := [][]int{{0}}
	for n := 1; n < len(kept); n++ {
		accepted := -1
		rejected := make([]bool, len(kept))
		for {
			best, bestD := -1, math.MaxFloat64
			for j, c := range kept {
				if !visited[j] && !rejected[j] {
					if d := distSq(kept[cur][0], kept[cur][1], c[0], c[1]); d < bestD {
						best, bestD = j, d
					}
				}
			}
			if best == -1 || maxDSq < bestD {
				break
			}
			if crossesZero(mask, int(kept[cur][0]), int(kept[cur][1]), int(kept[best][0]), int(kept[best][1])) {
				rejected[best] = true
				continue
			}
			accepted = best
			break
		}
		if accepted == -1 {
			for j := range kept {
				if !visited[j] {
					accepted = j
					break
				}
			}
			visited[accepted] = true
			cur = accepted
			contours = append(contours, []int{accepted})
			continue
		}
		visited[accepted] = true
		cur = accepted
		contours[len(contours)-1] = append(contours[len(contours)-1], accepted)
	}

	for _, contour := range contours {
		outline.moveTo(kept[contour[0]][0], kept[contour[0]][1])
		for _, i := range contour[1:] {
			outline.lineTo(kept[i][0], kept[i][1])
		}
		outline.close()
	}
	return outline
}

// maskNear reports whether any mask pixel in the 3x3 neighborhood of (x,y) is
// set.
func maskNear(mask *image.Gray, x, y int) bool {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if 0 <= nx && nx < w && 0 <= ny && ny < h && mask.Pix[ny*mask.Stride+nx] != 0 {
				return true
			}
		}
	}
	return false
}
