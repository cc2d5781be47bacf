package fonteco

import (
	"testing"

	"github.com/tdewolff/test"
)

func countOps(outline *Outline, op PathOp) int {
	n := 0
	for _, cmd := range outline.Commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// wellFormed checks that the commands form a sequence of closed contours.
func wellFormed(t *testing.T, outline *Outline) {
	open := false
	for _, cmd := range outline.Commands {
		switch cmd.Op {
		case OpMoveTo:
			test.That(t, !open, "moveTo inside an open contour")
			open = true
		case OpLineTo, OpCubeTo:
			test.That(t, open, "lineTo outside a contour")
		case OpClose:
			test.That(t, open, "close outside a contour")
			open = false
		}
	}
	test.That(t, !open, "unclosed trailing contour")
}

func TestNewReconstructor(t *testing.T) {
	rec, err := NewReconstructor(TraceOriginal, 0, nil)
	test.Error(t, err)
	test.T(t, rec.Mode, TraceOriginal)
	test.That(t, rec.Warn != nil, "nil warn must be replaced")
}

func TestNewReconstructorErrors(t *testing.T) {
	var tests = []struct {
		mode      TraceMode
		numLevels int
	}{
		{"fancy", 4},
		{TraceSimplified, 1},
		{TraceSimplified, 257},
		{TraceOptimized, 1},
		{TraceOptimizedMasked, 0},
	}
	for _, tt := range tests {
		_, err := NewReconstructor(tt.mode, tt.numLevels, nil)
		test.That(t, err != nil, "expected error for", tt.mode, tt.numLevels)
	}
}

func TestTraceEmpty(t *testing.T) {
	rec, err := NewReconstructor(TraceOriginal, 0, nil)
	test.Error(t, err)
	outline, err := rec.Trace(newCanvas(64, 64))
	test.Error(t, err)
	test.That(t, outline.Empty(), "white canvas must trace to an empty outline")
	test.T(t, outline.Width, 64)
	test.T(t, outline.Height, 64)
}

func TestTraceOriginalSquare(t *testing.T) {
	rec, err := NewReconstructor(TraceOriginal, 0, nil)
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(100, 20))
	test.Error(t, err)
	test.That(t, !outline.Empty(), "square must trace to an outline")
	wellFormed(t, outline)
	test.T(t, countOps(outline, OpMoveTo), 1)
	test.T(t, countOps(outline, OpClose), 1)
	test.T(t, countOps(outline, OpCubeTo), 0) // right angles are corners
	test.That(t, 4 <= countOps(outline, OpLineTo), "expected two lines per corner")

	minX, minY := 100.0, 100.0
	maxX, maxY := 0.0, 0.0
	for _, cmd := range outline.Commands {
		if cmd.Op == OpClose {
			continue
		}
		if cmd.X < minX {
			minX = cmd.X
		}
		if maxX < cmd.X {
			maxX = cmd.X
		}
		if cmd.Y < minY {
			minY = cmd.Y
		}
		if maxY < cmd.Y {
			maxY = cmd.Y
		}
	}
	test.That(t, 50.0 <= maxX-minX && maxX-minX <= 70.0, "outline width off:", maxX-minX)
	test.That(t, 50.0 <= maxY-minY && maxY-minY <= 70.0, "outline height off:", maxY-minY)
}

func TestTraceSimplifiedBlank(t *testing.T) {
	var warnings []string
	rec, err := NewReconstructor(TraceSimplified, 2, func(msg string) {
		warnings = append(warnings, msg)
	})
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(100, 20))
	test.Error(t, err)
	test.That(t, outline.Empty(), "two levels quantize everything to background")
	test.T(t, len(warnings), 1)
}

func TestTraceSimplified(t *testing.T) {
	var warnings []string
	rec, err := NewReconstructor(TraceSimplified, 4, func(msg string) {
		warnings = append(warnings, msg)
	})
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(100, 20))
	test.Error(t, err)
	test.That(t, !outline.Empty(), "four levels must keep the square")
	test.T(t, len(warnings), 0)
	wellFormed(t, outline)
}

func TestTraceOptimized(t *testing.T) {
	var warnings []string
	rec, err := NewReconstructor(TraceOptimized, 8, func(msg string) {
		warnings = append(warnings, msg)
	})
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(100, 20))
	test.Error(t, err)
	test.That(t, !outline.Empty(), "square must trace to an outline")
	test.T(t, len(warnings), 1) // coarse grid
	wellFormed(t, outline)
	test.T(t, countOps(outline, OpMoveTo), 1)
	test.T(t, countOps(outline, OpClose), 1)
	test.T(t, countOps(outline, OpCubeTo), 0)
	test.That(t, len(outline.Commands) <= 8*8+2, "at most one point per grid cell")

	for _, cmd := range outline.Commands {
		if cmd.Op != OpClose {
			test.That(t, 0.0 <= cmd.X && cmd.X <= 100.0, "x out of canvas:", cmd.X)
			test.That(t, 0.0 <= cmd.Y && cmd.Y <= 100.0, "y out of canvas:", cmd.Y)
		}
	}
}

func TestTraceOptimizedMasked(t *testing.T) {
	var warnings []string
	rec, err := NewReconstructor(TraceOptimizedMasked, 50, func(msg string) {
		warnings = append(warnings, msg)
	})
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(100, 20))
	test.Error(t, err)
	test.That(t, !outline.Empty(), "square must trace to an outline")
	test.T(t, len(warnings), 0)
	wellFormed(t, outline)
	test.T(t, countOps(outline, OpCubeTo), 0)
}

func TestTraceDownscale(t *testing.T) {
	rec, err := NewReconstructor(TraceOriginal, 0, nil)
	test.Error(t, err)
	outline, err := rec.Trace(inkBlock(600, 100))
	test.Error(t, err)
	test.T(t, outline.Width, 256)
	test.T(t, outline.Height, 256)
	test.That(t, !outline.Empty(), "downscaled square must still trace")
}
