package fonteco

import (
	"image"
	"math"
	"testing"

	"github.com/tdewolff/test"
)

// inkBlock returns a white canvas with a centered square of ink.
func inkBlock(size, border int) *image.Gray {
	img := newCanvas(size, size)
	for y := border; y < size-border; y++ {
		for x := border; x < size-border; x++ {
			img.Pix[y*img.Stride+x] = 0
		}
	}
	return img
}

func TestRemoveShapes(t *testing.T) {
	img := inkBlock(128, 32)
	before := cloneGray(img)
	opts := DefaultShapeOptions()
	placed, err := RemoveShapes(img, 50.0, opts)
	test.Error(t, err)
	test.That(t, 0 < len(placed), "expected at least one placed shape")
	test.That(t, countWhite(before) < countWhite(img), "shapes must remove ink")

	// the margin band along the canvas edges stays untouched
	band := 0
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if y < opts.Margin || 128-opts.Margin <= y || x < opts.Margin || 128-opts.Margin <= x {
				if img.Pix[y*img.Stride+x] != before.Pix[y*before.Stride+x] {
					band++
				}
			}
		}
	}
	test.T(t, band, 0)

	for _, p := range placed {
		test.T(t, p.Size, opts.Fixed)
		test.That(t, before.Pix[p.Y*before.Stride+p.X] < 128, "shape center must lie on ink")
	}
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			dx := float64(placed[i].X - placed[j].X)
			dy := float64(placed[i].Y - placed[j].Y)
			minDist := float64(opts.Margin) + float64(placed[i].Size)/2.0 + float64(placed[j].Size)/2.0
			test.That(t, minDist <= math.Sqrt(dx*dx+dy*dy), "shapes must keep their distance")
		}
	}
}

func TestRemoveShapesBiggest(t *testing.T) {
	img := inkBlock(128, 16)
	placed, err := RemoveShapes(img, 10.0, &ShapeOptions{
		Type:   ShapeSquare,
		Size:   SizeBiggest,
		Margin: 2,
	})
	test.Error(t, err)
	test.That(t, 0 < len(placed), "expected at least one placed shape")
	for _, p := range placed {
		test.That(t, 1 <= p.Size && p.Size <= 32, "shape size out of range:", p.Size)
	}
}

func TestRemoveShapesEmpty(t *testing.T) {
	img := newCanvas(64, 64)
	placed, err := RemoveShapes(img, 50.0, nil)
	test.Error(t, err)
	test.T(t, len(placed), 0)
	test.T(t, countWhite(img), 64*64)
}

func TestRemoveShapesErrors(t *testing.T) {
	img := inkBlock(64, 16)
	_, err := RemoveShapes(img, 50.0, &ShapeOptions{Type: "hexagon", Size: SizeFixed, Fixed: 4})
	test.That(t, err != nil, "expected error for unknown shape type")
	_, err = RemoveShapes(img, 50.0, &ShapeOptions{Type: ShapeCircle, Size: "huge"})
	test.That(t, err != nil, "expected error for unknown size policy")
	_, err = RemoveShapes(img, 50.0, &ShapeOptions{Type: ShapeCircle, Size: SizeFixed, Fixed: 0})
	test.That(t, err != nil, "expected error for zero fixed size")
	_, err = RemoveShapes(img, 101.0, DefaultShapeOptions())
	test.That(t, err != nil, "expected error for percentage over 100")
}

func TestRemoveLines(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64)) // all ink
	opts := DefaultLineOptions()
	test.Error(t, RemoveLines(img, 20.0, opts))
	test.That(t, 0 < countWhite(img), "lines must remove ink")

	// the margin band along the canvas edges stays untouched
	band := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if y < opts.Margin || 64-opts.Margin <= y || x < opts.Margin || 64-opts.Margin <= x {
				if img.Pix[y*img.Stride+x] != 0 {
					band++
				}
			}
		}
	}
	test.T(t, band, 0)
}

func TestRemoveLinesRandom(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	err := RemoveLines(img, 20.0, &LineOptions{
		Type:      LineCurved,
		Placement: LineRandom,
		Count:     3,
		Width:     3,
		Margin:    2,
		Curvature: 0.0, // degenerates to a straight stroke through the anchor
	})
	test.Error(t, err)
	test.That(t, 0 < countWhite(img), "lines must remove ink")
}

func TestRemoveLinesCurved(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	err := RemoveLines(img, 30.0, &LineOptions{
		Type:      LineCurved,
		Placement: LineParallel,
		Width:     2,
		Margin:    2,
		Curvature: 0.2,
	})
	test.Error(t, err)
}

func TestRemoveLinesEmpty(t *testing.T) {
	img := newCanvas(64, 64)
	test.Error(t, RemoveLines(img, 20.0, nil)) // zero count derives from no ink
	test.T(t, countWhite(img), 64*64)
}

func TestRemoveLinesErrors(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	err := RemoveLines(img, 20.0, &LineOptions{Type: "zigzag", Placement: LineParallel, Width: 2})
	test.That(t, err != nil, "expected error for unknown line type")
	err = RemoveLines(img, 20.0, &LineOptions{Type: LineStraight, Placement: "spiral", Width: 2})
	test.That(t, err != nil, "expected error for unknown placement")
	err = RemoveLines(img, 20.0, &LineOptions{Type: LineStraight, Placement: LineParallel, Width: 0})
	test.That(t, err != nil, "expected error for zero width")
	err = RemoveLines(img, 20.0, &LineOptions{Type: LineStraight, Placement: LineParallel, Width: 2, Count: -1})
	test.That(t, err != nil, "expected error for negative count")
	err = RemoveLines(img, -0.5, DefaultLineOptions())
	test.That(t, err != nil, "expected error for negative percentage")
}
