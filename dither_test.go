package fonteco

import (
	"image"
	"testing"

	"github.com/tdewolff/test"
)

func countWhite(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v == 0xFF {
			n++
		}
	}
	return n
}

func countInk(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v < 128 {
			n++
		}
	}
	return n
}

func TestSobolPoints(t *testing.T) {
	points, err := SobolPoints(512, 512, 1000)
	test.Error(t, err)
	test.T(t, len(points), 512) // rounded down to a power of two
	for _, p := range points {
		test.That(t, 0 <= p.X && p.X < 512, "point outside canvas:", p)
		test.That(t, 0 <= p.Y && p.Y < 512, "point outside canvas:", p)
	}

	points, err = SobolPoints(512, 512, 1)
	test.Error(t, err)
	test.T(t, len(points), 1)
}

func TestSobolPointsStratified(t *testing.T) {
	// the first 512 points on a 512 wide canvas hit every column and every
	// row exactly once, regardless of the random digital shift
	points, err := SobolPoints(512, 512, 512)
	test.Error(t, err)
	xs, ys := make(map[int]bool), make(map[int]bool)
	for _, p := range points {
		xs[p.X] = true
		ys[p.Y] = true
	}
	test.T(t, len(xs), 512)
	test.T(t, len(ys), 512)
}

func TestSobolPointsErrors(t *testing.T) {
	_, err := SobolPoints(0, 512, 100)
	test.That(t, err != nil, "expected error for zero width")
	_, err = SobolPoints(512, -1, 100)
	test.That(t, err != nil, "expected error for negative height")
	_, err = SobolPoints(512, 512, 0)
	test.That(t, err != nil, "expected error for zero count")
}

func TestRemovePoints(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 512, 512)) // all ink
	points, err := SobolPoints(512, 512, 512)
	test.Error(t, err)
	RemovePoints(img, points, 1)
	test.T(t, countWhite(img), 512) // stratified points never overlap
}

func TestRemovePointsSize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	RemovePoints(img, []Point{{8, 8}}, 3)
	test.T(t, countWhite(img), 9)

	img = image.NewGray(image.Rect(0, 0, 16, 16))
	RemovePoints(img, []Point{{0, 0}}, 3) // clipped at the corner
	test.T(t, countWhite(img), 4)

	img = image.NewGray(image.Rect(0, 0, 16, 16))
	RemovePoints(img, []Point{{8, 8}}, 0) // clamped to a single pixel
	test.T(t, countWhite(img), 1)

	img = image.NewGray(image.Rect(0, 0, 16, 16))
	RemovePoints(img, []Point{{-5, -5}, {20, 20}}, 3) // fully outside
	test.T(t, countWhite(img), 0)
}
