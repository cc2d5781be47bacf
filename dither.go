package fonteco

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"math/rand"
)

// Point is a pixel coordinate on the render canvas.
type Point struct {
	X, Y int
}

// SobolPoints returns scrambled Sobol' sample points over a width by height
// canvas. The count is rounded down to the nearest power of two, at most 2^30
// points are generated. Each call applies a fresh random digital shift so that
// consecutive calls yield different point sets.
func SobolPoints(width, height, count int) ([]Point, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid point count %d", count)
	}
	m := 0
	for 1<<(m+1) <= count {
		m++
	}
	if 30 < m {
		m = 30
	}
	n := 1 << m

	// Direction numbers for the first two dimensions, the first is the van
	// der Corput sequence and the second derives from the primitive
	// polynomial x^2+x+1 with m-sequence 1,3,5,15,17,...
	var dir [2][32]uint32
	mj := uint32(1)
	for j := 0; j < 32; j++ {
		dir[0][j] = 1 << (31 - j)
		dir[1][j] = mj << (31 - j)
		mj = mj<<1 ^ mj
	}

	shiftX, shiftY := rand.Uint32(), rand.Uint32()
	points := make([]Point, n)
	var x, y uint32
	for i := 0; i < n; i++ {
		sx, sy := x^shiftX, y^shiftY
		points[i] = Point{
			X: int(uint64(sx) * uint64(width) >> 32),
			Y: int(uint64(sy) * uint64(height) >> 32),
		}
		c := bits.TrailingZeros32(uint32(i) + 1)
		x ^= dir[0][c]
		y ^= dir[1][c]
	}
	return points, nil
}

// RemovePoints turns the given points into background, each point painting a
// square of pointSize by pointSize pixels centered on it. Points or parts of
// squares outside the canvas are ignored.
func RemovePoints(img *image.Gray, points []Point, pointSize int) {
	if pointSize < 1 {
		pointSize = 1
	}
	b := img.Bounds()
	half := pointSize / 2
	for _, p := range points {
		for y := p.Y - half; y < p.Y-half+pointSize; y++ {
			for x := p.X - half; x < p.X-half+pointSize; x++ {
				if b.Min.X <= x && x < b.Max.X && b.Min.Y <= y && y < b.Max.Y {
					img.SetGray(x, y, color.Gray{0xFF})
				}
			}
		}
	}
}
