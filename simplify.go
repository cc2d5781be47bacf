package fonteco

import (
	"fmt"
	"image"
)

// SimplifyBitmap quantizes img to at most levels distinct gray values, mapping
// each pixel down to the nearest lower level. Levels must be in [2,256].
func SimplifyBitmap(img *image.Gray, levels int) (*image.Gray, error) {
	if levels < 2 || 256 < levels {
		return nil, fmt.Errorf("invalid number of levels %d, must be in [2,256]", levels)
	}
	step := 256 / (levels - 1)
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = uint8(int(v) / step * step)
	}
	return out, nil
}
