package fonteco

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/vector"
)

// newCanvas returns a width by height grayscale canvas cleared to white.
func newCanvas(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	clearGray(img)
	return img
}

func clearGray(img *image.Gray) {
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
}

// invertGray flips ink and background in-place so that ink becomes high-valued.
func invertGray(img *image.Gray) {
	for i, v := range img.Pix {
		img.Pix[i] = 0xFF - v
	}
}

// binarize maps pixels above threshold to one and all others to zero.
func binarize(img *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		if threshold < v {
			out.Pix[i] = 1
		}
	}
	return out
}

// downscaleArea resizes img to width by height using box averaging. It is only
// used to shrink, each destination pixel averages the source pixels it covers.
func downscaleArea(img *image.Gray, width, height int) *image.Gray {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		y0 := y * sh / height
		y1 := (y + 1) * sh / height
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < width; x++ {
			x0 := x * sw / width
			x1 := (x + 1) * sw / width
			if x1 <= x0 {
				x1 = x0 + 1
			}
			sum, n := 0, 0
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					sum += int(img.Pix[(sy-b.Min.Y)*img.Stride+(sx-b.Min.X)])
					n++
				}
			}
			out.Pix[y*out.Stride+x] = uint8(sum / n)
		}
	}
	return out
}

// fillPolygon rasterizes a closed polygon into a width by height mask of zeros
// and ones.
func fillPolygon(width, height int, poly [][2]float64) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	if len(poly) < 3 {
		return mask
	}
	z := vector.NewRasterizer(width, height)
	z.MoveTo(float32(poly[0][0]), float32(poly[0][1]))
	for _, p := range poly[1:] {
		z.LineTo(float32(p[0]), float32(p[1]))
	}
	z.ClosePath()
	alpha := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})
	for i, v := range alpha.Pix {
		if 128 <= v {
			mask.Pix[i] = 1
		}
	}
	return mask
}

// xorMask combines b into a in-place, both must be masks of equal size.
func xorMask(a, b *image.Gray) {
	for i := range a.Pix {
		a.Pix[i] ^= b.Pix[i]
	}
}

// dilate3x3 grows the mask with a 3x3 structuring element.
func dilate3x3(mask *image.Gray, iterations int) *image.Gray {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	src := mask
	for it := 0; it < iterations; it++ {
		dst := image.NewGray(b)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if src.Pix[y*src.Stride+x] != 0 {
					dst.Pix[y*dst.Stride+x] = 1
					continue
				}
				for dy := -1; dy <= 1 && dst.Pix[y*dst.Stride+x] == 0; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if 0 <= nx && nx < w && 0 <= ny && ny < h && src.Pix[ny*src.Stride+nx] != 0 {
							dst.Pix[y*dst.Stride+x] = 1
							break
						}
					}
				}
			}
		}
		src = dst
	}
	return src
}

// crossesZero reports whether the straight segment from (x0,y0) to (x1,y1)
// passes over a zero pixel of the mask. Pixels outside the mask count as zero.
func crossesZero(mask *image.Gray, x0, y0, x1, y1 int) bool {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	dx, dy := x1-x0, y1-y0
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	err := dx - dy
	x, y := x0, y0
	for {
		if x < 0 || w <= x || y < 0 || h <= y || mask.Pix[y*mask.Stride+x] == 0 {
			return true
		}
		if x == x1 && y == y1 {
			return false
		}
		e2 := 2 * err
		if -dy < e2 {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// paintBrush fills a square brush of the given width centered at (x,y), keeping
// a margin of untouched pixels along the canvas edges.
func paintBrush(img *image.Gray, x, y, width, margin int, v uint8) {
	b := img.Bounds()
	half := width / 2
	for py := y - half; py < y-half+width; py++ {
		for px := x - half; px < x-half+width; px++ {
			if px < b.Min.X+margin || b.Max.X-margin <= px || py < b.Min.Y+margin || b.Max.Y-margin <= py {
				continue
			}
			img.SetGray(px, py, color.Gray{v})
		}
	}
}

// strokeLine paints a straight stroke between two points with the given brush
// width, respecting the canvas margin.
func strokeLine(img *image.Gray, x0, y0, x1, y1, width, margin int, v uint8) {
	dx, dy := x1-x0, y1-y0
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	err := dx - dy
	x, y := x0, y0
	for {
		paintBrush(img, x, y, width, margin, v)
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if -dy < e2 {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// writeDebugImage writes img as PNG into dir, scaling mask values up to full
// range so that binary masks stay visible.
func writeDebugImage(dir, name string, img *image.Gray) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	out := img
	max := uint8(0)
	for _, v := range img.Pix {
		if max < v {
			max = v
		}
	}
	if 0 < max && max <= 1 {
		out = image.NewGray(img.Bounds())
		for i, v := range img.Pix {
			out.Pix[i] = v * 0xFF
		}
	}
	return savePNG(filepath.Join(dir, name), out)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cloneGray(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

func distSq(x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	return dx*dx + dy*dy
}
