package fonteco

import (
	"image"
	"testing"

	"github.com/tdewolff/test"
)

func TestSimplifyBitmap(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []byte{0, 84, 200, 255})
	out, err := SimplifyBitmap(img, 4)
	test.Error(t, err)
	test.Bytes(t, out.Pix, []byte{0, 0, 170, 255})

	values := map[uint8]bool{}
	img = image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	out, err = SimplifyBitmap(img, 4)
	test.Error(t, err)
	for _, v := range out.Pix {
		values[v] = true
	}
	test.That(t, len(values) <= 4, "expected at most four distinct levels, got", len(values))
}

func TestSimplifyBitmapIdentity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	out, err := SimplifyBitmap(img, 256)
	test.Error(t, err)
	test.Bytes(t, out.Pix, img.Pix)
}

func TestSimplifyBitmapErrors(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	_, err := SimplifyBitmap(img, 1)
	test.That(t, err != nil, "expected error for one level")
	_, err = SimplifyBitmap(img, 257)
	test.That(t, err != nil, "expected error for too many levels")
}
