package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// Blur smooths a frame with a Gaussian of the given standard deviation in
// pixels. It suppresses sensor noise and field texture before the ring scorer
// runs. A non-positive sigma returns img unchanged.
//
// The result is always *image.RGBA, so blurred YCbCr frames lose the scorer's
// fast path.
func Blur(img image.Image, sigma float64) image.Image {
	if sigma <= 0 {
		return img
	}
	return blur.Gaussian(img, sigma)
}
