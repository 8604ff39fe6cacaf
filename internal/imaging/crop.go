package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// PatchMargin enlarges a hypothesis patch beyond the ball so the classifier
// sees some of the surroundings.
const PatchMargin = 1.25

// EncodedImage is a PNG image ready to hand to a tool client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// PatchBounds returns the square region of a patch around center, clipped to
// the frame. The square's half size is radius*PatchMargin, at least one pixel.
func PatchBounds(frame image.Rectangle, center image.Point, radius float64) image.Rectangle {
	half := int(math.Ceil(math.Max(radius*PatchMargin, 1)))
	r := image.Rect(center.X-half, center.Y-half, center.X+half, center.Y+half)
	return r.Intersect(frame)
}

// CropPatch cuts the square around a ball hypothesis and scales it to
// size x size pixels for the classifier.
//
// Parameters:
//   - img: The source frame.
//   - center: Hypothesis center in frame pixels.
//   - radius: Hypothesis radius in frame pixels.
//   - size: Edge length of the returned patch.
//
// Returns an error if the patch lies completely outside the frame or size is
// not positive. Patches clipped by the frame border are stretched to size.
func CropPatch(img image.Image, center image.Point, radius float64, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid patch size %d", size)
	}
	r := PatchBounds(img.Bounds(), center, radius)
	if r.Empty() {
		return nil, errors.Errorf("patch around (%d,%d) radius %.1f is outside frame %v",
			center.X, center.Y, radius, img.Bounds())
	}
	patch := imaging.Crop(img, r)
	if patch.Bounds().Dx() == size && patch.Bounds().Dy() == size {
		return patch, nil
	}
	return imaging.Resize(patch, size, size, imaging.Linear), nil
}
