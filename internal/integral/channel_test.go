package integral

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaque hides the concrete image type so Extract takes its generic path.
type opaque struct{ image.Image }

func randomYCbCr(rng *rand.Rand, w, h int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for _, plane := range [][]uint8{img.Y, img.Cb, img.Cr} {
		for i := range plane {
			plane[i] = uint8(rng.Intn(256))
		}
	}
	return img
}

func TestExtractFastPathsMatchGeneric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ycc := randomYCbCr(rng, 32, 24)
	gray := image.NewGray(image.Rect(0, 0, 32, 24))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(rng.Intn(256))
	}

	tests := []struct {
		name string
		img  image.Image
		ch   Channel
	}{
		{"ycbcr luma", ycc, Luma},
		{"ycbcr cb", ycc, Cb},
		{"ycbcr cr", ycc, Cr},
		{"gray luma", gray, Luma},
	}
	for _, tt := range tests {
		for _, k := range []int{1, 2, 4} {
			w, h := SubSampledSize(32, 24, k)
			fast := make([]uint8, w*h)
			slow := make([]uint8, w*h)
			require.NoError(t, Extract(tt.img, tt.ch, k, fast))
			require.NoError(t, Extract(opaque{tt.img}, tt.ch, k, slow))
			assert.Equal(t, slow, fast, "%s k=%d", tt.name, k)
		}
	}
}

func TestExtractBoxAverage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	copy(img.Pix, []uint8{
		0, 100, 10, 10,
		100, 200, 10, 11,
	})
	dst := make([]uint8, 2)
	require.NoError(t, Extract(img, Luma, 2, dst))
	assert.Equal(t, []uint8{100, 10}, dst)
}

func TestExtractSubImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	sub := img.SubImage(image.Rect(4, 4, 6, 6))
	dst := make([]uint8, 4)
	require.NoError(t, Extract(sub, Luma, 1, dst))
	assert.Equal(t, []uint8{36, 37, 44, 45}, dst)
}

func TestExtractLightness(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.White)
	dst := make([]uint8, 2)
	require.NoError(t, Extract(img, Lightness, 1, dst))
	assert.Equal(t, uint8(0), dst[0])
	assert.InDelta(t, 255, int(dst[1]), 1)

	// Lightness on camera frames goes through the generic path.
	ycc := randomYCbCr(rand.New(rand.NewSource(1)), 4, 4)
	dst = make([]uint8, 16)
	assert.NoError(t, Extract(ycc, Lightness, 1, dst))
}

func TestExtractRejectsBadArguments(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	assert.Error(t, Extract(img, Luma, 0, make([]uint8, 16)))
	assert.Error(t, Extract(img, Luma, 2, make([]uint8, 16)))
}

func TestParseChannel(t *testing.T) {
	for _, ch := range []Channel{Luma, Cb, Cr, Lightness} {
		got, err := ParseChannel(ch.String())
		require.NoError(t, err)
		assert.Equal(t, ch, got)
	}
	_, err := ParseChannel("hue")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Channel(9).String())
}
