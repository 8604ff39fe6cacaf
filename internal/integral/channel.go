package integral

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Channel selects the per-pixel value the table is built over.
type Channel int

// Supported channels.
const (
	Luma Channel = iota
	Cb
	Cr
	// Lightness is CIE L* scaled to 0-255. It separates a dark ball from a
	// bright field better than luma under colored light, at a higher cost.
	Lightness
)

var channelNames = [...]string{
	Luma:      "luma",
	Cb:        "cb",
	Cr:        "cr",
	Lightness: "lightness",
}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return "unknown"
	}
	return channelNames[c]
}

// ParseChannel maps a channel name to a Channel.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if s == name {
			return Channel(i), nil
		}
	}
	return Luma, errors.Errorf("unknown channel %q", s)
}

// SubSampledSize returns the dimensions of a width x height frame reduced by
// factor k.
func SubSampledSize(width, height, k int) (int, int) {
	return width / k, height / k
}

// Extract writes channel ch of img, averaged over k x k boxes, into dst in
// row-major order. dst must hold exactly the sub-sampled pixel count.
func Extract(img image.Image, ch Channel, k int, dst []uint8) error {
	if k <= 0 {
		return errors.Errorf("invalid sub-sample factor %d", k)
	}
	b := img.Bounds()
	w, h := SubSampledSize(b.Dx(), b.Dy(), k)
	if len(dst) != w*h {
		return errors.Errorf("destination has %d values, want %d", len(dst), w*h)
	}

	switch src := img.(type) {
	case *image.YCbCr:
		if ch != Lightness {
			extractYCbCr(src, ch, k, w, h, dst)
			return nil
		}
	case *image.Gray:
		if ch == Luma {
			extractPlane(src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), k, w, h, dst)
			return nil
		}
	}

	n := uint32(k * k)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum uint32
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					sum += uint32(value(img.At(b.Min.X+x*k+dx, b.Min.Y+y*k+dy), ch))
				}
			}
			dst[y*w+x] = uint8((sum + n/2) / n)
		}
	}
	return nil
}

func extractYCbCr(src *image.YCbCr, ch Channel, k, w, h int, dst []uint8) {
	b := src.Bounds()
	if ch == Luma {
		extractPlane(src.Y, src.YStride, src.YOffset(b.Min.X, b.Min.Y), k, w, h, dst)
		return
	}
	plane := src.Cb
	if ch == Cr {
		plane = src.Cr
	}
	n := uint32(k * k)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum uint32
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					sum += uint32(plane[src.COffset(b.Min.X+x*k+dx, b.Min.Y+y*k+dy)])
				}
			}
			dst[y*w+x] = uint8((sum + n/2) / n)
		}
	}
}

// extractPlane box-averages a full-resolution 8-bit plane starting at offset.
func extractPlane(pix []uint8, stride, offset, k, w, h int, dst []uint8) {
	n := uint32(k * k)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum uint32
			base := offset + y*k*stride + x*k
			for dy := 0; dy < k; dy++ {
				row := pix[base+dy*stride : base+dy*stride+k]
				for _, v := range row {
					sum += uint32(v)
				}
			}
			dst[y*w+x] = uint8((sum + n/2) / n)
		}
	}
}

func value(c color.Color, ch Channel) uint8 {
	if ch == Lightness {
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return 0
		}
		l, _, _ := cf.Lab()
		return uint8(math.Round(math.Max(0, math.Min(1, l)) * 255))
	}
	ycc := color.YCbCrModel.Convert(c).(color.YCbCr)
	switch ch {
	case Cb:
		return ycc.Cb
	case Cr:
		return ycc.Cr
	default:
		return ycc.Y
	}
}
