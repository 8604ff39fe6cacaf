// Package integral scores image blocks as likely ball centers using
// summed-area tables.
//
// A frame is reduced to one 8-bit channel, optionally sub-sampled by an integer
// factor, and turned into an Image: a table where each entry holds the sum of
// all values above and to the left of it. Any rectangle sum then costs four
// lookups regardless of its size, which lets the Scorer compare the mean of a
// ball-sized inner square against the surrounding ring at every block of the
// frame without classifying pixels.
package integral

import (
	"github.com/pkg/errors"
)

// MaxPixels bounds the table size so that uint32 sums of 8-bit values cannot
// overflow.
const MaxPixels = (1<<32 - 1) / 255

// Image is a summed-area table with a zero first row and column. Entry (x, y)
// holds the sum of all source values with coordinates < (x, y).
type Image struct {
	width  int
	height int
	stride int
	sum    []uint32
}

// NewImage allocates a table for width x height sources.
func NewImage(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid integral image size %dx%d", width, height)
	}
	if width*height > MaxPixels {
		return nil, errors.Errorf("integral image %dx%d exceeds %d pixels", width, height, MaxPixels)
	}
	return &Image{
		width:  width,
		height: height,
		stride: width + 1,
		sum:    make([]uint32, (width+1)*(height+1)),
	}, nil
}

// Width returns the source width.
func (im *Image) Width() int { return im.width }

// Height returns the source height.
func (im *Image) Height() int { return im.height }

// Build fills the table from a row-major source of exactly width*height values.
// The table memory is reused.
func (im *Image) Build(src []uint8) error {
	if len(src) != im.width*im.height {
		return errors.Errorf("source has %d values, want %d", len(src), im.width*im.height)
	}
	for y := 0; y < im.height; y++ {
		var rowSum uint32
		row := src[y*im.width : (y+1)*im.width]
		above := im.sum[y*im.stride:]
		cur := im.sum[(y+1)*im.stride:]
		for x, v := range row {
			rowSum += uint32(v)
			cur[x+1] = above[x+1] + rowSum
		}
	}
	return nil
}

// Area returns the sum over the w x h rectangle with top-left corner (x, y).
// The rectangle is clipped to the image.
func (im *Image) Area(x, y, w, h int) uint32 {
	x0, y0 := clamp(x, im.width), clamp(y, im.height)
	x1, y1 := clamp(x+w, im.width), clamp(y+h, im.height)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return im.sum[y1*im.stride+x1] - im.sum[y0*im.stride+x1] - im.sum[y1*im.stride+x0] + im.sum[y0*im.stride+x0]
}

// Mean returns the average value over the rectangle, or 0 if it is empty after
// clipping.
func (im *Image) Mean(x, y, w, h int) float64 {
	x0, y0 := clamp(x, im.width), clamp(y, im.height)
	x1, y1 := clamp(x+w, im.width), clamp(y+h, im.height)
	n := (x1 - x0) * (y1 - y0)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return float64(im.Area(x0, y0, x1-x0, y1-y0)) / float64(n)
}

func clamp(v, hi int) int {
	switch {
	case v < 0:
		return 0
	case v > hi:
		return hi
	}
	return v
}
