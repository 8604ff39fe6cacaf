package integral

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bruteSum(src []uint8, width, x, y, w, h int) uint32 {
	var s uint32
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			s += uint32(src[yy*width+xx])
		}
	}
	return s
}

func TestAreaMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := []struct{ w, h int }{{1, 1}, {7, 3}, {33, 17}, {64, 48}}
	for _, sz := range sizes {
		src := make([]uint8, sz.w*sz.h)
		for i := range src {
			src[i] = uint8(rng.Intn(256))
		}
		im, err := NewImage(sz.w, sz.h)
		require.NoError(t, err)
		require.NoError(t, im.Build(src))

		for i := 0; i < 200; i++ {
			x, y := rng.Intn(sz.w), rng.Intn(sz.h)
			w, h := 1+rng.Intn(sz.w-x), 1+rng.Intn(sz.h-y)
			assert.Equal(t, bruteSum(src, sz.w, x, y, w, h), im.Area(x, y, w, h), "%dx%d rect (%d,%d,%d,%d)", sz.w, sz.h, x, y, w, h)
		}
		assert.Equal(t, bruteSum(src, sz.w, 0, 0, sz.w, sz.h), im.Area(0, 0, sz.w, sz.h))
	}
}

func TestAreaSaturatedFrame(t *testing.T) {
	const w, h = 640, 480
	src := make([]uint8, w*h)
	for i := range src {
		src[i] = 255
	}
	im, err := NewImage(w, h)
	require.NoError(t, err)
	require.NoError(t, im.Build(src))
	assert.Equal(t, uint32(255*w*h), im.Area(0, 0, w, h))
	assert.Equal(t, uint32(255*10*20), im.Area(600, 400, 10, 20))
	assert.Equal(t, 255.0, im.Mean(100, 100, 50, 50))
}

func TestAreaClipsToImage(t *testing.T) {
	src := []uint8{
		1, 2, 3,
		4, 5, 6,
	}
	im, err := NewImage(3, 2)
	require.NoError(t, err)
	require.NoError(t, im.Build(src))

	tests := []struct {
		name       string
		x, y, w, h int
		want       uint32
	}{
		{"whole", 0, 0, 3, 2, 21},
		{"overhanging", -5, -5, 100, 100, 21},
		{"right column", 2, -1, 5, 5, 9},
		{"empty width", 1, 0, 0, 2, 0},
		{"outside", 3, 0, 2, 2, 0},
		{"negative size", 2, 1, -1, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, im.Area(tt.x, tt.y, tt.w, tt.h))
		})
	}
	assert.Equal(t, 4.0, im.Mean(1, 0, 2, 2))
	assert.Equal(t, 0.0, im.Mean(5, 5, 1, 1))
}

func TestBuildReusesTable(t *testing.T) {
	im, err := NewImage(2, 2)
	require.NoError(t, err)
	require.NoError(t, im.Build([]uint8{9, 9, 9, 9}))
	require.NoError(t, im.Build([]uint8{1, 0, 0, 1}))
	assert.Equal(t, uint32(2), im.Area(0, 0, 2, 2))

	assert.Error(t, im.Build([]uint8{1, 2, 3}))
}

func TestNewImageRejectsBadSizes(t *testing.T) {
	for _, sz := range [][2]int{{0, 1}, {1, 0}, {-3, 4}, {1 << 16, 1 << 16}} {
		_, err := NewImage(sz[0], sz[1])
		assert.Error(t, err, "size %v", sz)
	}
}
