package imaging

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// FrameCache provides thread-safe caching of decoded camera frames to avoid
// redundant disk reads when the same recording is analyzed repeatedly.
//
// Cached frames remain in memory until explicitly removed via Evict() or
// Clear(). A 640x480 frame costs roughly 460 KB as YCbCr and 1.2 MB as RGBA.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache()
//	frame, err := cache.Load("/recordings/upper_0042.jpg")
//	if err != nil {
//	    return err
//	}
//	hyps, err := scorer.Scan(frame, params)
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]image.Image
}

// NewFrameCache creates and initializes a new empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]image.Image),
	}
}

// Load retrieves a frame from the cache or decodes it from disk.
//
// Parameters:
//   - path: Path to the frame. Supported formats are PNG, JPEG, GIF, BMP and
//     TIFF.
//
// Returns:
//   - image.Image: The decoded frame. JPEG frames keep their *image.YCbCr
//     representation.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// Frames are keyed by their cleaned path.
func (c *FrameCache) Load(path string) (image.Image, error) {
	key := filepath.Clean(path)

	c.mu.RLock()
	if img, ok := c.frames[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load frame %s", key)
	}

	c.mu.Lock()
	c.frames[key] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a single frame. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, filepath.Clean(path))
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// FrameInfo contains metadata about a loaded frame.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the file format derived from the extension: "png", "jpeg",
	// "gif", "bmp", "tiff" or "unknown".
	Format string `json:"format"`

	// ColorModel names the in-memory layout: "ycbcr", "gray", "rgba" or
	// "other". Only "ycbcr" and "gray" frames take the scorer's fast path.
	ColorModel string `json:"color_model"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame into the cache and describes it.
//
// Parameters:
//   - cache: The frame cache to use for loading. Must not be nil.
//   - path: Path to the frame file.
//
// Returns:
//   - *FrameInfo: Metadata about the frame.
//   - error: Non-nil if the frame cannot be loaded or the file cannot be stat'd.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat frame")
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	model := "other"
	switch img.(type) {
	case *image.YCbCr:
		model = "ycbcr"
	case *image.Gray:
		model = "gray"
	case *image.RGBA, *image.NRGBA:
		model = "rgba"
	}

	bounds := img.Bounds()
	return &FrameInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorModel:    model,
		FileSizeBytes: stat.Size(),
	}, nil
}
