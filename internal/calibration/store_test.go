package calibration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleOffsets() Offsets {
	return Offsets{
		HeadPitch:    0.012,
		HeadRoll:     -0.004,
		BodyPitch:    0.031,
		BodyRoll:     0.002,
		PixelOffsetX: 3,
		PixelOffsetY: -2,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Save(path, sampleOffsets()))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleOffsets(), got)

	// The temporary file must not survive the rename.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("body_pitch = 0.05\npixel_offset_y = 4\n"), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Offsets{BodyPitch: 0.05, PixelOffsetY: 4}, got)
	assert.Equal(t, 0.05, got.Body().Pitch)
	assert.Equal(t, 0.0, got.Head().Roll)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "head_yaw = 0.1\n"},
		{"wrong type", "pixel_offset_x = \"three\"\n"},
		{"not toml", "head_pitch 0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestNewStoreMissingFile(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), DefaultFileName), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, Offsets{}, s.Current())
}

func TestNewStoreMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("head_pitch = ["), 0o644))
	_, err := NewStore(path, nil)
	assert.Error(t, err)
}

func TestStoreUpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewStore(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	require.NoError(t, s.Update(sampleOffsets()))
	assert.Equal(t, sampleOffsets(), s.Current())

	fresh, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, sampleOffsets(), fresh.Current())

	// A broken file on disk keeps the previous snapshot active.
	require.NoError(t, os.WriteFile(path, []byte("body_roll = ="), 0o644))
	assert.Error(t, fresh.Reload())
	assert.Equal(t, sampleOffsets(), fresh.Current())
}

func TestStaticStore(t *testing.T) {
	s := NewStaticStore(sampleOffsets())
	assert.Equal(t, "", s.Path())
	assert.NoError(t, s.Reload())
	assert.Equal(t, sampleOffsets(), s.Current())
	assert.Error(t, s.Watch(context.Background()))
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewStore(path, nil)
	require.NoError(t, err)

	a := Offsets{HeadPitch: 1, HeadRoll: 1, BodyPitch: 1, BodyRoll: 1, PixelOffsetX: 1, PixelOffsetY: 1}
	b := Offsets{HeadPitch: 2, HeadRoll: 2, BodyPitch: 2, BodyRoll: 2, PixelOffsetX: 2, PixelOffsetY: 2}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				o := s.Current()
				// Every snapshot must be one of the complete values written.
				if o != (Offsets{}) && o != a && o != b {
					t.Errorf("torn snapshot %+v", o)
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			require.NoError(t, s.Update(a))
		} else {
			require.NoError(t, s.Update(b))
		}
	}
	close(stop)
	wg.Wait()
}

func TestWatchPicksUpReplacedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Save(path, Offsets{}))
	s, err := NewStore(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Keep replacing the file until the watcher has seen it; the watch may not
	// be registered yet on the first write.
	assert.Eventually(t, func() bool {
		if err := Save(path, sampleOffsets()); err != nil {
			return false
		}
		return s.Current() == sampleOffsets()
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
