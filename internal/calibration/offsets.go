// Package calibration persists the small set of correction offsets measured by
// the out-of-band calibration procedure and serves them to the camera pose
// model.
//
// The offsets live in a TOML key/value file:
//
//	head_pitch = 0.0
//	head_roll = 0.0
//	body_pitch = 0.0
//	body_roll = 0.0
//	pixel_offset_x = 0
//	pixel_offset_y = 0
//
// Writers always replace the file atomically (temporary file in the same
// directory, fsync, rename) so a reader never observes a partial write. Readers
// go through a Store, which holds an immutable snapshot that is swapped as a
// whole on reload.
package calibration

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// DefaultFileName is the file name used when only a directory is configured.
const DefaultFileName = "calibration.toml"

// Offsets are the persisted calibration corrections.
type Offsets struct {
	HeadPitch    float64 `toml:"head_pitch" json:"head_pitch"`
	HeadRoll     float64 `toml:"head_roll" json:"head_roll"`
	BodyPitch    float64 `toml:"body_pitch" json:"body_pitch"`
	BodyRoll     float64 `toml:"body_roll" json:"body_roll"`
	PixelOffsetX int     `toml:"pixel_offset_x" json:"pixel_offset_x"`
	PixelOffsetY int     `toml:"pixel_offset_y" json:"pixel_offset_y"`
}

// Head returns the head pitch/roll correction.
func (o Offsets) Head() geometry.PitchRoll {
	return geometry.PitchRoll{Pitch: o.HeadPitch, Roll: o.HeadRoll}
}

// Body returns the body pitch/roll correction.
func (o Offsets) Body() geometry.PitchRoll {
	return geometry.PitchRoll{Pitch: o.BodyPitch, Roll: o.BodyRoll}
}

// Load reads offsets from a TOML file. Keys missing from the file are zero.
func Load(path string) (Offsets, error) {
	var o Offsets
	md, err := toml.DecodeFile(path, &o)
	if err != nil {
		return Offsets{}, errors.Wrapf(err, "failed to read calibration %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Offsets{}, errors.Errorf("unknown calibration key %q in %s", undecoded[0].String(), path)
	}
	return o, nil
}

// Save writes offsets to path, replacing any existing file atomically.
func Save(path string, o Offsets) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(o); err != nil {
		return errors.Wrap(err, "failed to encode calibration")
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// over path once the contents are on disk.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary calibration file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write calibration")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to sync calibration")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close calibration")
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return errors.Wrap(err, "failed to set calibration permissions")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "failed to replace calibration")
	}
	return nil
}
