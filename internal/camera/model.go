package camera

import (
	"github.com/ironsheep/soccer-vision/internal/calibration"
)

// Model builds camera poses using the calibration currently held by a store.
// It is safe for concurrent use by the upper and lower camera pipelines.
type Model struct {
	store *calibration.Store
}

// NewModel returns a model reading offsets from store. A nil store means zero
// offsets.
func NewModel(store *calibration.Store) *Model {
	if store == nil {
		store = calibration.NewStaticStore(calibration.Offsets{})
	}
	return &Model{store: store}
}

// Pose composes the pose for state with the current calibration snapshot.
func (m *Model) Pose(state KinematicState) CameraPose {
	return NewPose(state, m.store.Current())
}

// Offsets returns the calibration snapshot the next Pose call would use.
func (m *Model) Offsets() calibration.Offsets {
	return m.store.Current()
}
