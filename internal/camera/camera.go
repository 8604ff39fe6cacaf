// Package camera models where the robot's cameras are and how they are
// oriented, given the kinematic state of the body and head.
//
// A CameraPose is built once per frame and never modified afterwards. There are
// two ways to build one:
//
//   - NewPose composes the full kinematic chain foot → hip → torso → neck →
//     camera from leg height, torso angles, head joint angles and the
//     calibration offsets.
//   - NewLegacyPose builds a pose from a bare camera pitch/roll pair and camera
//     height, as stored by older recordings that lack full kinematics.
//
// The pose records which path produced it (Kind) so the projection engine can
// pick the matching formula set.
package camera

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// Kinematic chain constants in meters.
const (
	// FootHeight is the sole-to-ankle height. The walking engine reports leg
	// height without the foot, so it is added back here.
	FootHeight = 0.0452

	// TorsoLength is the hip-to-neck distance.
	TorsoLength = 0.2115
)

// Camera selects one of the two head cameras.
type Camera int

// The head cameras.
const (
	UpperCamera Camera = iota
	LowerCamera
)

// Spec holds the fixed mounting of a camera relative to the neck joint.
type Spec struct {
	// NeckOffset is the camera position in the head frame.
	NeckOffset r3.Vector

	// Tilt is the fixed downward pitch of the optical axis in the head.
	Tilt float64
}

var specs = [...]Spec{
	UpperCamera: {NeckOffset: r3.Vector{X: 0.05871, Y: 0, Z: 0.0710}, Tilt: geometry.Deg(1.2)},
	LowerCamera: {NeckOffset: r3.Vector{X: 0.05071, Y: 0, Z: 0.01774}, Tilt: geometry.Deg(39.7)},
}

// Spec returns the mounting of c.
func (c Camera) Spec() Spec {
	if c == LowerCamera {
		return specs[LowerCamera]
	}
	return specs[UpperCamera]
}

func (c Camera) String() string {
	if c == LowerCamera {
		return "lower"
	}
	return "upper"
}

// ParseCamera maps "upper" or "lower" to a Camera.
func ParseCamera(s string) (Camera, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upper", "top":
		return UpperCamera, nil
	case "lower", "bottom":
		return LowerCamera, nil
	default:
		return UpperCamera, errors.Errorf("unknown camera %q", s)
	}
}
