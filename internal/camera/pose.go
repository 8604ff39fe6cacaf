package camera

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/soccer-vision/internal/calibration"
	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// Kind tells which construction path produced a CameraPose.
type Kind int

const (
	// Kinematic poses come from the full body/head kinematic chain.
	Kinematic Kind = iota
	// Legacy poses come from a stored camera pitch/roll pair.
	Legacy
)

func (k Kind) String() string {
	if k == Legacy {
		return "legacy"
	}
	return "kinematic"
}

// KinematicState is the per-frame joint and inertial snapshot.
type KinematicState struct {
	// LegHeight is the hip height above the ankle in meters.
	LegHeight float64               `json:"leg_height"`
	Body      geometry.YawPitchRoll `json:"body"`
	Head      geometry.YawPitch     `json:"head"`
	Camera    Camera                `json:"camera"`
}

// CameraPose is the camera's position and orientation for one frame.
type CameraPose struct {
	kind          Kind
	camera        Camera
	head          geometry.YawPitch
	legHeight     float64
	body          geometry.YawPitchRoll
	bodyOffset    geometry.PitchRoll
	headOffset    geometry.PitchRoll
	legacy        geometry.PitchRoll
	pixelOffset   image.Point
	ellipseAngles *geometry.PitchRoll
	translation   r3.Vector
}

// NewPose composes the kinematic chain for state with the given calibration.
func NewPose(state KinematicState, cal calibration.Offsets) CameraPose {
	p := CameraPose{
		kind:        Kinematic,
		camera:      state.Camera,
		head:        state.Head,
		legHeight:   state.LegHeight,
		body:        state.Body,
		bodyOffset:  cal.Body(),
		headOffset:  cal.Head(),
		pixelOffset: image.Pt(cal.PixelOffsetX, cal.PixelOffsetY),
	}
	p.translation = translation(state, p.bodyOffset)
	return p
}

// NewLegacyPose builds a pose from a recorded camera pitch/roll pair. The
// camera sits cameraHeight above the ground point at the origin.
func NewLegacyPose(pr geometry.PitchRoll, cameraHeight float64) CameraPose {
	return CameraPose{
		kind:        Legacy,
		legacy:      pr,
		translation: r3.Vector{Z: cameraHeight},
	}
}

// translation returns the camera position relative to the ground point below
// the hip. The rotation order follows the physical chain and must not change.
func translation(state KinematicState, bodyOffset geometry.PitchRoll) r3.Vector {
	t := r3.Vector{Z: state.LegHeight + FootHeight}

	torso := r3.Vector{Z: TorsoLength}
	geometry.RotateYInPlace(&torso, state.Body.Pitch)
	geometry.RotateXInPlace(&torso, state.Body.Roll)
	geometry.AddInPlace(&t, torso)

	neck := state.Camera.Spec().NeckOffset
	geometry.RotateYInPlace(&neck, state.Head.Pitch)
	geometry.RotateZInPlace(&neck, state.Head.Yaw)
	geometry.RotateYInPlace(&neck, state.Body.Pitch+bodyOffset.Pitch)
	geometry.RotateXInPlace(&neck, state.Body.Roll+bodyOffset.Roll)
	geometry.AddInPlace(&t, neck)

	return t
}

// WithEllipseAngles returns a copy of p carrying the attitude estimated from
// the center circle's shape.
func (p CameraPose) WithEllipseAngles(pr geometry.PitchRoll) CameraPose {
	p.ellipseAngles = &pr
	return p
}

// Kind returns the construction path of p.
func (p CameraPose) Kind() Kind { return p.kind }

// Camera returns the selected camera.
func (p CameraPose) Camera() Camera { return p.camera }

// Head returns the head joint angles.
func (p CameraPose) Head() geometry.YawPitch { return p.head }

// LegHeight returns the leg height used to build p.
func (p CameraPose) LegHeight() float64 { return p.legHeight }

// Body returns the torso angles.
func (p CameraPose) Body() geometry.YawPitchRoll { return p.body }

// BodyOffset returns the body calibration correction.
func (p CameraPose) BodyOffset() geometry.PitchRoll { return p.bodyOffset }

// HeadOffset returns the head calibration correction.
func (p CameraPose) HeadOffset() geometry.PitchRoll { return p.headOffset }

// LegacyAngles returns the stored pitch/roll of a legacy pose.
func (p CameraPose) LegacyAngles() geometry.PitchRoll { return p.legacy }

// PixelOffset returns the principal point correction in pixels.
func (p CameraPose) PixelOffset() image.Point { return p.pixelOffset }

// EllipseAngles returns the center-circle attitude estimate, if one was attached.
func (p CameraPose) EllipseAngles() (geometry.PitchRoll, bool) {
	if p.ellipseAngles == nil {
		return geometry.PitchRoll{}, false
	}
	return *p.ellipseAngles, true
}

// Translation returns the camera position relative to the ground point below
// the hip, in meters.
func (p CameraPose) Translation() r3.Vector { return p.translation }

// CameraToRobot rotates a direction from the camera frame into the robot frame.
func (p CameraPose) CameraToRobot(v r3.Vector) r3.Vector {
	if p.kind == Legacy {
		geometry.RotateYInPlace(&v, p.legacy.Pitch)
		geometry.RotateXInPlace(&v, p.legacy.Roll)
		return v
	}
	geometry.RotateXInPlace(&v, p.headOffset.Roll)
	geometry.RotateYInPlace(&v, p.head.Pitch+p.camera.Spec().Tilt+p.headOffset.Pitch)
	geometry.RotateZInPlace(&v, p.head.Yaw)
	geometry.RotateYInPlace(&v, p.body.Pitch+p.bodyOffset.Pitch)
	geometry.RotateXInPlace(&v, p.body.Roll+p.bodyOffset.Roll)
	return v
}

// RobotToCamera is the inverse of CameraToRobot.
func (p CameraPose) RobotToCamera(v r3.Vector) r3.Vector {
	if p.kind == Legacy {
		geometry.RotateXInPlace(&v, -p.legacy.Roll)
		geometry.RotateYInPlace(&v, -p.legacy.Pitch)
		return v
	}
	geometry.RotateXInPlace(&v, -(p.body.Roll + p.bodyOffset.Roll))
	geometry.RotateYInPlace(&v, -(p.body.Pitch + p.bodyOffset.Pitch))
	geometry.RotateZInPlace(&v, -p.head.Yaw)
	geometry.RotateYInPlace(&v, -(p.head.Pitch + p.camera.Spec().Tilt + p.headOffset.Pitch))
	geometry.RotateXInPlace(&v, -p.headOffset.Roll)
	return v
}

// EffectivePitchRoll approximates the optical axis attitude as a single
// pitch/roll pair. It is exact for legacy poses and for kinematic poses with
// zero head yaw and zero head roll offset.
func (p CameraPose) EffectivePitchRoll() geometry.PitchRoll {
	if p.kind == Legacy {
		return p.legacy
	}
	return geometry.PitchRoll{
		Pitch: p.body.Pitch + p.bodyOffset.Pitch + p.head.Pitch + p.camera.Spec().Tilt + p.headOffset.Pitch,
		Roll:  p.body.Roll + p.bodyOffset.Roll + p.headOffset.Roll,
	}
}
