// Package projection maps between image pixels and the robot's surroundings.
//
// Frames:
//
//	camera  x along the optical axis, y left, z up
//	robot   origin on the ground below the hip, x forward, y left, z up
//	image   origin top-left, u right, v down
//
// A camera-frame point (x, y, z) lands on pixel
//
//	u = cx - f*y/x
//	v = cy - f*z/x
//
// with f = width/2 / tan(fov/2) and (cx, cy) the image center shifted by the
// calibrated pixel offset.
//
// Operations that can fail for geometric reasons (a point behind the camera, a
// ray that never meets the target plane, a camera looking straight up or down)
// report it with a boolean instead of an error; callers treat it as "cannot
// locate this point right now".
package projection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// ErrGeometricDegeneracy is returned by callers that need an error value for a
// failed projection.
var ErrGeometricDegeneracy = errors.New("geometric degeneracy")

// minDepth is the smallest forward distance in front of the camera plane that
// still projects.
const minDepth = 1e-9

// Intrinsics describes the camera image.
type Intrinsics struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// FieldOfView is the horizontal opening angle in radians.
	FieldOfView float64 `json:"field_of_view"`

	// MinPixelRadius floors PixelRadius so far objects never shrink below
	// the smallest patch the classifiers accept.
	MinPixelRadius float64 `json:"min_pixel_radius"`
}

// DefaultIntrinsics returns the head camera's native 640x480 setup.
func DefaultIntrinsics() Intrinsics {
	return Intrinsics{
		Width:          640,
		Height:         480,
		FieldOfView:    geometry.Deg(60.97),
		MinPixelRadius: 4,
	}
}

// Engine projects with one set of intrinsics. It holds no per-frame state and
// is safe for concurrent use.
type Engine struct {
	intr Intrinsics
	f    float64
}

// NewEngine returns an engine for intr.
func NewEngine(intr Intrinsics) *Engine {
	return &Engine{
		intr: intr,
		f:    float64(intr.Width) / 2 / math.Tan(intr.FieldOfView/2),
	}
}

// Intrinsics returns the engine's camera description.
func (e *Engine) Intrinsics() Intrinsics { return e.intr }

// FocalLength returns f in pixels.
func (e *Engine) FocalLength() float64 { return e.f }

func (e *Engine) center(pose camera.CameraPose) r2.Point {
	off := pose.PixelOffset()
	return r2.Point{
		X: float64(e.intr.Width)/2 + float64(off.X),
		Y: float64(e.intr.Height)/2 + float64(off.Y),
	}
}

// CamToImage projects a camera-frame point onto the image. It fails for points
// at or behind the camera plane.
func (e *Engine) CamToImage(pose camera.CameraPose, p r3.Vector) (r2.Point, bool) {
	if p.X < minDepth {
		return r2.Point{}, false
	}
	c := e.center(pose)
	return r2.Point{
		X: c.X - e.f*p.Y/p.X,
		Y: c.Y - e.f*p.Z/p.X,
	}, true
}

// ray returns the camera-frame direction through pixel px.
func (e *Engine) ray(pose camera.CameraPose, px r2.Point) r3.Vector {
	c := e.center(pose)
	return r3.Vector{X: e.f, Y: c.X - px.X, Z: c.Y - px.Y}
}

// Project intersects the ray through px with the ground.
func (e *Engine) Project(pose camera.CameraPose, px r2.Point) (r2.Point, bool) {
	return e.ProjectAtHeight(pose, px, 0)
}

// ProjectAtHeight intersects the ray through px with the horizontal plane at
// height above the ground and returns the robot-relative intersection. It fails
// when the ray is parallel to the plane or points away from it.
func (e *Engine) ProjectAtHeight(pose camera.CameraPose, px r2.Point, height float64) (r2.Point, bool) {
	d := e.toRobot(pose, e.ray(pose, px))
	if d.Z == 0 {
		return r2.Point{}, false
	}
	t := pose.Translation()
	s := (height - t.Z) / d.Z
	if !(s > 0) || math.IsInf(s, 0) {
		return r2.Point{}, false
	}
	return r2.Point{X: t.X + s*d.X, Y: t.Y + s*d.Y}, true
}

// toRobot rotates a camera-frame direction into the robot frame using the
// formula set matching the pose's construction path.
func (e *Engine) toRobot(pose camera.CameraPose, v r3.Vector) r3.Vector {
	if pose.Kind() == camera.Legacy {
		return legacyRotation(pose.LegacyAngles()).apply(v)
	}
	return pose.CameraToRobot(v)
}

func (e *Engine) toCamera(pose camera.CameraPose, v r3.Vector) r3.Vector {
	if pose.Kind() == camera.Legacy {
		return legacyRotation(pose.LegacyAngles()).applyT(v)
	}
	return pose.RobotToCamera(v)
}

// RelToCam converts a robot-relative 3D point into the camera frame.
func (e *Engine) RelToCam(pose camera.CameraPose, p r3.Vector) r3.Vector {
	return e.toCamera(pose, p.Sub(pose.Translation()))
}

// RelToImage projects a robot-relative 3D point onto the image.
func (e *Engine) RelToImage(pose camera.CameraPose, p r3.Vector) (r2.Point, bool) {
	return e.CamToImage(pose, e.RelToCam(pose, p))
}

// AbsToRel converts a field point into the frame of a robot at robot.
func AbsToRel(robot geometry.Pose2D, abs r2.Point) r2.Point {
	return geometry.Rotate2D(abs.Sub(robot.Point()), -robot.Theta)
}

// RelToAbs converts a robot-relative point into field coordinates.
func RelToAbs(robot geometry.Pose2D, rel r2.Point) r2.Point {
	return geometry.Rotate2D(rel, robot.Theta).Add(robot.Point())
}

// Horizon returns the image line where the ground plane vanishes, spanning the
// full image width. It fails when the optical axis is near vertical.
func (e *Engine) Horizon(pose camera.CameraPose) (geometry.Line, bool) {
	// A ray is level when the robot-frame z of its direction is zero, i.e.
	// when it is orthogonal to the camera-frame image of the up vector.
	up := e.toCamera(pose, r3.Vector{Z: 1})
	if math.Abs(up.Z) < 1e-9 {
		return geometry.Line{}, false
	}
	c := e.center(pose)
	vAt := func(u float64) float64 {
		return c.Y + (up.X*e.f+up.Y*(c.X-u))/up.Z
	}
	w := float64(e.intr.Width)
	return geometry.Line{
		Start: r2.Point{X: 0, Y: vAt(0)},
		End:   r2.Point{X: w, Y: vAt(w)},
	}, true
}

// BelowHorizon reports whether px lies on the ground side of horizon.
func BelowHorizon(px r2.Point, horizon geometry.Line) bool {
	return horizon.Side(px) > 0
}

// ObjectDistance returns the distance from the camera to the center of a
// sphere of the given radius resting on the ground at p.
func (e *Engine) ObjectDistance(pose camera.CameraPose, p r2.Point, radius float64) float64 {
	return geometry.Lift(p, radius).Sub(pose.Translation()).Norm()
}

// PixelRadius returns the apparent radius of an object of the given radius at
// distance, never less than the configured minimum. A non-positive distance
// yields +Inf.
func (e *Engine) PixelRadius(distance, radius float64) float64 {
	if distance <= 0 {
		return math.Inf(1)
	}
	return math.Max(e.f*radius/distance, e.intr.MinPixelRadius)
}

// PixelRadiusAt is PixelRadius for a sphere resting on the ground at p.
func (e *Engine) PixelRadiusAt(pose camera.CameraPose, p r2.Point, radius float64) float64 {
	return e.PixelRadius(e.ObjectDistance(pose, p, radius), radius)
}
