package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// YawPitchRoll is a full orientation triple, used for the torso angles
// reported by the inertial unit.
type YawPitchRoll struct {
	Yaw   float64 `json:"yaw" toml:"yaw"`
	Pitch float64 `json:"pitch" toml:"pitch"`
	Roll  float64 `json:"roll" toml:"roll"`
}

// PitchRoll is a pitch/roll pair. It carries calibration corrections and the
// camera attitude stored by older recordings.
type PitchRoll struct {
	Pitch float64 `json:"pitch" toml:"pitch"`
	Roll  float64 `json:"roll" toml:"roll"`
}

// Add returns the component-wise sum of p and o.
func (p PitchRoll) Add(o PitchRoll) PitchRoll {
	return PitchRoll{Pitch: p.Pitch + o.Pitch, Roll: p.Roll + o.Roll}
}

// YawPitch holds the two head joint angles.
type YawPitch struct {
	Yaw   float64 `json:"yaw" toml:"yaw"`
	Pitch float64 `json:"pitch" toml:"pitch"`
}

// Pose2D is the robot's position and heading on the field.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Point returns the position part of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Deg converts degrees to radians.
func Deg(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeAngle wraps a to the interval (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a > math.Pi:
		a -= 2 * math.Pi
	case a <= -math.Pi:
		a += 2 * math.Pi
	}
	return a
}
