package projection

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// mat3 is a row-major rotation matrix.
type mat3 [3][3]float64

// legacyRotation is the closed form of roll(x) applied after pitch(y), the
// attitude model of recordings that store only a camera pitch/roll pair.
//
//	| cθ      0    sθ    |
//	| sφ·sθ   cφ  -sφ·cθ |
//	| -cφ·sθ  sφ   cφ·cθ |
func legacyRotation(pr geometry.PitchRoll) mat3 {
	sp, cp := math.Sincos(pr.Pitch)
	sr, cr := math.Sincos(pr.Roll)
	return mat3{
		{cp, 0, sp},
		{sr * sp, cr, -sr * cp},
		{-cr * sp, sr, cr * cp},
	}
}

func (m mat3) apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// applyT multiplies by the transpose, which inverts a rotation.
func (m mat3) applyT(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		Y: m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		Z: m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}
