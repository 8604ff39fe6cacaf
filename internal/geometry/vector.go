package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// RotateX returns v rotated by angle about the x axis.
func RotateX(v r3.Vector, angle float64) r3.Vector {
	s, c := math.Sincos(angle)
	return r3.Vector{
		X: v.X,
		Y: c*v.Y - s*v.Z,
		Z: s*v.Y + c*v.Z,
	}
}

// RotateY returns v rotated by angle about the y axis.
func RotateY(v r3.Vector, angle float64) r3.Vector {
	s, c := math.Sincos(angle)
	return r3.Vector{
		X: c*v.X + s*v.Z,
		Y: v.Y,
		Z: -s*v.X + c*v.Z,
	}
}

// RotateZ returns v rotated by angle about the z axis.
func RotateZ(v r3.Vector, angle float64) r3.Vector {
	s, c := math.Sincos(angle)
	return r3.Vector{
		X: c*v.X - s*v.Y,
		Y: s*v.X + c*v.Y,
		Z: v.Z,
	}
}

// RotateXInPlace rotates *v about the x axis.
func RotateXInPlace(v *r3.Vector, angle float64) { *v = RotateX(*v, angle) }

// RotateYInPlace rotates *v about the y axis.
func RotateYInPlace(v *r3.Vector, angle float64) { *v = RotateY(*v, angle) }

// RotateZInPlace rotates *v about the z axis.
func RotateZInPlace(v *r3.Vector, angle float64) { *v = RotateZ(*v, angle) }

// AddInPlace adds d to *v.
func AddInPlace(v *r3.Vector, d r3.Vector) { *v = v.Add(d) }

// Rotate2D returns p rotated counter-clockwise by angle about the origin.
func Rotate2D(p r2.Point, angle float64) r2.Point {
	s, c := math.Sincos(angle)
	return r2.Point{X: c*p.X - s*p.Y, Y: s*p.X + c*p.Y}
}

// Ground drops the z component of v.
func Ground(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// Lift places p on the horizontal plane at the given height.
func Lift(p r2.Point, height float64) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: height}
}

// AlmostEqual reports whether a and b differ by at most tol in every component.
func AlmostEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
