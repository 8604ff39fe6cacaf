package ellipse

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ironsheep/soccer-vision/internal/geometry"
)

// ErrNotEllipse is returned by Conic.Params for conics that are not real
// ellipses.
var ErrNotEllipse = errors.New("conic is not a real ellipse")

// Conic holds the coefficients of Ax² + Bxy + Cy² + Dx + Ey + F = 0.
type Conic struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Coefficients returns A through F in order.
func (c Conic) Coefficients() [6]float64 {
	return [6]float64{c.A, c.B, c.C, c.D, c.E, c.F}
}

// Eval returns the algebraic distance of p from the conic.
func (c Conic) Eval(p r2.Point) float64 {
	return c.A*p.X*p.X + c.B*p.X*p.Y + c.C*p.Y*p.Y + c.D*p.X + c.E*p.Y + c.F
}

// Discriminant returns B² - 4AC.
func (c Conic) Discriminant() float64 {
	return c.B*c.B - 4*c.A*c.C
}

// IsEllipse reports whether the quadratic part is elliptic.
func (c Conic) IsEllipse() bool {
	return c.Discriminant() < 0
}

// Normalized returns c scaled to unit norm with A + C >= 0.
func (c Conic) Normalized() Conic {
	k := 0.0
	for _, v := range c.Coefficients() {
		k += v * v
	}
	if k == 0 {
		return c
	}
	k = 1 / math.Sqrt(k)
	if c.A+c.C < 0 {
		k = -k
	}
	return Conic{A: c.A * k, B: c.B * k, C: c.C * k, D: c.D * k, E: c.E * k, F: c.F * k}
}

// Ellipse is a conic in geometric form.
type Ellipse struct {
	Center    r2.Point `json:"center"`
	SemiMajor float64  `json:"semi_major"`
	SemiMinor float64  `json:"semi_minor"`

	// Angle is the rotation of the major axis from the x axis in radians.
	Angle float64 `json:"angle"`
}

// Params converts c to geometric form.
func (c Conic) Params() (Ellipse, error) {
	c = c.Normalized()
	den := c.Discriminant()
	if !(den < 0) {
		return Ellipse{}, errors.Wrapf(ErrNotEllipse, "discriminant %g", den)
	}

	q := 2 * (c.A*c.E*c.E + c.C*c.D*c.D - c.B*c.D*c.E + den*c.F)
	r := math.Hypot(c.A-c.C, c.B)
	major := q * (c.A + c.C + r)
	minor := q * (c.A + c.C - r)
	if !(major > 0) || !(minor > 0) {
		return Ellipse{}, errors.Wrap(ErrNotEllipse, "imaginary or degenerate ellipse")
	}

	var angle float64
	switch {
	case c.B != 0:
		angle = math.Atan((c.C - c.A - r) / c.B)
	case c.A > c.C:
		angle = math.Pi / 2
	}

	return Ellipse{
		Center: r2.Point{
			X: (2*c.C*c.D - c.B*c.E) / den,
			Y: (2*c.A*c.E - c.B*c.D) / den,
		},
		SemiMajor: -math.Sqrt(major) / den,
		SemiMinor: -math.Sqrt(minor) / den,
		Angle:     angle,
	}, nil
}

// PointAt returns the point at parameter t on the ellipse.
func (e Ellipse) PointAt(t float64) r2.Point {
	s, c := math.Sincos(t)
	return geometry.Rotate2D(r2.Point{X: e.SemiMajor * c, Y: e.SemiMinor * s}, e.Angle).Add(e.Center)
}

// Sample returns n points evenly spaced in parameter around the ellipse.
func (e Ellipse) Sample(n int) []r2.Point {
	pts := make([]r2.Point, n)
	for i := range pts {
		pts[i] = e.PointAt(2 * math.Pi * float64(i) / float64(n))
	}
	return pts
}

// Conic returns the implicit form of e.
func (e Ellipse) Conic() Conic {
	a2, b2 := e.SemiMajor*e.SemiMajor, e.SemiMinor*e.SemiMinor
	s, c := math.Sincos(e.Angle)
	x0, y0 := e.Center.X, e.Center.Y

	A := a2*s*s + b2*c*c
	B := 2 * (b2 - a2) * s * c
	C := a2*c*c + b2*s*s
	return Conic{
		A: A,
		B: B,
		C: C,
		D: -2*A*x0 - B*y0,
		E: -B*x0 - 2*C*y0,
		F: A*x0*x0 + B*x0*y0 + C*y0*y0 - a2*b2,
	}
}
