package projection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/ellipse"
)

// minCircleSamples is the fewest projected samples a ground circle is
// estimated from.
const minCircleSamples = 5

// GroundCircle is a circle on the field estimated from an image ellipse.
type GroundCircle struct {
	Center r2.Point `json:"center"`
	Radius float64  `json:"radius"`

	// Spread is the standard deviation of the sample distances from Center.
	Spread float64 `json:"spread"`

	// Samples is the number of ellipse points that projected onto the ground.
	Samples int `json:"samples"`
}

// ProjectConic samples e, projects the samples below the horizon onto the
// ground and fits a circle to them. It returns ErrGeometricDegeneracy when too
// few samples reach the ground or the fit is singular.
func (e *Engine) ProjectConic(pose camera.CameraPose, el ellipse.Ellipse, samples int) (GroundCircle, error) {
	horizon, ok := e.Horizon(pose)
	if !ok {
		return GroundCircle{}, errors.Wrap(ErrGeometricDegeneracy, "no horizon")
	}

	ground := make([]r2.Point, 0, samples)
	for _, px := range el.Sample(samples) {
		if !BelowHorizon(px, horizon) {
			continue
		}
		if g, ok := e.Project(pose, px); ok {
			ground = append(ground, g)
		}
	}
	if len(ground) < minCircleSamples {
		return GroundCircle{}, errors.Wrapf(ErrGeometricDegeneracy, "%d of %d samples reached the ground", len(ground), samples)
	}

	center, radius, err := fitCircle(ground)
	if err != nil {
		return GroundCircle{}, err
	}

	dist := make([]float64, len(ground))
	for i, g := range ground {
		dist[i] = g.Sub(center).Norm()
	}
	return GroundCircle{
		Center:  center,
		Radius:  radius,
		Spread:  stat.StdDev(dist, nil),
		Samples: len(ground),
	}, nil
}

// fitCircle solves x² + y² + Dx + Ey + F = 0 in the least-squares sense.
func fitCircle(pts []r2.Point) (r2.Point, float64, error) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	// Center the data so the system stays well conditioned far from the robot.
	mx, my := stat.Mean(xs, nil), stat.Mean(ys, nil)

	a := mat.NewDense(len(pts), 3, nil)
	b := mat.NewVecDense(len(pts), nil)
	for i := range pts {
		x, y := xs[i]-mx, ys[i]-my
		a.SetRow(i, []float64{x, y, 1})
		b.SetVec(i, -(x*x + y*y))
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return r2.Point{}, 0, errors.Wrapf(ErrGeometricDegeneracy, "circle fit: %v", err)
	}
	d, ee, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	r2sq := (d*d+ee*ee)/4 - f
	if !(r2sq > 0) {
		return r2.Point{}, 0, errors.Wrap(ErrGeometricDegeneracy, "circle fit has no real radius")
	}
	return r2.Point{X: mx - d/2, Y: my - ee/2}, math.Sqrt(r2sq), nil
}
