// Package ellipse fits implicit conics to unordered point sets.
//
// The fitter is used on the edge points of the field's center circle. It
// builds the scatter matrix of the monomials x², xy, y², x, y, 1, factors it
// with a Cholesky decomposition, inverts the factor and picks the candidate
// coefficient vector that satisfies the ellipse constraint B² - 4AC < 0.
//
// A Fitter owns its scratch matrices. Each camera pipeline should own its own
// Fitter; a single Fitter must not be used from several goroutines at once.
package ellipse

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// Failure kinds. Both mean "no ellipse this frame".
var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)

const (
	// n is the number of conic coefficients.
	n = 6

	// MinPoints is the number of distinct points needed to determine a conic.
	MinPoints = n

	// pivotEpsilon is the smallest pivot magnitude Gauss-Jordan accepts.
	pivotEpsilon = 1e-20

	// constraintThreshold is how negative B² - 4AC must be for a candidate.
	constraintThreshold = -1e-19

	// finalPivotTolerance is the relative tolerance of the last Cholesky
	// pivot. Points lying exactly on one conic make the scatter matrix
	// singular and leave that pivot at zero up to rounding.
	finalPivotTolerance = 1e-12
)

// Fitter fits conics with reusable scratch storage.
type Fitter struct {
	mono    *mat.VecDense
	scatter *mat.SymDense
	chol    *mat.TriDense
	aug     *mat.Dense
}

// NewFitter allocates a fitter.
func NewFitter() *Fitter {
	return &Fitter{
		mono:    mat.NewVecDense(n, nil),
		scatter: mat.NewSymDense(n, nil),
		chol:    mat.NewTriDense(n, mat.Lower, nil),
		aug:     mat.NewDense(n, 2*n, nil),
	}
}

// Fit is a convenience wrapper that fits with a fresh Fitter.
func Fit(points []r2.Point) (Conic, error) {
	return NewFitter().Fit(points)
}

// Fit returns the conic through points in the least-squares sense. The result
// is determined only up to a nonzero scale factor.
func (f *Fitter) Fit(points []r2.Point) (Conic, error) {
	unique := lo.Uniq(points)
	if len(unique) < MinPoints {
		return Conic{}, errors.Wrapf(ErrInsufficientData, "%d unique points, need %d", len(unique), MinPoints)
	}

	f.buildScatter(unique)
	if err := f.factor(); err != nil {
		return Conic{}, err
	}
	if err := f.invertFactor(); err != nil {
		return Conic{}, err
	}
	return f.selectCandidate()
}

func (f *Fitter) buildScatter(points []r2.Point) {
	f.scatter.Zero()
	for _, p := range points {
		f.mono.SetVec(0, p.X*p.X)
		f.mono.SetVec(1, p.X*p.Y)
		f.mono.SetVec(2, p.Y*p.Y)
		f.mono.SetVec(3, p.X)
		f.mono.SetVec(4, p.Y)
		f.mono.SetVec(5, 1)
		f.scatter.SymRankOne(f.scatter, 1, f.mono)
	}
}

// factor computes the lower Cholesky factor of the scatter matrix, column by
// column.
func (f *Fitter) factor() error {
	f.chol.Zero()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := f.scatter.At(i, j)
			for k := i - 1; k >= 0; k-- {
				sum -= f.chol.At(i, k) * f.chol.At(j, k)
			}
			if i == j {
				if sum <= 0 {
					tol := finalPivotTolerance * f.scatter.At(i, i)
					if i != n-1 || !(sum > -tol) {
						return errors.Wrapf(ErrNumericalDegeneracy, "scatter matrix not positive definite at pivot %d", i)
					}
					sum = tol
				}
				f.chol.SetTri(i, i, math.Sqrt(sum))
				continue
			}
			d := f.chol.At(i, i)
			if d == 0 {
				return errors.Wrapf(ErrNumericalDegeneracy, "zero pivot %d", i)
			}
			f.chol.SetTri(j, i, sum/d)
		}
	}
	return nil
}

// invertFactor runs Gauss-Jordan elimination with partial pivoting on [L | I],
// leaving L⁻¹ in the right half of the augmented matrix.
func (f *Fitter) invertFactor() error {
	f.aug.Zero()
	for i := 0; i < n; i++ {
		row := f.aug.RawRowView(i)
		for j := 0; j <= i; j++ {
			row[j] = f.chol.At(i, j)
		}
		row[n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot, big := col, math.Abs(f.aug.At(col, col))
		for r := col + 1; r < n; r++ {
			if v := math.Abs(f.aug.At(r, col)); v > big {
				pivot, big = r, v
			}
		}
		if big < pivotEpsilon {
			return errors.Wrapf(ErrNumericalDegeneracy, "singular factor at column %d", col)
		}

		cur := f.aug.RawRowView(col)
		if pivot != col {
			other := f.aug.RawRowView(pivot)
			for c := range cur {
				cur[c], other[c] = other[c], cur[c]
			}
		}

		inv := 1 / cur[col]
		if inv == 0 || math.IsInf(inv, 0) {
			return errors.Wrapf(ErrNumericalDegeneracy, "unusable divisor at column %d", col)
		}
		for c := range cur {
			cur[c] *= inv
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			row := f.aug.RawRowView(r)
			factor := row[col]
			if factor == 0 {
				continue
			}
			for c := range row {
				row[c] -= factor * cur[c]
			}
		}
	}
	return nil
}

// selectCandidate returns the last row of L⁻¹ whose ellipse constraint,
// evaluated on the raw row before normalization, is below
// constraintThreshold. The returned row is normalized to unit length.
func (f *Fitter) selectCandidate() (Conic, error) {
	var (
		best  [n]float64
		found bool
	)
	for i := 0; i < n; i++ {
		cand := f.aug.RawRowView(i)[n:]
		constraint := cand[1]*cand[1] - 4*cand[0]*cand[2]

		norm := 0.0
		for _, v := range cand {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return Conic{}, errors.Wrapf(ErrNumericalDegeneracy, "zero candidate %d", i)
		}

		if constraint < constraintThreshold {
			for j, v := range cand {
				best[j] = v / norm
			}
			found = true
		}
	}
	if !found {
		return Conic{}, errors.Wrap(ErrNumericalDegeneracy, "no candidate satisfies the ellipse constraint")
	}

	c := Conic{A: best[0], B: best[1], C: best[2], D: best[3], E: best[4], F: best[5]}
	if c == (Conic{}) {
		return Conic{}, errors.Wrap(ErrNumericalDegeneracy, "all coefficients are zero")
	}
	return c, nil
}
