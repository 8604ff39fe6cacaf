package ellipse

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func unitCircle(start float64) []r2.Point {
	pts := make([]r2.Point, 6)
	for k := range pts {
		a := start + float64(k)*math.Pi/3
		pts[k] = r2.Point{X: math.Cos(a), Y: math.Sin(a)}
	}
	return pts
}

// perturbed samples e with a deterministic wobble of the given amplitude.
func perturbed(e Ellipse, count int, amp float64) []r2.Point {
	pts := e.Sample(count)
	for k := range pts {
		pts[k].X += amp * math.Sin(7*float64(k)+1)
		pts[k].Y += amp * math.Cos(5*float64(k)+2)
	}
	return pts
}

func TestFitUnitCircle(t *testing.T) {
	for k := 0; k < 6; k++ {
		c, err := Fit(unitCircle(float64(k) * math.Pi / 3))
		require.NoError(t, err, "start %d", k)

		assert.InDelta(t, c.A, c.C, 1e-6)
		assert.InDelta(t, 0, c.B, 1e-6)
		assert.InDelta(t, 0, c.D, 1e-6)
		assert.InDelta(t, 0, c.E, 1e-6)
		assert.Less(t, c.A*c.F, 0.0)
		assert.InDelta(t, -c.A, c.F, 1e-6)
	}
}

func TestFitInsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		points []r2.Point
	}{
		{"empty", nil},
		{"five points", unitCircle(0)[:5]},
		{"duplicates", append(unitCircle(0)[:5], unitCircle(0)[:5]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.points)
			assert.True(t, errors.Is(err, ErrInsufficientData), "err = %v", err)
		})
	}
}

func TestFitCollinear(t *testing.T) {
	pts := make([]r2.Point, 8)
	for k := range pts {
		pts[k] = r2.Point{X: float64(k), Y: 0}
	}
	_, err := Fit(pts)
	assert.True(t, errors.Is(err, ErrNumericalDegeneracy), "err = %v", err)
}

func TestFitRecoversEllipse(t *testing.T) {
	tests := []struct {
		name   string
		want   Ellipse
		count  int
		amp    float64
		tolPos float64
		tolAng float64
	}{
		{"exact image scale", Ellipse{Center: r2.Point{X: 320, Y: 240}, SemiMajor: 120, SemiMinor: 60, Angle: 0.5}, 40, 0, 1e-6, 1e-6},
		{"few exact points", Ellipse{Center: r2.Point{X: 300, Y: 200}, SemiMajor: 80, SemiMinor: 50, Angle: -0.3}, 12, 0, 1e-6, 1e-6},
		{"noisy image scale", Ellipse{Center: r2.Point{X: 320, Y: 240}, SemiMajor: 120, SemiMinor: 60, Angle: 0.5}, 40, 0.5, 0.5, 0.01},
		{"noisy unit scale", Ellipse{Center: r2.Point{X: 0.1, Y: -0.2}, SemiMajor: 1, SemiMinor: 0.6, Angle: 0.4}, 30, 0.01, 0.01, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Fit(perturbed(tt.want, tt.count, tt.amp))
			require.NoError(t, err)
			assert.True(t, c.IsEllipse())

			got, err := c.Params()
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Center.X, got.Center.X, tt.tolPos)
			assert.InDelta(t, tt.want.Center.Y, got.Center.Y, tt.tolPos)
			assert.InDelta(t, tt.want.SemiMajor, got.SemiMajor, tt.tolPos)
			assert.InDelta(t, tt.want.SemiMinor, got.SemiMinor, tt.tolPos)
			assert.InDelta(t, tt.want.Angle, got.Angle, tt.tolAng)
		})
	}
}

// qualifying returns the rows of L⁻¹ left in f that pass the ellipse
// constraint.
func qualifying(f *Fitter) []int {
	var rows []int
	for i := 0; i < n; i++ {
		row := f.aug.RawRowView(i)[n:]
		if row[1]*row[1]-4*row[0]*row[2] < constraintThreshold {
			rows = append(rows, i)
		}
	}
	return rows
}

func normalizedRow(f *Fitter, i int) Conic {
	row := f.aug.RawRowView(i)[n:]
	norm := 0.0
	for _, v := range row {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	return Conic{A: row[0] / norm, B: row[1] / norm, C: row[2] / norm, D: row[3] / norm, E: row[4] / norm, F: row[5] / norm}
}

func TestFitPicksLastQualifyingCandidate(t *testing.T) {
	f := NewFitter()
	e := Ellipse{Center: r2.Point{X: 320, Y: 240}, SemiMajor: 120, SemiMinor: 60, Angle: 0.5}

	c, err := f.Fit(perturbed(e, 40, 0.5))
	require.NoError(t, err)

	// Rows 3 and 5 both pass; the later one is returned.
	require.Equal(t, []int{3, 5}, qualifying(f))
	if diff := cmp.Diff(normalizedRow(f, 5), c, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("fit is not the last qualifying row (-want +got):\n%s", diff)
	}
}

func TestSelectCandidateIgnoresMostNegative(t *testing.T) {
	f := NewFitter()
	rows := [n][n]float64{
		{1, 0, 0, 0, 0, 0},
		{1, 1, 0, 0, 0, 0},
		{1, 0, 1, 0, 0, 0},      // B² - 4AC = -4
		{1, 0, 0, 1, 0, 0},      // 0
		{1, 0.1, 0.01, 0, 0, 1}, // -0.03
		{1, 3, 1, 0, 0, 1},      // 5
	}
	for i, r := range rows {
		copy(f.aug.RawRowView(i)[n:], r[:])
	}
	require.Equal(t, []int{2, 4}, qualifying(f))

	c, err := f.selectCandidate()
	require.NoError(t, err)
	if diff := cmp.Diff(normalizedRow(f, 4), c, cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Errorf("want row 4, not the most negative row 2 (-want +got):\n%s", diff)
	}
}

func TestSelectCandidateNoneQualify(t *testing.T) {
	f := NewFitter()
	for i := 0; i < n; i++ {
		f.aug.Set(i, n+i, 1)
	}
	_, err := f.selectCandidate()
	assert.True(t, errors.Is(err, ErrNumericalDegeneracy), "err = %v", err)
}

func TestFitterReuse(t *testing.T) {
	f := NewFitter()
	e := Ellipse{Center: r2.Point{X: 320, Y: 240}, SemiMajor: 120, SemiMinor: 60, Angle: 0.5}

	first, err := f.Fit(e.Sample(40))
	require.NoError(t, err)

	line := make([]r2.Point, 8)
	for k := range line {
		line[k] = r2.Point{X: float64(k)}
	}
	_, err = f.Fit(line)
	require.Error(t, err)

	second, err := f.Fit(e.Sample(40))
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("fit changed after reuse (-first +second):\n%s", diff)
	}
}

func TestCholeskyMatchesGonum(t *testing.T) {
	f := NewFitter()
	pts := perturbed(Ellipse{Center: r2.Point{X: 0.1, Y: -0.2}, SemiMajor: 1, SemiMinor: 0.6, Angle: 0.4}, 30, 0.01)
	_, err := f.Fit(pts)
	require.NoError(t, err)

	var chol mat.Cholesky
	require.True(t, chol.Factorize(f.scatter))
	var want mat.TriDense
	chol.LTo(&want)
	assert.True(t, mat.EqualApprox(&want, f.chol, 1e-9), "factor mismatch\nwant %v\ngot  %v",
		mat.Formatted(&want), mat.Formatted(f.chol))

	// L times the computed inverse is the identity.
	var inv, prod mat.Dense
	inv.CloneFrom(f.aug.Slice(0, n, n, 2*n))
	prod.Mul(f.chol, &inv)
	assert.True(t, mat.EqualApprox(&prod, mat.NewDiagDense(n, []float64{1, 1, 1, 1, 1, 1}), 1e-9))
}
