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
)

func TestConicParamsRoundTrip(t *testing.T) {
	tests := []Ellipse{
		{Center: r2.Point{X: 0, Y: 0}, SemiMajor: 2, SemiMinor: 1, Angle: 0},
		{Center: r2.Point{X: 3, Y: -1}, SemiMajor: 5, SemiMinor: 2, Angle: 0.7},
		{Center: r2.Point{X: 320, Y: 240}, SemiMajor: 150, SemiMinor: 40, Angle: -1.2},
		{Center: r2.Point{X: 10, Y: 10}, SemiMajor: 4, SemiMinor: 3, Angle: math.Pi / 2},
	}
	for _, want := range tests {
		c := want.Conic()
		assert.True(t, c.IsEllipse())

		got, err := c.Params()
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(1e-9, 1e-9)); diff != "" {
			t.Errorf("params mismatch (-want +got):\n%s", diff)
		}

		// A scaled, sign-flipped copy describes the same ellipse.
		scaled := Conic{A: -3 * c.A, B: -3 * c.B, C: -3 * c.C, D: -3 * c.D, E: -3 * c.E, F: -3 * c.F}
		again, err := scaled.Params()
		require.NoError(t, err)
		if diff := cmp.Diff(want, again, cmpopts.EquateApprox(1e-9, 1e-9)); diff != "" {
			t.Errorf("scaled params mismatch (-want +got):\n%s", diff)
		}

		for _, p := range want.Sample(8) {
			assert.InDelta(t, 0, c.Normalized().Eval(p), 1e-9)
		}
	}
}

func TestConicNormalized(t *testing.T) {
	c := Conic{A: -2, C: -2, F: 2}.Normalized()
	assert.InDelta(t, 1, c.A*c.A+c.C*c.C+c.F*c.F, 1e-12)
	assert.Greater(t, c.A, 0.0)
	assert.Less(t, c.F, 0.0)

	assert.Equal(t, Conic{}, Conic{}.Normalized())
}

func TestConicParamsRejectsNonEllipses(t *testing.T) {
	tests := []struct {
		name  string
		conic Conic
	}{
		{"hyperbola", Conic{A: 1, C: -1, F: -1}},
		{"parabola", Conic{A: 1, E: -1}},
		{"imaginary", Conic{A: 1, C: 1, F: 1}},
		{"point", Conic{A: 1, C: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.conic.Params()
			assert.True(t, errors.Is(err, ErrNotEllipse), "err = %v", err)
		})
	}
}

func TestEllipsePointAt(t *testing.T) {
	e := Ellipse{Center: r2.Point{X: 1, Y: 2}, SemiMajor: 3, SemiMinor: 1, Angle: math.Pi / 2}
	p := e.PointAt(0)
	assert.InDelta(t, 1, p.X, 1e-12)
	assert.InDelta(t, 5, p.Y, 1e-12)

	assert.Len(t, e.Sample(16), 16)
}
