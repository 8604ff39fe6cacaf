package geometry

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
)

func TestLineSide(t *testing.T) {
	horizon := Line{Start: r2.Point{X: 0, Y: 240}, End: r2.Point{X: 640, Y: 240}}

	tests := []struct {
		name  string
		p     r2.Point
		below bool
	}{
		{"below", r2.Point{X: 320, Y: 300}, true},
		{"above", r2.Point{X: 320, Y: 100}, false},
		{"on line", r2.Point{X: 10, Y: 240}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.below, horizon.Side(tt.p) > 0)
		})
	}
}

func TestLineYAt(t *testing.T) {
	l := Line{Start: r2.Point{X: 0, Y: 10}, End: r2.Point{X: 100, Y: 60}}
	y, ok := l.YAt(50)
	assert.True(t, ok)
	assert.InDelta(t, 35, y, tol)
	assert.InDelta(t, 111.803398875, l.Length(), 1e-6)

	_, ok = Line{Start: r2.Point{X: 5}, End: r2.Point{X: 5, Y: 9}}.YAt(5)
	assert.False(t, ok)
}
