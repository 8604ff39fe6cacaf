package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Line is a segment between two points, either in image or ground space.
type Line struct {
	Start r2.Point `json:"start"`
	End   r2.Point `json:"end"`
}

// Direction returns End - Start.
func (l Line) Direction() r2.Point {
	return l.End.Sub(l.Start)
}

// Length returns the distance between the endpoints.
func (l Line) Length() float64 {
	return l.Direction().Norm()
}

// Side returns the cross product of the line direction with (p - Start).
//
// In an image (y down) a positive value means p lies below a line that runs
// left to right.
func (l Line) Side(p r2.Point) float64 {
	return l.Direction().Cross(p.Sub(l.Start))
}

// YAt returns the y coordinate of the infinite line through the segment at x.
// The second value is false for vertical lines.
func (l Line) YAt(x float64) (float64, bool) {
	d := l.Direction()
	if math.Abs(d.X) < 1e-12 {
		return 0, false
	}
	return l.Start.Y + (x-l.Start.X)*d.Y/d.X, true
}
