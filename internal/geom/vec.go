// Package geom provides the 2D vector math used by movement, knockback and
// spatial queries.
package geom

import "math"

// Vec is a point or direction on the simulation plane.
type Vec struct {
	X float64
	Y float64
}

func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }
func (v Vec) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64  { return v.Sub(o).Len() }
func (v Vec) IsZero() bool        { return v.X == 0 && v.Y == 0 }
func (v Vec) Dot(o Vec) float64   { return v.X*o.X + v.Y*o.Y }

// Normalize returns the unit vector of v, or the zero vector when v has no
// length (coincident source and target produce no knockback direction).
func (v Vec) Normalize() Vec {
	l := v.Len()
	if l < 1e-9 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// StepToward moves from v toward target by at most maxStep and reports
// whether the target was reached.
func (v Vec) StepToward(target Vec, maxStep float64) (Vec, bool) {
	d := target.Sub(v)
	l := d.Len()
	if l <= maxStep || l < 1e-9 {
		return target, true
	}
	return v.Add(d.Scale(maxStep / l)), false
}
