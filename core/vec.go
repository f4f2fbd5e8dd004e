package core

import "math"

// Vec2 is a world-space position or direction
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return math.Hypot(v.X-o.X, v.Y-o.Y) }
func (v Vec2) Equal(o Vec2) bool    { return v.X == o.X && v.Y == o.Y }
func (v Vec2) IsFinite() bool       { return isFinite(v.X) && isFinite(v.Y) }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Normalize returns the unit vector, zero-safe
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 || !isFinite(l) {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// SegmentIntersect returns the intersection of segments p1-p2 and q1-q2
// t is the parameter along p1-p2; ok is false for parallel or disjoint segments
func SegmentIntersect(p1, p2, q1, q2 Vec2) (hit Vec2, t float64, ok bool) {
	r := p2.Sub(p1)
	s := q2.Sub(q1)
	denom := r.X*s.Y - r.Y*s.X
	if math.Abs(denom) < 1e-12 {
		return Vec2{}, 0, false
	}
	qp := q1.Sub(p1)
	t = (qp.X*s.Y - qp.Y*s.X) / denom
	u := (qp.X*r.Y - qp.Y*r.X) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, 0, false
	}
	return p1.Add(r.Scale(t)), t, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
