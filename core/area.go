package core

import "math"

// Rect is an axis-aligned world rectangle
// (X, Y) is the minimum corner; Y grows upward so a water surface sits at Y + level
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the maximum X edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the maximum Y edge
func (r Rect) Top() float64 { return r.Y + r.Height }

// Center returns the midpoint of the rectangle
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area returns width × height, zero for degenerate rectangles
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Contains checks if point lies within the rectangle, edges inclusive
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Top()
}

// Expand grows the rectangle by d on every side
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// ClosestPoint clamps p into the rectangle
func (r Rect) ClosestPoint(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(r.X, math.Min(p.X, r.Right())),
		Y: math.Max(r.Y, math.Min(p.Y, r.Top())),
	}
}

// Edges returns the four boundary segments in bottom, right, top, left order
func (r Rect) Edges() [4][2]Vec2 {
	bl := Vec2{X: r.X, Y: r.Y}
	br := Vec2{X: r.Right(), Y: r.Y}
	tr := Vec2{X: r.Right(), Y: r.Top()}
	tl := Vec2{X: r.X, Y: r.Top()}
	return [4][2]Vec2{{bl, br}, {br, tr}, {tr, tl}, {tl, bl}}
}
