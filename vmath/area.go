package vmath

import (
	"math"

	"github.com/lixenwraith/muffle/core"
)

// PolygonArea returns the absolute shoelace area of a closed polygon
// Fewer than three points yield zero
func PolygonArea(points []core.Vec2) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// RingDirections returns n unit vectors evenly spaced around the circle
// Used to build listener-centred ray fans
func RingDirections(n int) []core.Vec2 {
	if n <= 0 {
		return nil
	}
	dirs := make([]core.Vec2, n)
	step := 2 * math.Pi / float64(n)
	for i := range dirs {
		a := step * float64(i)
		dirs[i] = core.Vec2{X: math.Cos(a), Y: math.Sin(a)}
	}
	return dirs
}
