// Package geometry holds the planar position model shared by the tracker:
// points, oriented poses and the cardinal direction set.
package geometry

import "math"

// Locator is anything that occupies a position and can measure toward
// another point. Point and Pose both satisfy it.
type Locator interface {
	Position() Point
	DistanceTo(other Point) float64
	HeadingTo(other Point) float64
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Position() Point {
	return p
}

// DistanceTo returns the Euclidean distance to other.
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// HeadingTo returns the angle in radians of the vector from p to other,
// in (-π, π]. Coincident points yield 0.
func (p Point) HeadingTo(other Point) float64 {
	return math.Atan2(other.Y-p.Y, other.X-p.X)
}
