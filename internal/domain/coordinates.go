package domain

import "math"

// Immutable planar coordinates (metres) on the instance's Euclidean plane.
type Coordinates struct {
	X float64
	Y float64
}

// Euclidean distance to another point, in metres.
func (c Coordinates) DistanceTo(o Coordinates) float64 {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}
