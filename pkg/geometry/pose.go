package geometry

// Pose is a position plus an orientation in radians. Heading is stored as
// given and never normalized.
type Pose struct {
	Point
	Heading float64 `json:"heading"`
}

func NewPose(x, y, heading float64) Pose {
	return Pose{Point: Point{X: x, Y: y}, Heading: heading}
}

// HeadingTo returns the bearing to other relative to the pose's own heading.
// The result is not wrapped back into (-π, π].
func (p Pose) HeadingTo(other Point) float64 {
	return p.Point.HeadingTo(other) - p.Heading
}
