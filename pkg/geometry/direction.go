package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidDirection = errors.New("invalid direction")

// Direction is one of the four cardinal directions.
type Direction int

const (
	North Direction = iota + 1
	East
	South
	West
)

// Directions lists every valid Direction in declaration order.
func Directions() []Direction {
	return []Direction{North, East, South, West}
}

func (d Direction) Valid() bool {
	return d >= North && d <= West
}

func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts a direction name in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH":
		return North, nil
	case "EAST":
		return East, nil
	case "SOUTH":
		return South, nil
	case "WEST":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Cardinal returns the direction nearest to heading, using the math
// convention where 0 points along +X (east) and π/2 along +Y (north).
// Boundaries at odd multiples of π/4 resolve counter-clockwise.
func Cardinal(heading float64) Direction {
	a := math.Mod(heading, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	switch {
	case a < math.Pi/4 || a >= 7*math.Pi/4:
		return East
	case a < 3*math.Pi/4:
		return North
	case a < 5*math.Pi/4:
		return West
	default:
		return South
	}
}
