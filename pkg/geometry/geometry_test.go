package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-12

func TestPointDistanceTo(t *testing.T) {
	origin := NewPoint(0, 0)
	assert.Equal(t, 5.0, origin.DistanceTo(NewPoint(3, 4)))

	pts := []Point{
		{0, 0}, {3, 4}, {-7.5, 2.25}, {1e300, -1e300}, {-1e-300, 4},
	}
	for _, p := range pts {
		assert.Zero(t, p.DistanceTo(p), "self distance for %v", p)
		for _, q := range pts {
			assert.Equal(t, p.DistanceTo(q), q.DistanceTo(p), "symmetry %v %v", p, q)
		}
	}
}

func TestPointDistanceToLargeMagnitudes(t *testing.T) {
	d := NewPoint(-1e200, 0).DistanceTo(NewPoint(1e200, 0))
	assert.False(t, math.IsInf(d, 0))
	assert.InEpsilon(t, 2e200, d, eps)
}

func TestPointHeadingTo(t *testing.T) {
	origin := NewPoint(0, 0)
	assert.Equal(t, 0.0, origin.HeadingTo(NewPoint(1, 0)))
	assert.Equal(t, math.Pi/2, origin.HeadingTo(NewPoint(0, 1)))
	assert.Equal(t, math.Pi, origin.HeadingTo(NewPoint(-1, 0)))
	assert.Equal(t, -math.Pi/2, origin.HeadingTo(NewPoint(0, -1)))
}

func TestPointHeadingToCoincident(t *testing.T) {
	p := NewPoint(2, 2)
	assert.Equal(t, 0.0, p.HeadingTo(p))
}

func TestPointHeadingAntisymmetry(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {1, 0}},
		{{1, 2}, {-3, 5}},
		{{-4, -4}, {2, -9}},
	}
	for _, pq := range pairs {
		p, q := pq[0], pq[1]
		diff := math.Abs(p.HeadingTo(q) - q.HeadingTo(p))
		assert.InDelta(t, math.Pi, diff, eps, "pair %v", pq)
	}
}

func TestPoseHeadingToIsRelative(t *testing.T) {
	pose := NewPose(0, 0, math.Pi/2)
	assert.Equal(t, 0.0, pose.HeadingTo(NewPoint(0, 1)))

	// Not normalized: can fall outside (-π, π].
	pose = NewPose(0, 0, math.Pi)
	assert.InDelta(t, -3*math.Pi/2, pose.HeadingTo(NewPoint(0, -1)), eps)
}

func TestPoseDistanceMatchesPoint(t *testing.T) {
	pose := NewPose(1, 1, 2.5)
	other := NewPoint(4, 5)
	assert.Equal(t, pose.Point.DistanceTo(other), pose.DistanceTo(other))
	assert.Equal(t, 5.0, pose.DistanceTo(other))
}

func TestLocatorDispatch(t *testing.T) {
	target := NewPoint(0, 1)
	locs := []Locator{NewPoint(0, 0), NewPose(0, 0, math.Pi/2)}
	want := []float64{math.Pi / 2, 0}
	for i, l := range locs {
		assert.Equal(t, NewPoint(0, 0), l.Position())
		assert.Equal(t, want[i], l.HeadingTo(target))
	}
}

func TestDirectionValues(t *testing.T) {
	assert.Equal(t, 1, int(North))
	assert.Equal(t, 2, int(East))
	assert.Equal(t, 3, int(South))
	assert.Equal(t, 4, int(West))
	assert.Equal(t, []Direction{North, East, South, West}, Directions())

	assert.False(t, Direction(0).Valid())
	assert.False(t, Direction(5).Valid())
	assert.Equal(t, "Direction(5)", Direction(5).String())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" west ")
	require.NoError(t, err)
	assert.Equal(t, West, d)

	_, err = ParseDirection("UP")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestDirectionJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Direction{"facing": South})
	require.NoError(t, err)
	assert.JSONEq(t, `{"facing":"SOUTH"}`, string(b))

	var out struct {
		Facing Direction `json:"facing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"facing":"north"}`), &out))
	assert.Equal(t, North, out.Facing)

	assert.Error(t, json.Unmarshal([]byte(`{"facing":"FIFTH"}`), &out))
	_, err = json.Marshal(map[string]Direction{"facing": Direction(9)})
	assert.Error(t, err)
}

func TestCardinal(t *testing.T) {
	cases := []struct {
		heading float64
		want    Direction
	}{
		{0, East},
		{math.Pi / 2, North},
		{math.Pi, West},
		{-math.Pi / 2, South},
		{3 * math.Pi / 2, South},
		{2*math.Pi + 0.1, East},
		{-2*math.Pi + math.Pi/2, North},
		{math.Atan2(4, 3), North},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Cardinal(c.heading), "heading %v", c.heading)
	}
}
