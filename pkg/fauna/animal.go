// Package fauna models tracked animals on top of the geometry package.
package fauna

import (
	"errors"
	"reflect"

	"herdwatch/pkg/geometry"
)

var ErrNilPose = errors.New("animal pose is required")

// Named is implemented by anything with a display name.
type Named interface {
	Name() string
}

// Tracked is a named thing with a position on the plane.
type Tracked interface {
	Named
	Pose() geometry.Locator
}

// Creature is a Tracked value that can measure toward other tracked values.
type Creature interface {
	Tracked
	DistanceAndHeadingTo(other Tracked) (distance, heading float64)
}

// Animal owns its pose. The pose may be a bare geometry.Point or an
// oriented geometry.Pose; both are value types, so it is never shared.
type Animal struct {
	name string
	pose geometry.Locator
}

func NewAnimal(name string, pose geometry.Locator) (*Animal, error) {
	if isNilLocator(pose) {
		return nil, ErrNilPose
	}
	return &Animal{name: name, pose: pose}, nil
}

// isNilLocator also catches typed nil pointers such as (*geometry.Pose)(nil),
// which satisfy Locator through the value-receiver method set.
func isNilLocator(pose geometry.Locator) bool {
	if pose == nil {
		return true
	}
	v := reflect.ValueOf(pose)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func (a *Animal) Name() string {
	return a.name
}

func (a *Animal) Pose() geometry.Locator {
	return a.pose
}

// DistanceAndHeadingTo measures from this animal to other. The other
// animal's pose is reduced to its bare position, while the receiver's own
// pose decides how heading is computed: an oriented pose yields a heading
// relative to where the animal is facing.
func (a *Animal) DistanceAndHeadingTo(other Tracked) (distance, heading float64) {
	target := other.Pose().Position()
	return a.pose.DistanceTo(target), a.pose.HeadingTo(target)
}
