package fauna

import "herdwatch/pkg/geometry"

// Cat is an Animal.
type Cat struct {
	Animal
}

func NewCat(name string, pose geometry.Locator) (*Cat, error) {
	a, err := NewAnimal(name, pose)
	if err != nil {
		return nil, err
	}
	return &Cat{Animal: *a}, nil
}
