package fauna

import "herdwatch/pkg/geometry"

// Dog is an Animal.
type Dog struct {
	Animal
}

func NewDog(name string, pose geometry.Locator) (*Dog, error) {
	a, err := NewAnimal(name, pose)
	if err != nil {
		return nil, err
	}
	return &Dog{Animal: *a}, nil
}
