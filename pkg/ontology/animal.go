package ontology

import (
	"fmt"
	"time"

	"herdwatch/pkg/fauna"
	"herdwatch/pkg/geometry"
)

const (
	KindAnimal = "animal"
	KindDog    = "dog"
	KindCat    = "cat"
)

// AnimalRecord is the persisted form of an animal. A nil Heading means the
// animal has a bare position with no orientation.
type AnimalRecord struct {
	AnimalID  string    `json:"animal_id" db:"animal_id"`
	PackID    string    `json:"pack_id" db:"pack_id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	X         float64   `json:"x" db:"x"`
	Y         float64   `json:"y" db:"y"`
	Heading   *float64  `json:"heading,omitempty" db:"heading"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Locator returns a geometry.Pose when a heading is recorded and a
// geometry.Point otherwise.
func (r *AnimalRecord) Locator() geometry.Locator {
	if r.Heading != nil {
		return geometry.NewPose(r.X, r.Y, *r.Heading)
	}
	return geometry.NewPoint(r.X, r.Y)
}

// Creature builds the domain value for the record.
func (r *AnimalRecord) Creature() (fauna.Creature, error) {
	switch r.Kind {
	case KindDog:
		dog, err := fauna.NewDog(r.Name, r.Locator())
		if err != nil {
			return nil, err
		}
		return dog, nil
	case KindCat:
		cat, err := fauna.NewCat(r.Name, r.Locator())
		if err != nil {
			return nil, err
		}
		return cat, nil
	case KindAnimal, "":
		animal, err := fauna.NewAnimal(r.Name, r.Locator())
		if err != nil {
			return nil, err
		}
		return animal, nil
	default:
		return nil, fmt.Errorf("unknown animal kind %q", r.Kind)
	}
}

type PoseInput struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Heading *float64 `json:"heading,omitempty"`
}

type CreateAnimalRequest struct {
	Name string     `json:"name" validate:"required"`
	Kind string     `json:"kind,omitempty" validate:"omitempty,oneof=animal dog cat"`
	Pose *PoseInput `json:"pose" validate:"required"`
}

// PoseUpdate is the telemetry payload carried on the telemetry stream.
type PoseUpdate struct {
	PackID    string    `json:"pack_id"`
	AnimalID  string    `json:"animal_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PoseSample struct {
	HistoryID  string    `json:"history_id"`
	AnimalID   string    `json:"animal_id"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Heading    *float64  `json:"heading,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

type BearingResult struct {
	FromID   string             `json:"from_id"`
	ToID     string             `json:"to_id"`
	Distance float64            `json:"distance"`
	Heading  float64            `json:"heading"`
	Cardinal geometry.Direction `json:"cardinal"`
	Relative bool               `json:"relative"`
}
