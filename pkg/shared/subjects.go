package shared

import "fmt"

// NATS Subject patterns
const (
	SubjectPrefix = "herdwatch"

	// Animal lifecycle subjects
	SubjectAnimals       = "herdwatch.animals"
	SubjectAnimalsAll    = "herdwatch.animals.>"
	SubjectAnimalCreated = "herdwatch.animals.%s.created" // pack_id
	SubjectAnimalMoved   = "herdwatch.animals.%s.moved"   // pack_id
	SubjectAnimalDeleted = "herdwatch.animals.%s.deleted" // pack_id

	// Telemetry subjects
	SubjectTelemetry       = "herdwatch.telemetry"
	SubjectTelemetryAll    = "herdwatch.telemetry.>"
	SubjectTelemetryAnimal = "herdwatch.telemetry.%s.%s" // pack_id, animal_id
)

// Stream names
const (
	StreamAnimals   = "HERDWATCH_ANIMALS"
	StreamTelemetry = "HERDWATCH_TELEMETRY"
)

// Consumer names
const (
	ConsumerAnimalProcessor    = "animal-processor"
	ConsumerTelemetryProcessor = "telemetry-processor"
)

// AnimalEventSubject returns the lifecycle subject for an event type.
func AnimalEventSubject(packID, eventType string) string {
	switch eventType {
	case EventTypeCreated:
		return fmt.Sprintf(SubjectAnimalCreated, packID)
	case EventTypeMoved:
		return fmt.Sprintf(SubjectAnimalMoved, packID)
	case EventTypeDeleted:
		return fmt.Sprintf(SubjectAnimalDeleted, packID)
	default:
		return fmt.Sprintf("%s.%s.%s", SubjectAnimals, packID, eventType)
	}
}

func TelemetryAnimalSubject(packID, animalID string) string {
	return fmt.Sprintf(SubjectTelemetryAnimal, packID, animalID)
}
