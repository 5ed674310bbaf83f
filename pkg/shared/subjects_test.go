package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnimalEventSubject(t *testing.T) {
	assert.Equal(t, "herdwatch.animals.p1.created", AnimalEventSubject("p1", EventTypeCreated))
	assert.Equal(t, "herdwatch.animals.p1.moved", AnimalEventSubject("p1", EventTypeMoved))
	assert.Equal(t, "herdwatch.animals.p1.deleted", AnimalEventSubject("p1", EventTypeDeleted))
	assert.Equal(t, "herdwatch.animals.p1.renamed", AnimalEventSubject("p1", "renamed"))
}

func TestTelemetryAnimalSubject(t *testing.T) {
	assert.Equal(t, "herdwatch.telemetry.p1.a9", TelemetryAnimalSubject("p1", "a9"))
}
