package embeddednats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herdwatch/pkg/shared"
)

func startTestNATS(t *testing.T) *EmbeddedNATS {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = -1
	cfg.DataDir = t.TempDir()

	en, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, en.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	})
	return en
}

func TestHealthCheckBeforeStart(t *testing.T) {
	en, err := New(nil)
	require.NoError(t, err)
	assert.Error(t, en.HealthCheck())
	assert.Error(t, en.PublishWithDedup("x", nil, "1"))
}

func TestStreamsAndDedup(t *testing.T) {
	en := startTestNATS(t)
	require.NoError(t, en.HealthCheck())
	require.NoError(t, en.CreateHerdwatchStreams())
	// Re-declaring updates in place.
	require.NoError(t, en.CreateHerdwatchStreams())

	subject := shared.AnimalEventSubject("p1", shared.EventTypeCreated)
	require.NoError(t, en.PublishWithDedup(subject, []byte(`{}`), "a1-created"))
	require.NoError(t, en.PublishWithDedup(subject, []byte(`{}`), "a1-created"))

	info, err := en.JetStream().StreamInfo(shared.StreamAnimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestCreateDurableConsumerIsIdempotent(t *testing.T) {
	en := startTestNATS(t)
	require.NoError(t, en.CreateHerdwatchStreams())

	for i := 0; i < 2; i++ {
		require.NoError(t, en.CreateDurableConsumer(
			shared.StreamTelemetry, shared.ConsumerTelemetryProcessor, shared.SubjectTelemetryAll))
	}

	info, err := en.JetStream().ConsumerInfo(shared.StreamTelemetry, shared.ConsumerTelemetryProcessor)
	require.NoError(t, err)
	assert.Equal(t, shared.SubjectTelemetryAll, info.Config.FilterSubject)
}
