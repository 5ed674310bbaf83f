package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"herdwatch/pkg/ontology"
	embeddednats "herdwatch/pkg/services/embedded-nats"
	"herdwatch/pkg/shared"
)

func TestDecodePoseUpdate(t *testing.T) {
	update, err := decodePoseUpdate("herdwatch.telemetry.p1.a1", []byte(`{"x":3,"y":4,"heading":0.5}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", update.PackID)
	assert.Equal(t, "a1", update.AnimalID)
	assert.Equal(t, 3.0, update.X)
	require.NotNil(t, update.Heading)
	assert.Equal(t, 0.5, *update.Heading)
	assert.False(t, update.Timestamp.IsZero())

	update, err = decodePoseUpdate("herdwatch.telemetry.p1.a1", []byte(`{"pack_id":"p2","animal_id":"a2","x":1,"y":1}`))
	require.NoError(t, err)
	assert.Equal(t, "p2", update.PackID)
	assert.Equal(t, "a2", update.AnimalID)
	assert.Nil(t, update.Heading)

	_, err = decodePoseUpdate("herdwatch.telemetry", []byte(`{"x":1}`))
	assert.Error(t, err)

	_, err = decodePoseUpdate("herdwatch.telemetry.p1.a1", []byte(`not json`))
	assert.Error(t, err)
}

type blockingWorker struct {
	name    string
	stopped chan struct{}
	once    sync.Once
}

func newBlockingWorker(name string) *blockingWorker {
	return &blockingWorker{name: name, stopped: make(chan struct{})}
}

func (w *blockingWorker) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (w *blockingWorker) Stop() error {
	w.once.Do(func() { close(w.stopped) })
	return nil
}

func (w *blockingWorker) Name() string { return w.name }

func TestManagerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b := newBlockingWorker("a"), newBlockingWorker("b")
	m := newManager(zap.NewNop(), a, b)
	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())

	for _, w := range []*blockingWorker{a, b} {
		select {
		case <-w.stopped:
		default:
			t.Fatalf("worker %s was not stopped", w.name)
		}
	}
}

type failingStopWorker struct{ *blockingWorker }

func (w failingStopWorker) Stop() error { return errors.New("drain failed") }

func TestManagerStopReportsErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newManager(zap.NewNop(), failingStopWorker{newBlockingWorker("f")})
	require.NoError(t, m.Start())
	assert.EqualError(t, m.Stop(), "drain failed")
}

type recordingApplier struct {
	mu      sync.Mutex
	updates []ontology.PoseUpdate
	fail    bool
}

func (r *recordingApplier) ApplyPoseUpdate(_ context.Context, u ontology.PoseUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("store unavailable")
	}
	r.updates = append(r.updates, u)
	return nil
}

func (r *recordingApplier) snapshot() []ontology.PoseUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ontology.PoseUpdate(nil), r.updates...)
}

func TestTelemetryWorkerAppliesUpdates(t *testing.T) {
	cfg := embeddednats.DefaultConfig()
	cfg.Port = -1
	cfg.DataDir = t.TempDir()
	en, err := embeddednats.New(cfg)
	require.NoError(t, err)
	require.NoError(t, en.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	}()

	require.NoError(t, en.CreateHerdwatchStreams())
	require.NoError(t, en.CreateDurableConsumer(shared.StreamTelemetry, shared.ConsumerTelemetryProcessor, shared.SubjectTelemetryAll))
	require.NoError(t, en.CreateDurableConsumer(shared.StreamAnimals, shared.ConsumerAnimalProcessor, shared.SubjectAnimalsAll))

	applier := &recordingApplier{}
	m, err := NewManager(en, applier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Start())

	heading := 1.5
	payload, err := json.Marshal(ontology.PoseUpdate{X: 7, Y: -2, Heading: &heading})
	require.NoError(t, err)
	require.NoError(t, en.PublishWithDedup(shared.TelemetryAnimalSubject("p1", "a1"), payload, "a1-1"))
	require.NoError(t, en.PublishWithDedup(shared.TelemetryAnimalSubject("p1", "a1"), []byte("garbage"), "a1-2"))

	event, err := json.Marshal(shared.Event{ID: "e1", Type: shared.EventTypeCreated, Data: map[string]interface{}{"animal_id": "a1"}})
	require.NoError(t, err)
	require.NoError(t, en.PublishWithDedup(shared.AnimalEventSubject("p1", shared.EventTypeCreated), event, "e1"))

	require.Eventually(t, func() bool { return len(applier.snapshot()) == 1 }, 10*time.Second, 50*time.Millisecond)

	got := applier.snapshot()[0]
	assert.Equal(t, "p1", got.PackID)
	assert.Equal(t, "a1", got.AnimalID)
	assert.Equal(t, 7.0, got.X)
	assert.Equal(t, -2.0, got.Y)
	assert.Equal(t, heading, *got.Heading)

	require.NoError(t, m.Stop())
}

func TestNewManagerRequiresConnection(t *testing.T) {
	en, err := embeddednats.New(nil)
	require.NoError(t, err)
	_, err = NewManager(en, &recordingApplier{}, nil)
	assert.Error(t, err)
}

var errUnknownAnimal = errors.New("unknown animal")

type classifyingApplier struct {
	err error
}

func (c *classifyingApplier) ApplyPoseUpdate(context.Context, ontology.PoseUpdate) error {
	return c.err
}

func (c *classifyingApplier) Permanent(err error) bool {
	return errors.Is(err, errUnknownAnimal)
}

func TestTelemetryWorkerClassifiesApplyErrors(t *testing.T) {
	msg := &nats.Msg{Subject: "herdwatch.telemetry.p1.a1", Data: []byte(`{"x":1,"y":1}`)}

	t.Run("permanent", func(t *testing.T) {
		w := NewTelemetryWorker(nil, &classifyingApplier{err: errUnknownAnimal}, zap.NewNop())
		err := w.handle(context.Background(), msg)
		var perm permanentError
		require.ErrorAs(t, err, &perm)
		assert.ErrorIs(t, err, errUnknownAnimal)
	})

	t.Run("retryable", func(t *testing.T) {
		w := NewTelemetryWorker(nil, &classifyingApplier{err: errors.New("database is locked")}, zap.NewNop())
		err := w.handle(context.Background(), msg)
		require.Error(t, err)
		var perm permanentError
		assert.False(t, errors.As(err, &perm))
	})

	t.Run("applier without classifier", func(t *testing.T) {
		w := NewTelemetryWorker(nil, &recordingApplier{fail: true}, zap.NewNop())
		err := w.handle(context.Background(), msg)
		require.Error(t, err)
		var perm permanentError
		assert.False(t, errors.As(err, &perm))
	})
}
