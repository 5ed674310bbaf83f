package workers

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	embeddednats "herdwatch/pkg/services/embedded-nats"
)

type Manager struct {
	workers []Worker
	logger  *zap.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewManager(natsClient *embeddednats.EmbeddedNATS, applier PoseApplier, logger *zap.Logger) (*Manager, error) {
	if natsClient.Connection() == nil {
		return nil, errors.New("NATS connection not initialized")
	}

	js := natsClient.JetStream()
	if js == nil {
		return nil, errors.New("JetStream not initialized")
	}
	if applier == nil {
		return nil, errors.New("pose applier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return newManager(logger,
		NewTelemetryWorker(js, applier, logger),
		NewAnimalWorker(js, logger),
	), nil
}

func newManager(logger *zap.Logger, workers ...Worker) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		workers: workers,
		logger:  logger.Named("workers"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *Manager) Start() error {
	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			m.logger.Info("Starting worker", zap.String("worker", w.Name()))
			if err := w.Start(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("Worker error", zap.String("worker", w.Name()), zap.Error(err))
			}
			m.logger.Info("Worker stopped", zap.String("worker", w.Name()))
		}(worker)
	}

	m.logger.Info("Started workers", zap.Int("count", len(m.workers)))
	return nil
}

func (m *Manager) Stop() error {
	m.cancel()

	var errs []error
	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.Warn("Error stopping worker", zap.String("worker", worker.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}

	m.wg.Wait()

	m.logger.Info("All workers stopped")
	return errors.Join(errs...)
}
