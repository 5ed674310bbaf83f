package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"herdwatch/pkg/shared"
)

// AnimalWorker records lifecycle events from the animals stream.
type AnimalWorker struct {
	*BaseWorker
}

func NewAnimalWorker(js nats.JetStreamContext, logger *zap.Logger) *AnimalWorker {
	return &AnimalWorker{
		BaseWorker: NewBaseWorker(
			"AnimalWorker",
			js,
			shared.StreamAnimals,
			shared.ConsumerAnimalProcessor,
			shared.SubjectAnimalsAll,
			logger,
		),
	}
}

func (w *AnimalWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *AnimalWorker) handle(_ context.Context, msg *nats.Msg) error {
	var event shared.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return permanent(fmt.Errorf("invalid animal event: %w", err))
	}

	w.logger.Info("Animal event",
		zap.String("subject", msg.Subject),
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.Any("animal_id", event.Data["animal_id"]),
		zap.Time("timestamp", event.Timestamp))
	return nil
}
