package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"herdwatch/pkg/ontology"
	"herdwatch/pkg/shared"
)

// PoseApplier persists a pose update for an animal.
type PoseApplier interface {
	ApplyPoseUpdate(ctx context.Context, update ontology.PoseUpdate) error
}

// ErrorClassifier is optionally implemented by a PoseApplier whose errors
// may never succeed on redelivery, such as an unknown animal.
type ErrorClassifier interface {
	Permanent(err error) bool
}

type TelemetryWorker struct {
	*BaseWorker
	applier PoseApplier
}

func NewTelemetryWorker(js nats.JetStreamContext, applier PoseApplier, logger *zap.Logger) *TelemetryWorker {
	return &TelemetryWorker{
		BaseWorker: NewBaseWorker(
			"TelemetryWorker",
			js,
			shared.StreamTelemetry,
			shared.ConsumerTelemetryProcessor,
			shared.SubjectTelemetryAll,
			logger,
		),
		applier: applier,
	}
}

func (w *TelemetryWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *TelemetryWorker) handle(ctx context.Context, msg *nats.Msg) error {
	update, err := decodePoseUpdate(msg.Subject, msg.Data)
	if err != nil {
		return permanent(err)
	}

	if err := w.applier.ApplyPoseUpdate(ctx, update); err != nil {
		err = fmt.Errorf("apply pose update for %s: %w", update.AnimalID, err)
		if c, ok := w.applier.(ErrorClassifier); ok && c.Permanent(err) {
			return permanent(err)
		}
		return err
	}

	w.logger.Debug("Applied pose update",
		zap.String("pack_id", update.PackID),
		zap.String("animal_id", update.AnimalID),
		zap.Float64("x", update.X),
		zap.Float64("y", update.Y))
	return nil
}

// decodePoseUpdate parses a telemetry payload. Missing identifiers are
// taken from the subject, herdwatch.telemetry.<pack_id>.<animal_id>.
func decodePoseUpdate(subject string, data []byte) (ontology.PoseUpdate, error) {
	var update ontology.PoseUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return update, fmt.Errorf("invalid telemetry payload: %w", err)
	}

	tokens := strings.Split(subject, ".")
	if len(tokens) == 4 && tokens[0]+"."+tokens[1] == shared.SubjectTelemetry {
		if update.PackID == "" {
			update.PackID = tokens[2]
		}
		if update.AnimalID == "" {
			update.AnimalID = tokens[3]
		}
	}

	if update.PackID == "" || update.AnimalID == "" {
		return update, fmt.Errorf("telemetry on %s is missing pack_id or animal_id", subject)
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	return update, nil
}
