package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	fetchBatch = 10
	fetchWait  = 2 * time.Second
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// permanentError marks a message that will never succeed; it is terminated
// instead of being redelivered.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

type BaseWorker struct {
	name     string
	js       nats.JetStreamContext
	consumer string
	stream   string
	subject  string
	logger   *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewBaseWorker(name string, js nats.JetStreamContext, stream, consumer, subject string, logger *zap.Logger) *BaseWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseWorker{
		name:     name,
		js:       js,
		consumer: consumer,
		stream:   stream,
		subject:  subject,
		logger:   logger.Named(name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	sub := w.sub
	w.mu.Unlock()
	if sub != nil {
		return sub.Drain()
	}
	return nil
}

// processMessages pulls batches from the bound durable consumer until ctx is
// cancelled. Handler errors nak the message for redelivery unless they are
// permanent.
func (w *BaseWorker) processMessages(ctx context.Context, handler func(context.Context, *nats.Msg) error) error {
	sub, err := w.js.PullSubscribe(w.subject, w.consumer,
		nats.ManualAck(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.logger.Info("Starting worker", zap.String("stream", w.stream), zap.String("consumer", w.consumer))

	for {
		if ctx.Err() != nil {
			w.logger.Info("Worker stopping")
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, fetchWait)
		msgs, err := sub.Fetch(fetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker stopping")
				return ctx.Err()
			}
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
				if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
					return err
				}
				w.logger.Warn("Error fetching messages", zap.Error(err))
			}
			continue
		}

		for _, msg := range msgs {
			w.settle(msg, handler(ctx, msg))
		}
	}
}

func (w *BaseWorker) settle(msg *nats.Msg, err error) {
	var ackErr error
	var perm permanentError
	switch {
	case err == nil:
		ackErr = msg.Ack()
	case errors.As(err, &perm):
		w.logger.Warn("Dropping message", zap.String("subject", msg.Subject), zap.Error(err))
		ackErr = msg.Term()
	default:
		w.logger.Warn("Handler failed, requesting redelivery", zap.String("subject", msg.Subject), zap.Error(err))
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		w.logger.Error("Error acknowledging message", zap.Error(ackErr))
	}
}
