package audit

import (
	"context"
	"log/slog"
)

// Sink receives events after they are persisted locally. The Kafka
// publisher satisfies it when brokers are configured.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from a channel, persists them, and fans out
// to the optional sink. Sink failures are logged, not retried: the local
// store already holds the event.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", string(event.Action),
					"error", err.Error(),
				)
				continue
			}
			if w.sink != nil {
				if err := w.sink.Publish(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit sink publish failed",
						"action", string(event.Action),
						"error", err.Error(),
					)
				}
			}
		}
	}
}
