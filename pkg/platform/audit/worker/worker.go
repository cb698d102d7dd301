package worker

import (
	"context"
	"log/slog"

	audit "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. It returns
// once the inbox is closed and drained, or when ctx is done.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox closes. A failed append is logged and
// the worker moves on to the next event.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"run_id", event.RunID,
					"error", err,
				)
			}
		}
	}
}
