package outbox

import (
	"context"
	"log/slog"
	"time"
)

const defaultBatchSize = 100

type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func NewWorker(store Store, publisher Publisher, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "outbox worker started", slog.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "outbox worker stopped")
			return
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) process(ctx context.Context) {
	events, err := w.store.FetchPending(ctx, defaultBatchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch pending events", slog.String("error", err.Error()))
		return
	}

	if len(events) == 0 {
		return
	}

	w.logger.InfoContext(ctx, "processing outbox events", slog.Int("count", len(events)))

	for _, event := range events {
		if err := w.publisher.Publish(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "failed to publish event",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := w.store.MarkProcessed(ctx, event.ID); err != nil {
			w.logger.ErrorContext(ctx, "failed to mark event as processed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
