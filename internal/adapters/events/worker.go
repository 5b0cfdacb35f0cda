package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// Worker drives the three background loops: outbox flushing, inbound event
// consumption, and the stuck-saga sweep. Sweeping runs on its own slower
// ticker so a noisy event stream cannot starve recovery.
type Worker struct {
	logger        *slog.Logger
	service       *application.Service
	consumer      ports.EventConsumer
	dlq           ports.DLQPublisher
	interval      time.Duration
	sweepInterval time.Duration
}

func NewWorker(logger *slog.Logger, service *application.Service, consumer ports.EventConsumer, dlq ports.DLQPublisher, interval, sweepInterval time.Duration) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Worker{
		logger: logger, service: service, consumer: consumer, dlq: dlq,
		interval: interval, sweepInterval: sweepInterval,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "worker iteration failed",
					"module", "events.worker",
					"layer", "adapter",
					"operation", "process_once",
					"outcome", "failure",
					"error", err,
				)
			}
		case <-sweepTicker.C:
			if _, err := w.service.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "sweep iteration failed",
					"module", "events.worker",
					"layer", "adapter",
					"operation", "sweep_once",
					"outcome", "failure",
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	if err := w.service.FlushOutbox(ctx); err != nil {
		return err
	}
	for i := 0; i < 50; i++ {
		event, err := w.consumer.Receive(ctx)
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		if err := w.service.HandleDomainEvent(ctx, *event); err != nil {
			w.logger.WarnContext(ctx, "event handling failed",
				"module", "events.worker",
				"layer", "adapter",
				"operation", "handle_domain_event",
				"outcome", "failure",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err,
			)
			w.deadLetter(ctx, *event, err)
		}
	}
	return nil
}

func (w *Worker) deadLetter(ctx context.Context, event contracts.EventEnvelope, cause error) {
	if w.dlq == nil {
		return
	}
	now := time.Now().UTC()
	record := contracts.DLQRecord{
		OriginalEvent: event,
		ErrorSummary:  cause.Error(),
		RetryCount:    1,
		FirstSeenAt:   now,
		LastErrorAt:   now,
		TraceID:       event.TraceID,
	}
	if err := w.dlq.PublishDLQ(ctx, record); err != nil {
		w.logger.ErrorContext(ctx, "dead letter publish failed",
			"module", "events.worker",
			"layer", "adapter",
			"operation", "publish_dlq",
			"outcome", "failure",
			"event_id", event.EventID,
			"error", err,
		)
	}
}
