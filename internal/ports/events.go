package ports

import (
	"context"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
)

type DomainPublisher interface {
	PublishDomain(ctx context.Context, event contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error
}

type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record contracts.DLQRecord) error
}

type EventConsumer interface {
	Receive(ctx context.Context) (*contracts.EventEnvelope, error)
}

type Alert struct {
	AlertID   string
	Type      string
	Severity  string
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// AlertChannel is one best-effort delivery target (pager, chat). Send
// failures are logged by the caller and never propagated.
type AlertChannel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

type MetricsRecorder interface {
	Increment(name string, labels map[string]string)
}
