package alerts

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// LogChannel writes alerts to the structured log. It is the floor delivery
// target: always configured, never fails.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, alert ports.Alert) error {
	c.logger.WarnContext(ctx, "alert raised",
		"module", "alerts.log_channel",
		"layer", "adapter",
		"alert_id", alert.AlertID,
		"alert_type", alert.Type,
		"severity", alert.Severity,
		"message", alert.Message,
	)
	return nil
}

// MemoryChannel records alerts for inspection in tests and local runs.
type MemoryChannel struct {
	mu     sync.Mutex
	alerts []ports.Alert
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{}
}

func (c *MemoryChannel) Name() string { return "memory" }

func (c *MemoryChannel) Send(_ context.Context, alert ports.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *MemoryChannel) Alerts() []ports.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}
