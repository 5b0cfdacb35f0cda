package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

type AlertResult struct {
	AlertID  string   `json:"alert_id"`
	Success  bool     `json:"success"`
	Channels []string `json:"channels"`
}

// AlertService fans operational alerts out to paging and chat channels.
// Delivery is best effort: the alert is always logged, and a channel failure
// never reaches the caller.
type AlertService struct {
	logger   *slog.Logger
	channels []ports.AlertChannel
	nowFn    func() time.Time
}

func NewAlertService(logger *slog.Logger, channels ...ports.AlertChannel) *AlertService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertService{
		logger:   logger,
		channels: channels,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *AlertService) Fire(ctx context.Context, alertType, severity, message string, metadata map[string]string) AlertResult {
	alert := ports.Alert{
		AlertID:   uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: a.nowFn(),
	}
	a.logger.ErrorContext(ctx, "operational alert",
		"alert_id", alert.AlertID,
		"alert_type", alertType,
		"severity", severity,
		"message", message,
	)
	result := AlertResult{AlertID: alert.AlertID, Success: true}
	for _, channel := range a.channels {
		if err := channel.Send(ctx, alert); err != nil {
			result.Success = false
			a.logger.ErrorContext(ctx, "alert delivery failed", "channel", channel.Name(), "alert_id", alert.AlertID, "error", err)
			continue
		}
		result.Channels = append(result.Channels, channel.Name())
	}
	return result
}
