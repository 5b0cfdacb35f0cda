package domain

import "time"

// KillSwitchState freezes all money movement when active. Starts inactive;
// Trigger is idempotent; only an explicit administrative Resolve reopens.
type KillSwitchState struct {
	Active      bool              `json:"active"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	TriggeredAt *time.Time        `json:"triggered_at,omitempty"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}
