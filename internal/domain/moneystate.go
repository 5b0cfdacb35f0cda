package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type MoneyState string

const (
	MoneyStateHeld             MoneyState = "held"
	MoneyStateExecutingFund    MoneyState = "executing_fund"
	MoneyStateExecutingRelease MoneyState = "executing_release"
	MoneyStateExecutingRefund  MoneyState = "executing_refund"
	MoneyStateCompleted        MoneyState = "completed"
	MoneyStateReleased         MoneyState = "released"
	MoneyStateRefunded         MoneyState = "refunded"
	MoneyStateFailed           MoneyState = "failed"
)

func (s MoneyState) IsExecuting() bool {
	return strings.HasPrefix(string(s), "executing_")
}

// IsTerminalMoneyState reports states from which money must never move again.
func IsTerminalMoneyState(state MoneyState) bool {
	switch state {
	case MoneyStateCompleted, MoneyStateReleased, MoneyStateRefunded:
		return true
	default:
		return false
	}
}

// MoneyStateLock is the per-task coordination row for the money orchestrator.
// Created on first money event, mutated only through conditional updates,
// never deleted.
type MoneyStateLock struct {
	TaskID           string     `json:"task_id"`
	State            MoneyState `json:"state"`
	PaymentIntentID  string     `json:"payment_intent_id,omitempty"`
	ChargeID         string     `json:"charge_id,omitempty"`
	TransferID       string     `json:"transfer_id,omitempty"`
	RecoveryAttempts int        `json:"recovery_attempts"`
	LastTransitionAt time.Time  `json:"last_transition_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MoneyEvent is one append-only audit row. It is the sole evidence source
// for crash recovery, so rows are never mutated or deleted.
type MoneyEvent struct {
	EventID       string          `json:"event_id"`
	TaskID        string          `json:"task_id"`
	EventType     string          `json:"event_type"`
	PreviousState MoneyState      `json:"previous_state"`
	NewState      MoneyState      `json:"new_state"`
	RawContext    json.RawMessage `json:"raw_context,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	MoneyEventFund    = "fund"
	MoneyEventRelease = "release_payout"
	MoneyEventRefund  = "refund"
)

// ExecutingStateFor maps an engine event to its transient in-flight state.
func ExecutingStateFor(eventType string) (MoneyState, bool) {
	switch eventType {
	case MoneyEventFund:
		return MoneyStateExecutingFund, true
	case MoneyEventRelease:
		return MoneyStateExecutingRelease, true
	case MoneyEventRefund:
		return MoneyStateExecutingRefund, true
	default:
		return "", false
	}
}
