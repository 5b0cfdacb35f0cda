package domain

import (
	"strings"
	"time"
)

type EscrowState string

const (
	EscrowStatePending       EscrowState = "pending"
	EscrowStateFunded        EscrowState = "funded"
	EscrowStateLockedDispute EscrowState = "locked_dispute"
	EscrowStateReleased      EscrowState = "released"
	EscrowStateRefunded      EscrowState = "refunded"
	EscrowStateRefundPartial EscrowState = "refund_partial"
)

// escrowTransitions is the single source of truth for legal escrow moves.
// Terminal states have no outgoing edges.
var escrowTransitions = map[EscrowState][]EscrowState{
	EscrowStatePending:       {EscrowStateFunded, EscrowStateRefunded},
	EscrowStateFunded:        {EscrowStateReleased, EscrowStateRefunded, EscrowStateLockedDispute},
	EscrowStateLockedDispute: {EscrowStateReleased, EscrowStateRefunded, EscrowStateRefundPartial},
	EscrowStateReleased:      {},
	EscrowStateRefunded:      {},
	EscrowStateRefundPartial: {},
}

func CanTransitionEscrow(from, to EscrowState) bool {
	for _, next := range escrowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminalEscrowState(state EscrowState) bool {
	return len(escrowTransitions[state]) == 0
}

type Escrow struct {
	EscrowID         string      `json:"escrow_id"`
	TaskID           string      `json:"task_id"`
	AmountCents      int64       `json:"amount_cents"`
	State            EscrowState `json:"state"`
	PaymentIntentRef string      `json:"payment_intent_ref,omitempty"`
	PayeeID          string      `json:"payee_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	FundedAt         *time.Time  `json:"funded_at,omitempty"`
	DisputedAt       *time.Time  `json:"disputed_at,omitempty"`
	ReleasedAt       *time.Time  `json:"released_at,omitempty"`
	RefundedAt       *time.Time  `json:"refunded_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func ValidateCreateEscrowInput(taskID string, amountCents int64) error {
	if strings.TrimSpace(taskID) == "" {
		return ErrInvalidInput
	}
	if amountCents <= 0 {
		return ErrInvalidState
	}
	return nil
}
