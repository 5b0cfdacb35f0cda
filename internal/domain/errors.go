package domain

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidState          = errors.New("invalid state")
	ErrConflict              = errors.New("conflict")
	ErrIdempotencyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
	ErrKillSwitchActive      = errors.New("kill switch active")
	ErrPayoutBlocked         = errors.New("payout blocked")
	ErrSettlementPending     = errors.New("settlement outcome pending")
	ErrSagaRecoveryExhausted = errors.New("saga recovery exhausted")
	ErrUnbalancedTransaction = errors.New("ledger transaction entries do not balance")
)
