package ports

import (
	"context"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

// EscrowStateChange describes one conditional escrow transition. The
// repository applies it only when the current state matches the caller's
// expectation, mirroring a `WHERE state IN (...)` update.
type EscrowStateChange struct {
	To               domain.EscrowState
	PaymentIntentRef string
	At               time.Time
}

type EscrowRepository interface {
	Create(ctx context.Context, escrow domain.Escrow) error
	GetByID(ctx context.Context, escrowID string) (domain.Escrow, error)
	GetByTaskID(ctx context.Context, taskID string) (domain.Escrow, error)
	// TransitionState performs the state check and write atomically. The
	// boolean reports whether a row in one of the expected states matched;
	// callers re-read on a miss to build a precise error.
	TransitionState(ctx context.Context, escrowID string, from []domain.EscrowState, change EscrowStateChange) (domain.Escrow, bool, error)
}

type MoneyStateChange struct {
	To              domain.MoneyState
	PaymentIntentID string
	ChargeID        string
	TransferID      string
	At              time.Time
}

type MoneyStateRepository interface {
	Create(ctx context.Context, lock domain.MoneyStateLock) error
	GetByTaskID(ctx context.Context, taskID string) (domain.MoneyStateLock, error)
	TransitionState(ctx context.Context, taskID string, from []domain.MoneyState, change MoneyStateChange) (domain.MoneyStateLock, bool, error)
	IncrementRecoveryAttempts(ctx context.Context, taskID string, at time.Time) (int, error)
	// ListStuckExecuting returns locks in an executing state whose last
	// transition is older than the cutoff.
	ListStuckExecuting(ctx context.Context, cutoff time.Time) ([]domain.MoneyStateLock, error)
}

// MoneyEventRepository is append-only; there is deliberately no update or
// delete surface.
type MoneyEventRepository interface {
	Append(ctx context.Context, event domain.MoneyEvent) error
	ListByTaskID(ctx context.Context, taskID string) ([]domain.MoneyEvent, error)
}

type LedgerRepository interface {
	EnsureAccount(ctx context.Context, account domain.LedgerAccount) error
	GetAccount(ctx context.Context, accountID string) (domain.LedgerAccount, error)
	// PostTransaction validates the double-entry invariant and applies the
	// entries plus every affected account balance in one atomic step.
	PostTransaction(ctx context.Context, tx domain.LedgerTransaction) error
	ListTransactions(ctx context.Context, accountID string) ([]domain.LedgerTransaction, error)
}

type EligibilityLogRepository interface {
	Append(ctx context.Context, evaluation domain.EligibilityEvaluation) error
	ListByTaskID(ctx context.Context, taskID string) ([]domain.EligibilityEvaluation, error)
}

type KillSwitchStore interface {
	Get(ctx context.Context) (domain.KillSwitchState, error)
	Set(ctx context.Context, state domain.KillSwitchState) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
