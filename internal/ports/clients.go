package ports

import (
	"context"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

type TaskInfo struct {
	TaskID   string
	Status   string
	PosterID string
	WorkerID string
}

// Payable reports whether the task has reached a state from which a payout
// may be authorized.
func (t TaskInfo) Payable() bool {
	switch t.Status {
	case "completed", "approved":
		return true
	default:
		return false
	}
}

type TaskReader interface {
	GetTask(ctx context.Context, taskID string) (TaskInfo, error)
}

type DisputeReader interface {
	HasActiveDispute(ctx context.Context, taskID string) (bool, error)
}

type ProofFreeze struct {
	Blocked bool
	Reason  string
}

type ProofTruth struct {
	ProofState    domain.ProofState
	HasValidProof bool
}

// ProofReader consumes the proof verification pipeline. Only the states it
// emits matter here; the pipeline itself is out of scope.
type ProofReader interface {
	IsPayoutBlocked(ctx context.Context, taskID string) (ProofFreeze, error)
	GetProofTruth(ctx context.Context, taskID string) (ProofTruth, error)
}

type SettlementStatus string

const (
	SettlementStatusSucceeded SettlementStatus = "succeeded"
	SettlementStatusFailed    SettlementStatus = "failed"
	SettlementStatusUnknown   SettlementStatus = "unknown"
)

type TransferRequest struct {
	IdempotencyKey  string
	TaskID          string
	PayeeID         string
	AmountCents     int64
	PaymentIntentID string
	EventID         string
}

type TransferResult struct {
	TransferID string
	ChargeID   string
	Status     SettlementStatus
}

// SettlementClient is the external settlement network boundary. Calls block
// with the client's own deadline; the engine never retries, recovery is the
// sweeper's job.
type SettlementClient interface {
	ExecuteTransfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	GetTransferStatus(ctx context.Context, transferID string) (SettlementStatus, error)
	GetPaymentIntentStatus(ctx context.Context, paymentIntentID string) (SettlementStatus, error)
}
