package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type TaskCompletedPayload struct {
	TaskID      string `json:"task_id"`
	WorkerID    string `json:"worker_id"`
	CompletedAt string `json:"completed_at"`
}

type EscrowFundedPayload struct {
	EscrowID           string `json:"escrow_id"`
	TaskID             string `json:"task_id"`
	AmountCents        int64  `json:"amount_cents"`
	ExternalPaymentRef string `json:"external_payment_ref"`
	FundedAt           string `json:"funded_at"`
}

type EscrowReleasedPayload struct {
	EscrowID    string `json:"escrow_id"`
	TaskID      string `json:"task_id"`
	PayeeID     string `json:"payee_id"`
	AmountCents int64  `json:"amount_cents"`
	ReleasedAt  string `json:"released_at"`
}

type EscrowRefundedPayload struct {
	EscrowID    string `json:"escrow_id"`
	TaskID      string `json:"task_id"`
	AmountCents int64  `json:"amount_cents"`
	RefundedAt  string `json:"refunded_at"`
}

type SagaRecoveredPayload struct {
	TaskID        string `json:"task_id"`
	Outcome       string `json:"outcome"`
	Attempt       int    `json:"attempt"`
	PreviousState string `json:"previous_state"`
	RecoveredAt   string `json:"recovered_at"`
}

type KillSwitchTrippedPayload struct {
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	TrippedAt string            `json:"tripped_at"`
}

type DriftCompensatedPayload struct {
	AccountID     string `json:"account_id"`
	DriftCents    int64  `json:"drift_cents"`
	TransactionID string `json:"transaction_id"`
	CompensatedAt string `json:"compensated_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
