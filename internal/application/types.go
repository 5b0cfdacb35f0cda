package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

type Config struct {
	ServiceName          string
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxFlushBatchSize int

	StuckThreshold      time.Duration
	MaxRecoveryAttempts int
	DriftCeilingCents   int64

	DriftAccountID    string
	CashAccountID     string
	ClearingAccountID string
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type CreateEscrowInput struct {
	TaskID      string `json:"task_id"`
	AmountCents int64  `json:"amount_cents"`
}

type FundEscrowInput struct {
	EscrowID           string `json:"escrow_id"`
	ExternalPaymentRef string `json:"external_payment_ref"`
}

type RefundEscrowInput struct {
	EscrowID      string                `json:"escrow_id"`
	AmountCents   int64                 `json:"amount_cents,omitempty"` // partial refunds only
	AdminOverride *domain.AdminOverride `json:"admin_override,omitempty"`
}

type ResolveOptions struct {
	AdminOverride *domain.AdminOverride
}

type HandleOptions struct {
	EventID        string
	IdempotencyKey string
	AdminOverride  *domain.AdminOverride
}

// EngineResult is the outcome of one MoneyEngine event. A blocked gate is an
// ordinary result, not an error.
type EngineResult struct {
	TaskID       string                `json:"task_id"`
	EventType    string                `json:"event_type"`
	Decision     domain.Decision       `json:"decision"`
	BlockReason  domain.BlockReason    `json:"block_reason,omitempty"`
	Settled      bool                  `json:"settled"`
	Lock         domain.MoneyStateLock `json:"lock"`
	TransferID   string                `json:"transfer_id,omitempty"`
	EvaluationID string                `json:"evaluation_id,omitempty"`
}

// MoneyEventContext is the arbitrary context carried by one engine event and
// recorded verbatim in the audit trail.
type MoneyEventContext struct {
	EscrowID         string `json:"escrow_id,omitempty"`
	PayeeID          string `json:"payee_id,omitempty"`
	AmountCents      int64  `json:"amount_cents,omitempty"`
	RefundCents      int64  `json:"refund_cents,omitempty"`
	PayeeCents       int64  `json:"payee_cents,omitempty"`
	PaymentIntentRef string `json:"payment_intent_ref,omitempty"`
	EventID          string `json:"event_id,omitempty"`
}

type CompensationResult struct {
	AccountID     string `json:"account_id"`
	DriftCents    int64  `json:"drift_cents"`
	Applied       bool   `json:"applied"`
	Escalated     bool   `json:"escalated"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type Service struct {
	cfg Config

	escrows        ports.EscrowRepository
	moneyStates    ports.MoneyStateRepository
	moneyEvents    ports.MoneyEventRepository
	ledger         ports.LedgerRepository
	eligibilityLog ports.EligibilityLogRepository
	idempotency    ports.IdempotencyRepository
	eventDedup     ports.EventDedupRepository
	outbox         ports.OutboxRepository

	tasks      ports.TaskReader
	disputes   ports.DisputeReader
	proofs     ports.ProofReader
	settlement ports.SettlementClient

	killSwitch *KillSwitch
	alerts     *AlertService
	metrics    ports.MetricsRecorder

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher

	logger   *slog.Logger
	nowFn    func() time.Time
	sweeping atomic.Bool
}

type Dependencies struct {
	Config Config

	Escrows        ports.EscrowRepository
	MoneyStates    ports.MoneyStateRepository
	MoneyEvents    ports.MoneyEventRepository
	Ledger         ports.LedgerRepository
	EligibilityLog ports.EligibilityLogRepository
	Idempotency    ports.IdempotencyRepository
	EventDedup     ports.EventDedupRepository
	Outbox         ports.OutboxRepository

	Tasks      ports.TaskReader
	Disputes   ports.DisputeReader
	Proofs     ports.ProofReader
	Settlement ports.SettlementClient

	KillSwitch *KillSwitch
	Alerts     *AlertService
	Metrics    ports.MetricsRecorder

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher

	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "money-movement-service"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 15 * time.Minute
	}
	if cfg.MaxRecoveryAttempts <= 0 {
		cfg.MaxRecoveryAttempts = 3
	}
	if cfg.DriftCeilingCents <= 0 {
		cfg.DriftCeilingCents = 500
	}
	if cfg.DriftAccountID == "" {
		cfg.DriftAccountID = "acct_system_drift"
	}
	if cfg.CashAccountID == "" {
		cfg.CashAccountID = "acct_settlement_cash"
	}
	if cfg.ClearingAccountID == "" {
		cfg.ClearingAccountID = "acct_escrow_clearing"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		cfg:            cfg,
		escrows:        deps.Escrows,
		moneyStates:    deps.MoneyStates,
		moneyEvents:    deps.MoneyEvents,
		ledger:         deps.Ledger,
		eligibilityLog: deps.EligibilityLog,
		idempotency:    deps.Idempotency,
		eventDedup:     deps.EventDedup,
		outbox:         deps.Outbox,
		tasks:          deps.Tasks,
		disputes:       deps.Disputes,
		proofs:         deps.Proofs,
		settlement:     deps.Settlement,
		killSwitch:     deps.KillSwitch,
		alerts:         deps.Alerts,
		metrics:        deps.Metrics,
		domainEvents:   deps.DomainEvents,
		analytics:      deps.Analytics,
		dlq:            deps.DLQ,
		logger:         logger,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
	if svc.killSwitch != nil {
		svc.killSwitch.SetTriggerHook(svc.enqueueKillSwitchTripped)
	}
	return svc
}

// KillSwitchControl exposes the shared kill switch to transport adapters.
func (s *Service) KillSwitchControl() *KillSwitch { return s.killSwitch }

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
