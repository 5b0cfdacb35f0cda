package postgres

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

type Repositories struct {
	Escrows        *EscrowRepository
	MoneyStates    *MoneyStateRepository
	MoneyEvents    *MoneyEventRepository
	Ledger         *LedgerRepository
	EligibilityLog *EligibilityLogRepository
	Idempotency    *IdempotencyRepository
	EventDedup     *EventDedupRepository
	Outbox         *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Escrows: &EscrowRepository{
			escrows: make(map[string]domain.Escrow),
			byTask:  make(map[string][]string),
		},
		MoneyStates: &MoneyStateRepository{
			locks: make(map[string]domain.MoneyStateLock),
		},
		MoneyEvents: &MoneyEventRepository{
			byTask: make(map[string][]domain.MoneyEvent),
		},
		Ledger: &LedgerRepository{
			accounts:     make(map[string]domain.LedgerAccount),
			transactions: make(map[string]domain.LedgerTransaction),
		},
		EligibilityLog: &EligibilityLogRepository{
			byTask: make(map[string][]domain.EligibilityEvaluation),
		},
		Idempotency: &IdempotencyRepository{
			records: make(map[string]ports.IdempotencyRecord),
		},
		EventDedup: &EventDedupRepository{
			records: make(map[string]dedupRecord),
		},
		Outbox: &OutboxRepository{
			records: make(map[string]ports.OutboxRecord),
		},
	}
}

type EscrowRepository struct {
	mu      sync.RWMutex
	escrows map[string]domain.Escrow
	byTask  map[string][]string
}

func (r *EscrowRepository) Create(_ context.Context, escrow domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.escrows[escrow.EscrowID]; ok {
		return domain.ErrConflict
	}
	r.escrows[escrow.EscrowID] = escrow
	r.byTask[escrow.TaskID] = append(r.byTask[escrow.TaskID], escrow.EscrowID)
	return nil
}

func (r *EscrowRepository) GetByID(_ context.Context, escrowID string) (domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	escrow, ok := r.escrows[escrowID]
	if !ok {
		return domain.Escrow{}, domain.ErrNotFound
	}
	return escrow, nil
}

func (r *EscrowRepository) GetByTaskID(_ context.Context, taskID string) (domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byTask[taskID]
	if len(ids) == 0 {
		return domain.Escrow{}, domain.ErrNotFound
	}
	// Most recent escrow wins; earlier ones are terminal by invariant.
	return r.escrows[ids[len(ids)-1]], nil
}

func (r *EscrowRepository) TransitionState(_ context.Context, escrowID string, from []domain.EscrowState, change ports.EscrowStateChange) (domain.Escrow, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	escrow, ok := r.escrows[escrowID]
	if !ok {
		return domain.Escrow{}, false, nil
	}
	if !slices.Contains(from, escrow.State) {
		return domain.Escrow{}, false, nil
	}
	if !domain.CanTransitionEscrow(escrow.State, change.To) {
		return domain.Escrow{}, false, nil
	}
	at := change.At
	escrow.State = change.To
	escrow.UpdatedAt = at
	if change.PaymentIntentRef != "" {
		escrow.PaymentIntentRef = change.PaymentIntentRef
	}
	switch change.To {
	case domain.EscrowStateFunded:
		escrow.FundedAt = &at
	case domain.EscrowStateLockedDispute:
		escrow.DisputedAt = &at
	case domain.EscrowStateReleased:
		escrow.ReleasedAt = &at
	case domain.EscrowStateRefunded, domain.EscrowStateRefundPartial:
		escrow.RefundedAt = &at
	}
	r.escrows[escrowID] = escrow
	return escrow, true, nil
}

type MoneyStateRepository struct {
	mu    sync.RWMutex
	locks map[string]domain.MoneyStateLock
}

func (r *MoneyStateRepository) Create(_ context.Context, lock domain.MoneyStateLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[lock.TaskID]; ok {
		return domain.ErrConflict
	}
	r.locks[lock.TaskID] = lock
	return nil
}

func (r *MoneyStateRepository) GetByTaskID(_ context.Context, taskID string) (domain.MoneyStateLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lock, ok := r.locks[taskID]
	if !ok {
		return domain.MoneyStateLock{}, domain.ErrNotFound
	}
	return lock, nil
}

func (r *MoneyStateRepository) TransitionState(_ context.Context, taskID string, from []domain.MoneyState, change ports.MoneyStateChange) (domain.MoneyStateLock, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[taskID]
	if !ok {
		return domain.MoneyStateLock{}, false, nil
	}
	if !slices.Contains(from, lock.State) {
		return domain.MoneyStateLock{}, false, nil
	}
	lock.State = change.To
	lock.LastTransitionAt = change.At
	if change.PaymentIntentID != "" {
		lock.PaymentIntentID = change.PaymentIntentID
	}
	if change.ChargeID != "" {
		lock.ChargeID = change.ChargeID
	}
	if change.TransferID != "" {
		lock.TransferID = change.TransferID
	}
	r.locks[taskID] = lock
	return lock, true, nil
}

func (r *MoneyStateRepository) IncrementRecoveryAttempts(_ context.Context, taskID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[taskID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	lock.RecoveryAttempts++
	// Restart the stuck clock so a deferred task waits a full threshold
	// before the next recovery attempt.
	lock.LastTransitionAt = at
	r.locks[taskID] = lock
	return lock.RecoveryAttempts, nil
}

func (r *MoneyStateRepository) ListStuckExecuting(_ context.Context, cutoff time.Time) ([]domain.MoneyStateLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.MoneyStateLock
	for _, lock := range r.locks {
		if lock.State.IsExecuting() && lock.LastTransitionAt.Before(cutoff) {
			out = append(out, lock)
		}
	}
	slices.SortFunc(out, func(a, b domain.MoneyStateLock) int {
		return a.LastTransitionAt.Compare(b.LastTransitionAt)
	})
	return out, nil
}

type MoneyEventRepository struct {
	mu     sync.RWMutex
	byTask map[string][]domain.MoneyEvent
}

func (r *MoneyEventRepository) Append(_ context.Context, event domain.MoneyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTask[event.TaskID] = append(r.byTask[event.TaskID], event)
	return nil
}

func (r *MoneyEventRepository) ListByTaskID(_ context.Context, taskID string) ([]domain.MoneyEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := r.byTask[taskID]
	out := make([]domain.MoneyEvent, len(events))
	copy(out, events)
	return out, nil
}

type LedgerRepository struct {
	mu           sync.RWMutex
	accounts     map[string]domain.LedgerAccount
	transactions map[string]domain.LedgerTransaction
	order        []string
}

func (r *LedgerRepository) EnsureAccount(_ context.Context, account domain.LedgerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.AccountID]; ok {
		return nil
	}
	r.accounts[account.AccountID] = account
	return nil
}

func (r *LedgerRepository) GetAccount(_ context.Context, accountID string) (domain.LedgerAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return domain.LedgerAccount{}, domain.ErrNotFound
	}
	return account, nil
}

// PostTransaction validates the double-entry invariant, then applies the
// entries and every affected account balance under one lock. Each account
// is updated individually.
func (r *LedgerRepository) PostTransaction(_ context.Context, tx domain.LedgerTransaction) error {
	if err := domain.ValidateLedgerTransaction(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transactions[tx.TransactionID]; ok {
		return domain.ErrConflict
	}
	for _, entry := range tx.Entries {
		if _, ok := r.accounts[entry.AccountID]; !ok {
			return domain.ErrNotFound
		}
	}
	for _, entry := range tx.Entries {
		account := r.accounts[entry.AccountID]
		account.BalanceCents += domain.BalanceDelta(account.Type, entry.Direction, entry.AmountCents)
		account.UpdatedAt = tx.CreatedAt
		r.accounts[entry.AccountID] = account
	}
	r.transactions[tx.TransactionID] = tx
	r.order = append(r.order, tx.TransactionID)
	return nil
}

func (r *LedgerRepository) ListTransactions(_ context.Context, accountID string) ([]domain.LedgerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerTransaction
	for _, id := range r.order {
		tx := r.transactions[id]
		for _, entry := range tx.Entries {
			if accountID == "" || entry.AccountID == accountID {
				out = append(out, tx)
				break
			}
		}
	}
	return out, nil
}

type EligibilityLogRepository struct {
	mu     sync.RWMutex
	byTask map[string][]domain.EligibilityEvaluation
}

func (r *EligibilityLogRepository) Append(_ context.Context, evaluation domain.EligibilityEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTask[evaluation.TaskID] = append(r.byTask[evaluation.TaskID], evaluation)
	return nil
}

func (r *EligibilityLogRepository) ListByTaskID(_ context.Context, taskID string) ([]domain.EligibilityEvaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evaluations := r.byTask[taskID]
	out := make([]domain.EligibilityEvaluation, len(evaluations))
	copy(out, evaluations)
	return out, nil
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok || record.ExpiresAt.Before(now) {
		return nil, nil
	}
	out := record
	return &out, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key]; ok {
		return domain.ErrConflict
	}
	r.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.ResponseCode = responseCode
	record.ResponseBody = responseBody
	_ = at
	r.records[key] = record
	return nil
}

type dedupRecord struct {
	eventType string
	expiresAt time.Time
}

type EventDedupRepository struct {
	mu      sync.Mutex
	records map[string]dedupRecord
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[eventID]
	if !ok {
		return false, nil
	}
	return record.expiresAt.After(now), nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[eventID] = dedupRecord{eventType: eventType, expiresAt: expiresAt}
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.RecordID]; ok {
		return domain.ErrConflict
	}
	r.records[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []ports.OutboxRecord
	for _, id := range r.order {
		record := r.records[id]
		if record.SentAt != nil {
			continue
		}
		out = append(out, record)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.SentAt = &at
	r.records[recordID] = record
	return nil
}
