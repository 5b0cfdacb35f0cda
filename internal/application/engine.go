package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// Handle drives a task's money-state lock through one lifecycle event. The
// lock enters a transient executing state before the settlement network is
// called; that window is exactly what the recovery sweeper cleans up after a
// crash. No retries happen here; a client retry must never double-charge.
func (s *Service) Handle(ctx context.Context, taskID, eventType string, eventCtx MoneyEventContext, opts HandleOptions) (EngineResult, error) {
	executingState, ok := domain.ExecutingStateFor(eventType)
	if !ok {
		return EngineResult{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedEventType, eventType)
	}
	if opts.EventID == "" {
		opts.EventID = uuid.NewString()
	}
	eventCtx.EventID = opts.EventID
	result := EngineResult{TaskID: taskID, EventType: eventType, Decision: domain.DecisionAllow}

	// The gate runs before any state-changing action so a block aborts with
	// no side effects at all. Funding is not resolver-gated but still stops
	// when the system is frozen.
	if eventType == domain.MoneyEventFund && !s.killSwitch.CheckGate(ctx, "money_engine_fund") {
		return EngineResult{}, domain.ErrKillSwitchActive
	}
	if eventType == domain.MoneyEventRelease || eventType == domain.MoneyEventRefund {
		evaluation := s.ResolveEligibility(ctx, taskID, ResolveOptions{AdminOverride: opts.AdminOverride})
		result.EvaluationID = evaluation.EvaluationID
		if evaluation.Decision != domain.DecisionAllow {
			result.Decision = evaluation.Decision
			result.BlockReason = evaluation.BlockReason
			return result, nil
		}
	}

	if opts.IdempotencyKey != "" {
		cached, hit, err := s.cachedEngineResult(ctx, opts.IdempotencyKey, taskID, eventType, eventCtx)
		if err != nil {
			return EngineResult{}, err
		}
		if hit {
			return cached, nil
		}
	}

	now := s.nowFn()
	var lock domain.MoneyStateLock
	var previous domain.MoneyState
	switch eventType {
	case domain.MoneyEventFund:
		if _, err := s.moneyStates.GetByTaskID(ctx, taskID); err == nil {
			return EngineResult{}, fmt.Errorf("%w: money state already exists for task %s", domain.ErrConflict, taskID)
		} else if err != domain.ErrNotFound {
			return EngineResult{}, err
		}
		lock = domain.MoneyStateLock{
			TaskID:           taskID,
			State:            executingState,
			PaymentIntentID:  eventCtx.PaymentIntentRef,
			LastTransitionAt: now,
			CreatedAt:        now,
		}
		if err := s.moneyStates.Create(ctx, lock); err != nil {
			return EngineResult{}, err
		}
	default:
		var matched bool
		var err error
		lock, matched, err = s.moneyStates.TransitionState(ctx, taskID,
			[]domain.MoneyState{domain.MoneyStateHeld},
			ports.MoneyStateChange{To: executingState, At: now})
		if err != nil {
			return EngineResult{}, err
		}
		if !matched {
			return EngineResult{}, s.moneyStateError(ctx, taskID)
		}
		previous = domain.MoneyStateHeld
	}

	// Outbound-intent evidence: written before the network call so the
	// sweeper can tell whether an external obligation may exist. A failed
	// audit write degrades recovery evidence but never fails the operation.
	s.appendAudit(ctx, taskID, string(executingState), previous, executingState, eventCtx)

	status, transfer, err := s.callSettlement(ctx, taskID, eventType, eventCtx, opts)
	if err != nil {
		// Outcome unknown; the lock stays executing for the sweeper.
		return result, fmt.Errorf("%w: %v", domain.ErrSettlementPending, err)
	}

	switch status {
	case ports.SettlementStatusSucceeded:
		settled, matched, casErr := s.moneyStates.TransitionState(ctx, taskID,
			[]domain.MoneyState{executingState},
			ports.MoneyStateChange{
				To:         settledStateFor(eventType),
				TransferID: transfer.TransferID,
				ChargeID:   transfer.ChargeID,
				At:         s.nowFn(),
			})
		if casErr != nil {
			return EngineResult{}, casErr
		}
		if !matched {
			return EngineResult{}, s.moneyStateError(ctx, taskID)
		}
		s.appendAudit(ctx, taskID, string(settledStateFor(eventType)), executingState, settled.State, eventCtx)
		if err := s.postLedgerFor(ctx, eventType, eventCtx); err != nil {
			s.logger.ErrorContext(ctx, "ledger posting failed after settlement success",
				"task_id", taskID, "event_type", eventType, "error", err)
		}
		result.Settled = true
		result.Lock = settled
		result.TransferID = transfer.TransferID
		if s.metrics != nil {
			s.metrics.Increment("money_engine_settled", map[string]string{"event_type": eventType})
		}
	case ports.SettlementStatusFailed:
		failed, matched, casErr := s.moneyStates.TransitionState(ctx, taskID,
			[]domain.MoneyState{executingState},
			ports.MoneyStateChange{To: domain.MoneyStateFailed, At: s.nowFn()})
		if casErr != nil {
			return EngineResult{}, casErr
		}
		if !matched {
			return EngineResult{}, s.moneyStateError(ctx, taskID)
		}
		// No ledger mutation on a confirmed external failure.
		s.appendAudit(ctx, taskID, string(domain.MoneyStateFailed), executingState, domain.MoneyStateFailed, eventCtx)
		result.Lock = failed
		if s.metrics != nil {
			s.metrics.Increment("money_engine_failed", map[string]string{"event_type": eventType})
		}
	default:
		return result, fmt.Errorf("%w: settlement reported %s", domain.ErrSettlementPending, status)
	}

	if opts.IdempotencyKey != "" {
		s.completeEngineResult(ctx, opts.IdempotencyKey, result)
	}
	return result, nil
}

func settledStateFor(eventType string) domain.MoneyState {
	switch eventType {
	case domain.MoneyEventFund:
		return domain.MoneyStateHeld
	case domain.MoneyEventRefund:
		return domain.MoneyStateRefunded
	default:
		return domain.MoneyStateCompleted
	}
}

func (s *Service) callSettlement(ctx context.Context, taskID, eventType string, eventCtx MoneyEventContext, opts HandleOptions) (ports.SettlementStatus, ports.TransferResult, error) {
	switch eventType {
	case domain.MoneyEventFund:
		status, err := s.settlement.GetPaymentIntentStatus(ctx, eventCtx.PaymentIntentRef)
		return status, ports.TransferResult{}, err
	default:
		amount := eventCtx.AmountCents
		if eventType == domain.MoneyEventRefund && eventCtx.RefundCents > 0 {
			amount = eventCtx.RefundCents
		}
		transfer, err := s.settlement.ExecuteTransfer(ctx, ports.TransferRequest{
			IdempotencyKey:  opts.IdempotencyKey,
			TaskID:          taskID,
			PayeeID:         eventCtx.PayeeID,
			AmountCents:     amount,
			PaymentIntentID: eventCtx.PaymentIntentRef,
			EventID:         opts.EventID,
		})
		if err != nil {
			return ports.SettlementStatusUnknown, ports.TransferResult{}, err
		}
		return transfer.Status, transfer, nil
	}
}

func (s *Service) appendAudit(ctx context.Context, taskID, eventType string, from, to domain.MoneyState, eventCtx MoneyEventContext) {
	raw, _ := json.Marshal(eventCtx)
	err := s.moneyEvents.Append(ctx, domain.MoneyEvent{
		EventID:       uuid.NewString(),
		TaskID:        taskID,
		EventType:     eventType,
		PreviousState: from,
		NewState:      to,
		RawContext:    raw,
		CreatedAt:     s.nowFn(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "task_id", taskID, "event_type", eventType, "error", err)
	}
}

func (s *Service) moneyStateError(ctx context.Context, taskID string) error {
	lock, err := s.moneyStates.GetByTaskID(ctx, taskID)
	if err != nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: money state for task %s is %s", domain.ErrInvalidState, taskID, lock.State)
}

func (s *Service) cachedEngineResult(ctx context.Context, key, taskID, eventType string, eventCtx MoneyEventContext) (EngineResult, bool, error) {
	requestHash := hashJSON(map[string]any{"task_id": taskID, "event_type": eventType, "context": eventCtx})
	record, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return EngineResult{}, false, err
	}
	if record != nil {
		if record.RequestHash != requestHash {
			return EngineResult{}, false, domain.ErrIdempotencyConflict
		}
		if len(record.ResponseBody) > 0 {
			var cached EngineResult
			if json.Unmarshal(record.ResponseBody, &cached) == nil {
				return cached, true, nil
			}
		}
		// Reserved but not completed: the first attempt is still in flight.
		return EngineResult{}, false, domain.ErrIdempotencyConflict
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if err == domain.ErrConflict {
			return EngineResult{}, false, domain.ErrIdempotencyConflict
		}
		return EngineResult{}, false, err
	}
	return EngineResult{}, false, nil
}

func (s *Service) completeEngineResult(ctx context.Context, key string, result EngineResult) {
	body, _ := json.Marshal(result)
	if err := s.idempotency.Complete(ctx, key, 200, body, s.nowFn()); err != nil {
		s.logger.ErrorContext(ctx, "idempotency completion failed", "key", key, "error", err)
	}
}
