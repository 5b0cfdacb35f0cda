package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

const auditEventRecoveryExhausted = "saga_recovery_exhausted"

type SweepReport struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
	Exhausted int `json:"exhausted"`
}

// SweepOnce finds money-state locks stuck mid-flight and recovers them with
// a strict, never-reordered evidence chain: audit trail first, settlement
// network second. The network is only ever queried because audit evidence
// says an outbound call was issued, never speculatively. One task's failure
// never aborts the rest of the sweep.
func (s *Service) SweepOnce(ctx context.Context) (SweepReport, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return SweepReport{}, nil
	}
	defer s.sweeping.Store(false)

	cutoff := s.nowFn().Add(-s.cfg.StuckThreshold)
	stuck, err := s.moneyStates.ListStuckExecuting(ctx, cutoff)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{Scanned: len(stuck)}
	for _, lock := range stuck {
		outcome, recoverErr := s.recoverTask(ctx, lock)
		if recoverErr != nil {
			s.logger.ErrorContext(ctx, "saga recovery failed for task", "task_id", lock.TaskID, "error", recoverErr)
			if s.alerts != nil {
				s.alerts.Fire(ctx, domain.AlertTypeSagaStuck, domain.AlertSeverityWarning,
					"saga recovery error for task "+lock.TaskID, map[string]string{"task_id": lock.TaskID, "error": recoverErr.Error()})
			}
			report.Deferred++
			continue
		}
		switch outcome {
		case domain.MoneyStateCompleted:
			report.Completed++
		case domain.MoneyStateFailed:
			report.Failed++
		case "exhausted":
			report.Exhausted++
		default:
			report.Deferred++
		}
	}
	if s.metrics != nil {
		s.metrics.Increment("saga_sweep_runs", nil)
	}
	return report, nil
}

func (s *Service) recoverTask(ctx context.Context, lock domain.MoneyStateLock) (domain.MoneyState, error) {
	// Attempt cap first: past it, the system assumes something structural
	// is broken and freezes itself instead of thrashing.
	if lock.RecoveryAttempts >= s.cfg.MaxRecoveryAttempts {
		return s.giveUp(ctx, lock)
	}

	attempt, err := s.moneyStates.IncrementRecoveryAttempts(ctx, lock.TaskID, s.nowFn())
	if err != nil {
		return "", err
	}
	if s.alerts != nil {
		s.alerts.Fire(ctx, domain.AlertTypeSagaStuck, domain.AlertSeverityWarning,
			fmt.Sprintf("recovering stuck money state for task %s, attempt %d", lock.TaskID, attempt),
			map[string]string{"task_id": lock.TaskID, "attempt": strconv.Itoa(attempt), "state": string(lock.State)})
	}

	// Ledger-first evidence: without an outbound-intent audit record no
	// external obligation was created, so failing the task is safe.
	events, err := s.moneyEvents.ListByTaskID(ctx, lock.TaskID)
	if err != nil {
		return "", err
	}
	if !hasOutboundIntent(events) {
		return s.markRecovered(ctx, lock, domain.MoneyStateFailed, "no_outbound_intent", attempt)
	}

	// Network second, and only because the audit trail justifies it.
	status, err := s.querySettlementStatus(ctx, lock)
	if err != nil {
		// Unknown outcome; leave untouched for the next sweep.
		return lock.State, nil
	}
	switch status {
	case ports.SettlementStatusSucceeded:
		return s.markRecovered(ctx, lock, domain.MoneyStateCompleted, "settlement_succeeded", attempt)
	case ports.SettlementStatusFailed:
		return s.markRecovered(ctx, lock, domain.MoneyStateFailed, "settlement_failed", attempt)
	default:
		return lock.State, nil
	}
}

func (s *Service) giveUp(ctx context.Context, lock domain.MoneyStateLock) (domain.MoneyState, error) {
	events, err := s.moneyEvents.ListByTaskID(ctx, lock.TaskID)
	if err != nil {
		return "", err
	}
	for _, event := range events {
		if event.EventType == auditEventRecoveryExhausted {
			// Already given up on this task; stay silent.
			return "exhausted", nil
		}
	}
	s.appendAudit(ctx, lock.TaskID, auditEventRecoveryExhausted, lock.State, lock.State, MoneyEventContext{})
	metadata := map[string]string{
		"task_id":  lock.TaskID,
		"state":    string(lock.State),
		"attempts": strconv.Itoa(lock.RecoveryAttempts),
	}
	if s.alerts != nil {
		s.alerts.Fire(ctx, domain.AlertTypeSagaExhausted, domain.AlertSeverityCritical,
			"saga recovery exhausted for task "+lock.TaskID, metadata)
	}
	s.killSwitch.Trigger(ctx, "saga recovery exhausted for task "+lock.TaskID, metadata)
	return "exhausted", nil
}

func (s *Service) markRecovered(ctx context.Context, lock domain.MoneyStateLock, to domain.MoneyState, why string, attempt int) (domain.MoneyState, error) {
	// Conditional on the exact observed state so concurrent sweeps and live
	// handlers cannot double-apply.
	updated, matched, err := s.moneyStates.TransitionState(ctx, lock.TaskID,
		[]domain.MoneyState{lock.State},
		ports.MoneyStateChange{To: to, At: s.nowFn()})
	if err != nil {
		return "", err
	}
	if !matched {
		return lock.State, nil
	}
	s.appendAudit(ctx, lock.TaskID, "recovery_"+why, lock.State, to, MoneyEventContext{})
	s.enqueueSagaRecovered(ctx, lock.TaskID, string(to), attempt, string(lock.State))
	if s.metrics != nil {
		s.metrics.Increment("saga_recovered", map[string]string{"outcome": string(to), "why": why})
	}
	return updated.State, nil
}

func (s *Service) querySettlementStatus(ctx context.Context, lock domain.MoneyStateLock) (ports.SettlementStatus, error) {
	if lock.TransferID != "" {
		return s.settlement.GetTransferStatus(ctx, lock.TransferID)
	}
	if lock.PaymentIntentID != "" {
		return s.settlement.GetPaymentIntentStatus(ctx, lock.PaymentIntentID)
	}
	return ports.SettlementStatusUnknown, nil
}

func hasOutboundIntent(events []domain.MoneyEvent) bool {
	for _, event := range events {
		if strings.Contains(event.EventType, "executing") {
			return true
		}
	}
	return false
}
