package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// CreateEscrow opens a pending escrow for a task. At most one non-terminal
// escrow may exist per task.
func (s *Service) CreateEscrow(ctx context.Context, actor Actor, input CreateEscrowInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	input.TaskID = strings.TrimSpace(input.TaskID)
	if err := domain.ValidateCreateEscrowInput(input.TaskID, input.AmountCents); err != nil {
		return domain.Escrow{}, err
	}
	if existing, err := s.escrows.GetByTaskID(ctx, input.TaskID); err == nil {
		if !domain.IsTerminalEscrowState(existing.State) {
			return domain.Escrow{}, fmt.Errorf("%w: task %s already has an open escrow", domain.ErrConflict, input.TaskID)
		}
	} else if err != domain.ErrNotFound {
		return domain.Escrow{}, err
	}

	now := s.nowFn()
	escrow := domain.Escrow{
		EscrowID:    uuid.NewString(),
		TaskID:      input.TaskID,
		AmountCents: input.AmountCents,
		State:       domain.EscrowStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.escrows.Create(ctx, escrow); err != nil {
		return domain.Escrow{}, err
	}
	return escrow, nil
}

// FundEscrow confirms external funding and moves pending -> funded. The
// external payment intent is verified through the settlement network and the
// funding is posted to the ledger before the escrow row transitions.
func (s *Service) FundEscrow(ctx context.Context, actor Actor, input FundEscrowInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	input.EscrowID = strings.TrimSpace(input.EscrowID)
	input.ExternalPaymentRef = strings.TrimSpace(input.ExternalPaymentRef)
	if input.EscrowID == "" || input.ExternalPaymentRef == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	escrow, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	if escrow.State != domain.EscrowStatePending {
		return domain.Escrow{}, s.escrowStateError(ctx, input.EscrowID)
	}

	result, err := s.Handle(ctx, escrow.TaskID, domain.MoneyEventFund, MoneyEventContext{
		EscrowID:         escrow.EscrowID,
		AmountCents:      escrow.AmountCents,
		PaymentIntentRef: input.ExternalPaymentRef,
		EventID:          actor.RequestID,
	}, HandleOptions{
		EventID:        actor.RequestID,
		IdempotencyKey: engineKey("fund", escrow.EscrowID, actor.IdempotencyKey),
	})
	if err != nil {
		return domain.Escrow{}, err
	}
	if !result.Settled {
		return domain.Escrow{}, fmt.Errorf("%w: external payment %s did not succeed", domain.ErrInvalidState, input.ExternalPaymentRef)
	}

	updated, matched, err := s.escrows.TransitionState(ctx, input.EscrowID,
		[]domain.EscrowState{domain.EscrowStatePending},
		ports.EscrowStateChange{
			To:               domain.EscrowStateFunded,
			PaymentIntentRef: input.ExternalPaymentRef,
			At:               s.nowFn(),
		})
	if err != nil {
		return domain.Escrow{}, err
	}
	if !matched {
		return domain.Escrow{}, s.escrowStateError(ctx, input.EscrowID)
	}
	s.enqueueEscrowFunded(ctx, updated)
	return updated, nil
}

// ReleaseEscrow pays the escrowed amount out to the task's worker. Allowed
// from funded or locked_dispute; the payout is authorized by the eligibility
// resolver and executed by the money engine before the escrow row moves.
func (s *Service) ReleaseEscrow(ctx context.Context, actor Actor, escrowID string, override *domain.AdminOverride) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	escrowID = strings.TrimSpace(escrowID)
	if escrowID == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	if escrow.State != domain.EscrowStateFunded && escrow.State != domain.EscrowStateLockedDispute {
		return domain.Escrow{}, s.escrowStateError(ctx, escrowID)
	}

	// The linked task resolves the payee; the escrow row fixes the amount.
	task, err := s.tasks.GetTask(ctx, escrow.TaskID)
	if err != nil {
		return domain.Escrow{}, fmt.Errorf("task lookup: %w", err)
	}
	if strings.TrimSpace(task.WorkerID) == "" {
		return domain.Escrow{}, fmt.Errorf("%w: task %s has no assigned worker", domain.ErrInvalidState, escrow.TaskID)
	}

	result, err := s.Handle(ctx, escrow.TaskID, domain.MoneyEventRelease, MoneyEventContext{
		EscrowID:    escrow.EscrowID,
		PayeeID:     task.WorkerID,
		AmountCents: escrow.AmountCents,
		EventID:     actor.RequestID,
	}, HandleOptions{
		EventID:        actor.RequestID,
		IdempotencyKey: engineKey("release", escrow.EscrowID, actor.IdempotencyKey),
		AdminOverride:  override,
	})
	if err != nil {
		return domain.Escrow{}, err
	}
	if result.Decision != domain.DecisionAllow {
		return domain.Escrow{}, fmt.Errorf("%w: %s", domain.ErrPayoutBlocked, result.BlockReason)
	}
	if !result.Settled {
		return domain.Escrow{}, fmt.Errorf("%w: payout transfer did not succeed", domain.ErrInvalidState)
	}

	updated, matched, err := s.escrows.TransitionState(ctx, escrowID,
		[]domain.EscrowState{domain.EscrowStateFunded, domain.EscrowStateLockedDispute},
		ports.EscrowStateChange{To: domain.EscrowStateReleased, At: s.nowFn()})
	if err != nil {
		return domain.Escrow{}, err
	}
	if !matched {
		return domain.Escrow{}, s.escrowStateError(ctx, escrowID)
	}
	updated.PayeeID = task.WorkerID
	s.enqueueEscrowReleased(ctx, updated, task.WorkerID)
	return updated, nil
}

// RefundEscrow returns the escrowed amount to the payer. Allowed from
// pending, funded, or locked_dispute. A pending escrow never moved money, so
// it short-circuits to the state transition alone.
func (s *Service) RefundEscrow(ctx context.Context, actor Actor, input RefundEscrowInput) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	input.EscrowID = strings.TrimSpace(input.EscrowID)
	if input.EscrowID == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	escrow, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}

	refundable := []domain.EscrowState{domain.EscrowStatePending, domain.EscrowStateFunded, domain.EscrowStateLockedDispute}
	if !containsEscrowState(refundable, escrow.State) {
		return domain.Escrow{}, s.escrowStateError(ctx, input.EscrowID)
	}
	partial := input.AmountCents > 0 && input.AmountCents < escrow.AmountCents
	if input.AmountCents < 0 || input.AmountCents > escrow.AmountCents {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	if partial && escrow.State != domain.EscrowStateLockedDispute {
		return domain.Escrow{}, fmt.Errorf("%w: partial refunds require a disputed escrow", domain.ErrInvalidState)
	}

	if escrow.State != domain.EscrowStatePending {
		task, taskErr := s.tasks.GetTask(ctx, escrow.TaskID)
		if taskErr != nil {
			return domain.Escrow{}, fmt.Errorf("task lookup: %w", taskErr)
		}
		refundCents := escrow.AmountCents
		payeeCents := int64(0)
		if partial {
			refundCents = input.AmountCents
			payeeCents = escrow.AmountCents - input.AmountCents
		}
		result, engineErr := s.Handle(ctx, escrow.TaskID, domain.MoneyEventRefund, MoneyEventContext{
			EscrowID:    escrow.EscrowID,
			PayeeID:     task.WorkerID,
			AmountCents: escrow.AmountCents,
			RefundCents: refundCents,
			PayeeCents:  payeeCents,
			EventID:     actor.RequestID,
		}, HandleOptions{
			EventID:        actor.RequestID,
			IdempotencyKey: engineKey("refund", escrow.EscrowID, actor.IdempotencyKey),
			AdminOverride:  input.AdminOverride,
		})
		if engineErr != nil {
			return domain.Escrow{}, engineErr
		}
		if result.Decision != domain.DecisionAllow {
			return domain.Escrow{}, fmt.Errorf("%w: %s", domain.ErrPayoutBlocked, result.BlockReason)
		}
		if !result.Settled {
			return domain.Escrow{}, fmt.Errorf("%w: refund transfer did not succeed", domain.ErrInvalidState)
		}
	}

	target := domain.EscrowStateRefunded
	if partial {
		target = domain.EscrowStateRefundPartial
		refundable = []domain.EscrowState{domain.EscrowStateLockedDispute}
	}
	updated, matched, err := s.escrows.TransitionState(ctx, input.EscrowID, refundable,
		ports.EscrowStateChange{To: target, At: s.nowFn()})
	if err != nil {
		return domain.Escrow{}, err
	}
	if !matched {
		return domain.Escrow{}, s.escrowStateError(ctx, input.EscrowID)
	}
	s.enqueueEscrowRefunded(ctx, updated)
	return updated, nil
}

// LockDispute parks a funded escrow while a dispute is open. Money stays
// held; only release, refund, or a partial refund can leave this state.
func (s *Service) LockDispute(ctx context.Context, actor Actor, escrowID string) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	escrowID = strings.TrimSpace(escrowID)
	if escrowID == "" {
		return domain.Escrow{}, domain.ErrInvalidInput
	}
	updated, matched, err := s.escrows.TransitionState(ctx, escrowID,
		[]domain.EscrowState{domain.EscrowStateFunded},
		ports.EscrowStateChange{To: domain.EscrowStateLockedDispute, At: s.nowFn()})
	if err != nil {
		return domain.Escrow{}, err
	}
	if !matched {
		return domain.Escrow{}, s.escrowStateError(ctx, escrowID)
	}
	return updated, nil
}

func (s *Service) GetEscrow(ctx context.Context, actor Actor, escrowID string) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	return s.escrows.GetByID(ctx, strings.TrimSpace(escrowID))
}

func (s *Service) GetEscrowByTask(ctx context.Context, actor Actor, taskID string) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	return s.escrows.GetByTaskID(ctx, strings.TrimSpace(taskID))
}

// escrowStateError re-reads the row after a zero-row conditional update to
// build a precise error: the actual current state, or not-found.
func (s *Service) escrowStateError(ctx context.Context, escrowID string) error {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: escrow %s is %s", domain.ErrInvalidState, escrowID, escrow.State)
}

func containsEscrowState(states []domain.EscrowState, state domain.EscrowState) bool {
	for _, candidate := range states {
		if candidate == state {
			return true
		}
	}
	return false
}

func engineKey(operation, escrowID, actorKey string) string {
	if strings.TrimSpace(actorKey) == "" {
		return ""
	}
	return operation + ":" + escrowID + ":" + actorKey
}
