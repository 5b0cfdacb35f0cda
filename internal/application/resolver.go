package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

// ResolveEligibility is the only function permitted to authorize money
// movement. The check order is fixed and must never be reordered: kill
// switch, task, dispute, proof, money state. Later checks assume earlier
// ones passed. Expected gate outcomes are ordinary return values; an
// unexpected internal failure converts to an escalate decision because
// money-path callers must always receive a decision.
func (s *Service) ResolveEligibility(ctx context.Context, taskID string, opts ResolveOptions) domain.EligibilityEvaluation {
	now := s.nowFn()
	evaluation := domain.EligibilityEvaluation{
		EvaluationID: uuid.NewString(),
		TaskID:       taskID,
		Details:      map[string]any{},
		EvaluatedAt:  now,
	}

	override := domain.AdminOverride{}
	if opts.AdminOverride != nil {
		override = *opts.AdminOverride
	}
	overrideValid := override.Valid(now)
	if opts.AdminOverride != nil && !overrideValid {
		// Invalid overrides are treated as absent, not as errors.
		evaluation.Details["admin_override_ignored"] = true
	}
	if overrideValid {
		evaluation.Details["admin_override_id"] = override.AdminID
		evaluation.Details["admin_override_reason"] = override.Reason
	}

	decide := func(decision domain.Decision, blockReason domain.BlockReason, reason string) domain.EligibilityEvaluation {
		evaluation.Decision = decision
		evaluation.BlockReason = blockReason
		evaluation.Reason = reason
		s.recordEvaluation(ctx, evaluation)
		return evaluation
	}

	// 1. Kill switch. No override possible.
	if s.killSwitch.IsActive(ctx) {
		return decide(domain.DecisionBlock, domain.BlockKillSwitchActive, "system frozen by kill switch")
	}

	// 2-3. Task existence and payable state.
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		if err == domain.ErrNotFound {
			return decide(domain.DecisionBlock, domain.BlockTaskNotFound, "task not found")
		}
		evaluation.Details["resolver_error"] = err.Error()
		return decide(domain.DecisionEscalate, domain.BlockAdminOverrideNeeded, "task lookup failed")
	}
	evaluation.Details["task_status"] = task.Status
	if !task.Payable() {
		return decide(domain.DecisionBlock, domain.BlockTaskNotCompleted, fmt.Sprintf("task is %s", task.Status))
	}

	// 4. Dispute, overridable by a validated admin override.
	disputed, err := s.disputes.HasActiveDispute(ctx, taskID)
	if err != nil {
		evaluation.Details["resolver_error"] = err.Error()
		return decide(domain.DecisionEscalate, domain.BlockAdminOverrideNeeded, "dispute lookup failed")
	}
	if disputed {
		evaluation.Details["dispute_active"] = true
		if !overrideValid {
			return decide(domain.DecisionBlock, domain.BlockDisputeActive, "active dispute on task")
		}
		s.logger.InfoContext(ctx, "dispute gate overridden",
			"task_id", taskID, "admin_id", override.AdminID, "reason", override.Reason)
	}

	// 5. Proof-of-completion gate, overridable except when the proof record
	// is entirely absent.
	freeze, err := s.proofs.IsPayoutBlocked(ctx, taskID)
	if err != nil {
		evaluation.Details["resolver_error"] = err.Error()
		return decide(domain.DecisionEscalate, domain.BlockAdminOverrideNeeded, "proof freeze lookup failed")
	}
	truth, err := s.proofs.GetProofTruth(ctx, taskID)
	if err != nil {
		evaluation.Details["resolver_error"] = err.Error()
		return decide(domain.DecisionEscalate, domain.BlockAdminOverrideNeeded, "proof truth lookup failed")
	}
	evaluation.Details["proof_state"] = string(truth.ProofState)
	evaluation.Details["proof_freeze"] = freeze.Blocked
	if !overrideValid {
		switch truth.ProofState {
		case domain.ProofStateRequested:
			return decide(domain.DecisionBlock, domain.BlockProofRequested, "completion proof requested")
		case domain.ProofStateAnalyzing:
			return decide(domain.DecisionBlock, domain.BlockProofAnalyzing, "completion proof under analysis")
		case domain.ProofStateRejected:
			return decide(domain.DecisionEscalate, domain.BlockProofRejected, "completion proof rejected")
		case domain.ProofStateEscalated:
			return decide(domain.DecisionEscalate, domain.BlockProofEscalated, "completion proof escalated")
		}
		if freeze.Blocked {
			return decide(domain.DecisionBlock, domain.BlockProofRequested, freeze.Reason)
		}
	}

	// 6. Money-state lock. Terminal states always block, even with a valid
	// override: double payouts are unrecoverable.
	lock, err := s.moneyStates.GetByTaskID(ctx, taskID)
	if err != nil {
		if err == domain.ErrNotFound {
			return decide(domain.DecisionBlock, domain.BlockMoneyStateInvalid, "no money state for task")
		}
		evaluation.Details["resolver_error"] = err.Error()
		return decide(domain.DecisionEscalate, domain.BlockAdminOverrideNeeded, "money state lookup failed")
	}
	evaluation.Details["money_state"] = string(lock.State)
	if domain.IsTerminalMoneyState(lock.State) {
		return decide(domain.DecisionBlock, domain.BlockMoneyStateInvalid, fmt.Sprintf("money state %s is terminal", lock.State))
	}
	if lock.State != domain.MoneyStateHeld && !overrideValid {
		return decide(domain.DecisionBlock, domain.BlockMoneyStateInvalid, fmt.Sprintf("money state is %s, not held", lock.State))
	}

	return decide(domain.DecisionAllow, "", "all gates passed")
}

// recordEvaluation logs the evaluation for forensics and counts the
// decision. Neither path can fail the resolver.
func (s *Service) recordEvaluation(ctx context.Context, evaluation domain.EligibilityEvaluation) {
	if err := s.eligibilityLog.Append(ctx, evaluation); err != nil {
		s.logger.ErrorContext(ctx, "eligibility log append failed",
			"task_id", evaluation.TaskID, "evaluation_id", evaluation.EvaluationID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.Increment("payout_eligibility_decision", map[string]string{"decision": string(evaluation.Decision)})
	}
}
