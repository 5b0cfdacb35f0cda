package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func TestResolveKillSwitchCheckedFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.kill.Trigger(ctx, "manual freeze", nil)

	// Even a nonexistent task reports the kill switch: it is always the
	// first gate.
	evaluation := f.svc.ResolveEligibility(ctx, "task_missing", application.ResolveOptions{})
	if evaluation.Decision != domain.DecisionBlock {
		t.Fatalf("expected block, got %s", evaluation.Decision)
	}
	if evaluation.BlockReason != domain.BlockKillSwitchActive {
		t.Fatalf("expected KILLSWITCH_ACTIVE, got %s", evaluation.BlockReason)
	}
}

func TestResolveTaskGates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	evaluation := f.svc.ResolveEligibility(ctx, "task_missing", application.ResolveOptions{})
	if evaluation.BlockReason != domain.BlockTaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND, got %s", evaluation.BlockReason)
	}

	evaluation = f.svc.ResolveEligibility(ctx, "task_open", application.ResolveOptions{})
	if evaluation.BlockReason != domain.BlockTaskNotCompleted {
		t.Fatalf("expected TASK_NOT_COMPLETED, got %s", evaluation.BlockReason)
	}
}

func TestResolveProofRejectedEscalates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	evaluation := f.svc.ResolveEligibility(context.Background(), "task_rejected", application.ResolveOptions{})
	if evaluation.Decision != domain.DecisionEscalate {
		t.Fatalf("expected escalate, got %s", evaluation.Decision)
	}
	if evaluation.BlockReason != domain.BlockProofRejected {
		t.Fatalf("expected PROOF_REJECTED, got %s", evaluation.BlockReason)
	}
}

func TestResolveMissingMoneyStateBlocks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	evaluation := f.svc.ResolveEligibility(context.Background(), "task_nolock", application.ResolveOptions{})
	if evaluation.Decision != domain.DecisionBlock {
		t.Fatalf("expected block, got %s", evaluation.Decision)
	}
	if evaluation.BlockReason != domain.BlockMoneyStateInvalid {
		t.Fatalf("expected MONEY_STATE_INVALID, got %s", evaluation.BlockReason)
	}
}

func TestResolveTerminalMoneyStateBlocksDespiteOverride(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	err := f.repos.MoneyStates.Create(ctx, domain.MoneyStateLock{
		TaskID: "task_done", State: domain.MoneyStateCompleted, LastTransitionAt: now, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create lock: %v", err)
	}

	override := &domain.AdminOverride{Enabled: true, AdminID: "admin_1", Reason: "support escalation"}
	evaluation := f.svc.ResolveEligibility(ctx, "task_done", application.ResolveOptions{AdminOverride: override})
	if evaluation.Decision != domain.DecisionBlock {
		t.Fatalf("expected block for terminal state, got %s", evaluation.Decision)
	}
	if evaluation.BlockReason != domain.BlockMoneyStateInvalid {
		t.Fatalf("expected MONEY_STATE_INVALID, got %s", evaluation.BlockReason)
	}
}

func TestResolveUpstreamFailureEscalates(t *testing.T) {
	t.Parallel()
	f := newFixtureWith(t, fixtureEndpoints{task: "fail.internal:9090"})
	evaluation := f.svc.ResolveEligibility(context.Background(), "task_any", application.ResolveOptions{})
	if evaluation.Decision != domain.DecisionEscalate {
		t.Fatalf("expected escalate on upstream failure, got %s", evaluation.Decision)
	}
	if evaluation.BlockReason != domain.BlockAdminOverrideNeeded {
		t.Fatalf("expected ADMIN_OVERRIDE_REQUIRED, got %s", evaluation.BlockReason)
	}
}

func TestResolveExpiredOverrideIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	expired := time.Now().UTC().Add(-time.Hour)
	override := &domain.AdminOverride{Enabled: true, AdminID: "admin_1", Reason: "stale", ExpiresAt: &expired}
	evaluation := f.svc.ResolveEligibility(ctx, "task_disputed", application.ResolveOptions{AdminOverride: override})
	if evaluation.BlockReason != domain.BlockDisputeActive {
		t.Fatalf("expected DISPUTE_ACTIVE with expired override, got %s", evaluation.BlockReason)
	}
}

func TestResolveAppendsEvaluationLog(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.svc.ResolveEligibility(ctx, "task_log", application.ResolveOptions{})
	f.svc.ResolveEligibility(ctx, "task_log", application.ResolveOptions{})
	rows, err := f.repos.EligibilityLog.ListByTaskID(ctx, "task_log")
	if err != nil {
		t.Fatalf("ListByTaskID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 evaluation rows, got %d", len(rows))
	}
	if rows[0].EvaluationID == rows[1].EvaluationID {
		t.Fatalf("evaluation ids must be unique")
	}
}
