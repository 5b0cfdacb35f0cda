package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func mustCreateFunded(t *testing.T, f *fixture, taskID string, amount int64) domain.Escrow {
	t.Helper()
	ctx := context.Background()
	escrow, err := f.svc.CreateEscrow(ctx, userActor("create-"+taskID), application.CreateEscrowInput{TaskID: taskID, AmountCents: amount})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	escrow, err = f.svc.FundEscrow(ctx, userActor("fund-"+taskID), application.FundEscrowInput{EscrowID: escrow.EscrowID, ExternalPaymentRef: "pi_" + taskID})
	if err != nil {
		t.Fatalf("FundEscrow: %v", err)
	}
	return escrow
}

func TestEscrowReleaseFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_1", 2500)
	if escrow.State != domain.EscrowStateFunded {
		t.Fatalf("expected funded, got %s", escrow.State)
	}

	lock, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateHeld {
		t.Fatalf("expected held after funding, got %s", lock.State)
	}

	released, err := f.svc.ReleaseEscrow(ctx, userActor("release-1"), escrow.EscrowID, nil)
	if err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}
	if released.State != domain.EscrowStateReleased {
		t.Fatalf("expected released, got %s", released.State)
	}

	lock, err = f.repos.MoneyStates.GetByTaskID(ctx, "task_1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateCompleted {
		t.Fatalf("expected completed lock, got %s", lock.State)
	}

	// Funding then release nets the clearing liability back to zero and
	// leaves the full amount owed to the payee.
	clearing, err := f.repos.Ledger.GetAccount(ctx, clearingAccount)
	if err != nil {
		t.Fatalf("GetAccount clearing: %v", err)
	}
	if clearing.BalanceCents != 0 {
		t.Fatalf("expected clearing balance 0, got %d", clearing.BalanceCents)
	}
	payee, err := f.repos.Ledger.GetAccount(ctx, "acct_payee:user_worker_task_1")
	if err != nil {
		t.Fatalf("GetAccount payee: %v", err)
	}
	if payee.BalanceCents != 2500 {
		t.Fatalf("expected payee balance 2500, got %d", payee.BalanceCents)
	}

	pending, err := f.repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(pending))
	}
}

func TestFundEscrowReplayIsInvalidState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_replay", 1000)
	_, err := f.svc.FundEscrow(ctx, userActor("fund-again"), application.FundEscrowInput{EscrowID: escrow.EscrowID, ExternalPaymentRef: "pi_task_replay"})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on replay, got %v", err)
	}
}

func TestCreateEscrowRejectsSecondOpenEscrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.CreateEscrow(ctx, userActor("c1"), application.CreateEscrowInput{TaskID: "task_dup", AmountCents: 500}); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	_, err := f.svc.CreateEscrow(ctx, userActor("c2"), application.CreateEscrowInput{TaskID: "task_dup", AmountCents: 500})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateEscrowRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.CreateEscrow(context.Background(), userActor("c3"), application.CreateEscrowInput{TaskID: "task_zero", AmountCents: 0})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for zero amount, got %v", err)
	}
}

func TestRefundPendingEscrowSkipsEngine(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow, err := f.svc.CreateEscrow(ctx, userActor("c4"), application.CreateEscrowInput{TaskID: "task_pending_refund", AmountCents: 700})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	refunded, err := f.svc.RefundEscrow(ctx, userActor("r1"), application.RefundEscrowInput{EscrowID: escrow.EscrowID})
	if err != nil {
		t.Fatalf("RefundEscrow: %v", err)
	}
	if refunded.State != domain.EscrowStateRefunded {
		t.Fatalf("expected refunded, got %s", refunded.State)
	}
	// No money ever moved, so no money-state lock exists.
	if _, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_pending_refund"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no money state, got %v", err)
	}
}

func TestPartialRefundRequiresDisputeLock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_pr", 1000)

	_, err := f.svc.RefundEscrow(ctx, userActor("pr1"), application.RefundEscrowInput{EscrowID: escrow.EscrowID, AmountCents: 400})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for partial refund without dispute, got %v", err)
	}

	if _, err := f.svc.LockDispute(ctx, userActor("pr2"), escrow.EscrowID); err != nil {
		t.Fatalf("LockDispute: %v", err)
	}
	refunded, err := f.svc.RefundEscrow(ctx, userActor("pr3"), application.RefundEscrowInput{EscrowID: escrow.EscrowID, AmountCents: 400})
	if err != nil {
		t.Fatalf("RefundEscrow partial: %v", err)
	}
	if refunded.State != domain.EscrowStateRefundPartial {
		t.Fatalf("expected refund_partial, got %s", refunded.State)
	}

	// 400 back to the payer, the 600 remainder owed to the payee, and the
	// clearing liability cleared in full.
	clearing, err := f.repos.Ledger.GetAccount(ctx, clearingAccount)
	if err != nil {
		t.Fatalf("GetAccount clearing: %v", err)
	}
	if clearing.BalanceCents != 0 {
		t.Fatalf("expected clearing balance 0, got %d", clearing.BalanceCents)
	}
	payee, err := f.repos.Ledger.GetAccount(ctx, "acct_payee:user_worker_task_pr")
	if err != nil {
		t.Fatalf("GetAccount payee: %v", err)
	}
	if payee.BalanceCents != 600 {
		t.Fatalf("expected payee balance 600, got %d", payee.BalanceCents)
	}
	cash, err := f.repos.Ledger.GetAccount(ctx, cashAccount)
	if err != nil {
		t.Fatalf("GetAccount cash: %v", err)
	}
	if cash.BalanceCents != 600 {
		t.Fatalf("expected cash balance 600 after partial refund, got %d", cash.BalanceCents)
	}
}

func TestReleaseBlockedByActiveDispute(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_disputed", 900)

	_, err := f.svc.ReleaseEscrow(ctx, userActor("rel-d"), escrow.EscrowID, nil)
	if !errors.Is(err, domain.ErrPayoutBlocked) {
		t.Fatalf("expected ErrPayoutBlocked, got %v", err)
	}

	// A blocked gate leaves everything untouched.
	current, err := f.repos.Escrows.GetByID(ctx, escrow.EscrowID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.State != domain.EscrowStateFunded {
		t.Fatalf("expected escrow still funded, got %s", current.State)
	}
	lock, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_disputed")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateHeld {
		t.Fatalf("expected lock still held, got %s", lock.State)
	}
}

func TestReleaseWithAdminOverrideBypassesDispute(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_disputed_ovr", 900)

	override := &domain.AdminOverride{Enabled: true, AdminID: "admin_1", Reason: "dispute resolved offline"}
	released, err := f.svc.ReleaseEscrow(ctx, adminActor("rel-ovr"), escrow.EscrowID, override)
	if err != nil {
		t.Fatalf("ReleaseEscrow with override: %v", err)
	}
	if released.State != domain.EscrowStateReleased {
		t.Fatalf("expected released, got %s", released.State)
	}
}

func TestRefundWithAdminOverrideBypassesDispute(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_disputed_rfd", 1000)
	if _, err := f.svc.LockDispute(ctx, userActor("rfd-lock"), escrow.EscrowID); err != nil {
		t.Fatalf("LockDispute: %v", err)
	}

	// With the upstream dispute still open, a plain partial refund is
	// blocked; the operator override is the way out.
	_, err := f.svc.RefundEscrow(ctx, adminActor("rfd-try"), application.RefundEscrowInput{
		EscrowID:    escrow.EscrowID,
		AmountCents: 400,
	})
	if !errors.Is(err, domain.ErrPayoutBlocked) {
		t.Fatalf("expected ErrPayoutBlocked without override, got %v", err)
	}

	override := &domain.AdminOverride{Enabled: true, AdminID: "admin_1", Reason: "dispute settled for partial refund"}
	refunded, err := f.svc.RefundEscrow(ctx, adminActor("rfd-ovr"), application.RefundEscrowInput{
		EscrowID:      escrow.EscrowID,
		AmountCents:   400,
		AdminOverride: override,
	})
	if err != nil {
		t.Fatalf("RefundEscrow with override: %v", err)
	}
	if refunded.State != domain.EscrowStateRefundPartial {
		t.Fatalf("expected refund_partial, got %s", refunded.State)
	}
}

func TestLockDisputeOnlyFromFunded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow, err := f.svc.CreateEscrow(ctx, userActor("ld1"), application.CreateEscrowInput{TaskID: "task_ld", AmountCents: 100})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := f.svc.LockDispute(ctx, userActor("ld2"), escrow.EscrowID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending escrow, got %v", err)
	}
}
