package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func TestCompensateSmallDriftApplied(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// The cash account is an asset; reading 300 cents too high means it is
	// credited down.
	result, err := f.svc.CompensateDrift(ctx, adminActor("comp-1"), cashAccount, 300, "stripe_recon_42")
	if err != nil {
		t.Fatalf("CompensateDrift: %v", err)
	}
	if !result.Applied || result.Escalated {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.TransactionID == "" {
		t.Fatalf("expected a posted transaction id")
	}

	cash, err := f.repos.Ledger.GetAccount(ctx, cashAccount)
	if err != nil {
		t.Fatalf("GetAccount cash: %v", err)
	}
	if cash.BalanceCents != -300 {
		t.Fatalf("expected cash -300, got %d", cash.BalanceCents)
	}
	drift, err := f.repos.Ledger.GetAccount(ctx, driftAccount)
	if err != nil {
		t.Fatalf("GetAccount drift: %v", err)
	}
	if drift.BalanceCents != -300 {
		t.Fatalf("expected drift account -300, got %d", drift.BalanceCents)
	}
	if f.kill.IsActive(ctx) {
		t.Fatalf("kill switch must not trip for drift within the ceiling")
	}
}

func TestCompensateNegativeDriftDebitsAsset(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.svc.CompensateDrift(ctx, adminActor("comp-2"), cashAccount, -200, "stripe_recon_43")
	if err != nil {
		t.Fatalf("CompensateDrift: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected applied, got %+v", result)
	}
	cash, err := f.repos.Ledger.GetAccount(ctx, cashAccount)
	if err != nil {
		t.Fatalf("GetAccount cash: %v", err)
	}
	if cash.BalanceCents != 200 {
		t.Fatalf("expected cash 200, got %d", cash.BalanceCents)
	}
}

func TestCompensateLargeDriftEscalates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.svc.CompensateDrift(ctx, adminActor("comp-3"), cashAccount, 501, "stripe_recon_44")
	if err != nil {
		t.Fatalf("CompensateDrift: %v", err)
	}
	if !result.Escalated || result.Applied {
		t.Fatalf("unexpected result %+v", result)
	}
	if !f.kill.IsActive(ctx) {
		t.Fatalf("expected kill switch tripped for drift above the ceiling")
	}
	cash, err := f.repos.Ledger.GetAccount(ctx, cashAccount)
	if err != nil {
		t.Fatalf("GetAccount cash: %v", err)
	}
	if cash.BalanceCents != 0 {
		t.Fatalf("expected untouched balance, got %d", cash.BalanceCents)
	}
}

func TestCompensateRequiresAdminOrSystem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.CompensateDrift(context.Background(), userActor("comp-4"), cashAccount, 100, "ref")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCompensateRejectsZeroDrift(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.CompensateDrift(context.Background(), adminActor("comp-5"), cashAccount, 0, "ref")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
