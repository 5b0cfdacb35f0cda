package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func plantStuckLock(t *testing.T, f *fixture, taskID string, state domain.MoneyState, attempts int, paymentIntentID string) {
	t.Helper()
	old := time.Now().UTC().Add(-time.Hour)
	err := f.repos.MoneyStates.Create(context.Background(), domain.MoneyStateLock{
		TaskID:           taskID,
		State:            state,
		PaymentIntentID:  paymentIntentID,
		RecoveryAttempts: attempts,
		LastTransitionAt: old,
		CreatedAt:        old,
	})
	if err != nil {
		t.Fatalf("Create lock: %v", err)
	}
}

func plantOutboundIntent(t *testing.T, f *fixture, taskID string, state domain.MoneyState) {
	t.Helper()
	err := f.repos.MoneyEvents.Append(context.Background(), domain.MoneyEvent{
		EventID:       uuid.NewString(),
		TaskID:        taskID,
		EventType:     string(state),
		PreviousState: domain.MoneyStateHeld,
		NewState:      state,
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Append audit: %v", err)
	}
}

func exhaustedAlerts(f *fixture) int {
	n := 0
	for _, alert := range f.alerts.Alerts() {
		if alert.Type == domain.AlertTypeSagaExhausted {
			n++
		}
	}
	return n
}

func TestSweepFailsLockWithoutOutboundIntent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	plantStuckLock(t, f, "task_crashed", domain.MoneyStateExecutingRelease, 0, "")

	report, err := f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if report.Scanned != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	lock, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_crashed")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateFailed {
		t.Fatalf("expected failed, got %s", lock.State)
	}
}

func TestSweepCompletesFromSettlementEvidence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	plantStuckLock(t, f, "task_confirmed", domain.MoneyStateExecutingFund, 0, "pi_ok")
	plantOutboundIntent(t, f, "task_confirmed", domain.MoneyStateExecutingFund)

	report, err := f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if report.Completed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	lock, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_confirmed")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateCompleted {
		t.Fatalf("expected completed, got %s", lock.State)
	}
}

func TestSweepDefersUnknownSettlement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	plantStuckLock(t, f, "task_pending", domain.MoneyStateExecutingRelease, 0, "pi_processing")
	plantOutboundIntent(t, f, "task_pending", domain.MoneyStateExecutingRelease)

	report, err := f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if report.Deferred != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	lock, err := f.repos.MoneyStates.GetByTaskID(ctx, "task_pending")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if lock.State != domain.MoneyStateExecutingRelease {
		t.Fatalf("expected lock untouched, got %s", lock.State)
	}
	if lock.RecoveryAttempts != 1 {
		t.Fatalf("expected 1 recovery attempt, got %d", lock.RecoveryAttempts)
	}

	// The attempt restarted the stuck clock, so an immediate re-sweep
	// skips the task instead of hammering the settlement network.
	report, err = f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("second SweepOnce: %v", err)
	}
	if report.Scanned != 0 {
		t.Fatalf("expected deferred task to be skipped, scanned %d", report.Scanned)
	}
}

func TestSweepExhaustionTripsKillSwitch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	plantStuckLock(t, f, "task_hopeless", domain.MoneyStateExecutingRelease, 3, "pi_processing")
	plantOutboundIntent(t, f, "task_hopeless", domain.MoneyStateExecutingRelease)

	report, err := f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if report.Exhausted != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !f.kill.IsActive(ctx) {
		t.Fatalf("expected kill switch tripped")
	}
	if exhaustedAlerts(f) != 1 {
		t.Fatalf("expected 1 exhausted alert, got %d", exhaustedAlerts(f))
	}

	// A second sweep sees the same lock but must not re-alert or re-audit.
	report, err = f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("second SweepOnce: %v", err)
	}
	if report.Exhausted != 1 {
		t.Fatalf("unexpected second report %+v", report)
	}
	if exhaustedAlerts(f) != 1 {
		t.Fatalf("expected exhaustion alert to fire once, got %d", exhaustedAlerts(f))
	}
}

func TestSweepSkipsFreshLocks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	err := f.repos.MoneyStates.Create(ctx, domain.MoneyStateLock{
		TaskID: "task_live", State: domain.MoneyStateExecutingRelease, LastTransitionAt: now, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create lock: %v", err)
	}
	report, err := f.svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if report.Scanned != 0 {
		t.Fatalf("expected 0 scanned, got %d", report.Scanned)
	}
}
