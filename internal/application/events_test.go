package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func taskCompletedEvent(eventID, taskID string) contracts.EventEnvelope {
	data, _ := json.Marshal(contracts.TaskCompletedPayload{
		TaskID:      taskID,
		WorkerID:    "user_worker_" + taskID,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return contracts.EventEnvelope{
		EventID:          eventID,
		EventType:        domain.EventTaskCompleted,
		EventClass:       domain.CanonicalEventClassDomain,
		OccurredAt:       time.Now().UTC(),
		PartitionKeyPath: "data.task_id",
		PartitionKey:     taskID,
		SourceService:    "task-service",
		TraceID:          "trace-" + eventID,
		SchemaVersion:    "1.0",
		Data:             data,
	}
}

func TestHandleDomainEventReleasesEscrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_evt", 1800)

	if err := f.svc.HandleDomainEvent(ctx, taskCompletedEvent("evt-1", "task_evt")); err != nil {
		t.Fatalf("HandleDomainEvent: %v", err)
	}
	got, err := f.repos.Escrows.GetByID(ctx, escrow.EscrowID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != domain.EscrowStateReleased {
		t.Fatalf("expected released, got %s", got.State)
	}
}

func TestHandleDomainEventDeduplicates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	mustCreateFunded(t, f, "task_dup", 1000)

	if err := f.svc.HandleDomainEvent(ctx, taskCompletedEvent("evt-dup", "task_dup")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.svc.HandleDomainEvent(ctx, taskCompletedEvent("evt-dup", "task_dup")); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	rows, err := f.repos.Ledger.ListTransactions(ctx, clearingAccount)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected fund+release transactions only, got %d", len(rows))
	}
}

func TestHandleDomainEventRejectsMalformedEnvelope(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	event := taskCompletedEvent("evt-bad", "task_bad")
	event.PartitionKeyPath = "data.worker_id"
	if err := f.svc.HandleDomainEvent(ctx, event); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	event = taskCompletedEvent("evt-bad-2", "task_bad")
	event.TraceID = ""
	if err := f.svc.HandleDomainEvent(ctx, event); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing trace, got %v", err)
	}
}

func TestHandleDomainEventIgnoresUnknownType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	event := taskCompletedEvent("evt-odd", "task_odd")
	event.EventType = "task.reassigned"
	err := f.svc.HandleDomainEvent(context.Background(), event)
	if !errors.Is(err, domain.ErrUnsupportedEventType) {
		t.Fatalf("expected ErrUnsupportedEventType, got %v", err)
	}
}

func TestHandleDomainEventToleratesBlockedRelease(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	mustCreateFunded(t, f, "task_evt_disputed", 1000)

	// A blocked payout is a terminal gate outcome for this delivery, not a
	// reason to redeliver forever.
	if err := f.svc.HandleDomainEvent(ctx, taskCompletedEvent("evt-blk", "task_evt_disputed")); err != nil {
		t.Fatalf("HandleDomainEvent: %v", err)
	}
	dup, err := f.repos.EventDedup.IsDuplicate(ctx, "evt-blk", time.Now().UTC())
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if !dup {
		t.Fatalf("expected event to be marked processed")
	}
}

func TestFlushOutboxPublishesAndDrains(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	escrow := mustCreateFunded(t, f, "task_out", 700)
	if _, err := f.svc.ReleaseEscrow(ctx, userActor("rel-out"), escrow.EscrowID, nil); err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}

	if err := f.svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("FlushOutbox: %v", err)
	}
	published := f.bus.DomainEvents()
	if len(published) != 2 {
		t.Fatalf("expected escrow.funded and escrow.released, got %d", len(published))
	}
	for _, event := range published {
		if event.PartitionKey != "task_out" {
			t.Fatalf("expected partition key task_out, got %s", event.PartitionKey)
		}
	}

	pending, err := f.repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %d", len(pending))
	}

	// A second flush is a no-op.
	if err := f.svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("second FlushOutbox: %v", err)
	}
	if got := len(f.bus.DomainEvents()); got != 2 {
		t.Fatalf("expected no republish, got %d", got)
	}
}
