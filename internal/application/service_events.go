package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// HandleDomainEvent routes an inbound event from the money stream. A
// task.completed event triggers the release path for the task's escrow.
func (s *Service) HandleDomainEvent(ctx context.Context, event contracts.EventEnvelope) error {
	if event.EventType != domain.EventTaskCompleted {
		return domain.ErrUnsupportedEventType
	}
	if event.EventClass != "" && event.EventClass != domain.CanonicalEventClassDomain {
		return domain.ErrUnsupportedEventClass
	}
	if err := validateDomainEventEnvelope(event, domain.EventTaskCompleted, "data.task_id"); err != nil {
		return err
	}

	now := s.nowFn()
	dup, err := s.eventDedup.IsDuplicate(ctx, event.EventID, now)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}

	var payload contracts.TaskCompletedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode task.completed payload: %w", err)
	}

	escrow, err := s.escrows.GetByTaskID(ctx, payload.TaskID)
	if err != nil {
		if err == domain.ErrNotFound {
			// No escrow on this task; nothing for the money path to do.
			return s.eventDedup.MarkProcessed(ctx, event.EventID, event.EventType, now.Add(s.cfg.EventDedupTTL))
		}
		return err
	}
	_, err = s.ReleaseEscrow(ctx, Actor{
		SubjectID:      payload.WorkerID,
		Role:           "system",
		RequestID:      event.TraceID,
		IdempotencyKey: "event:" + event.EventID,
	}, escrow.EscrowID, nil)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// A blocked payout is an expected gate outcome, not a delivery
		// failure; everything else goes back for redelivery or the DLQ.
		if !isBlockedOutcome(err) {
			return err
		}
		s.logger.InfoContext(ctx, "release blocked for completed task", "task_id", payload.TaskID, "error", err)
	}
	return s.eventDedup.MarkProcessed(ctx, event.EventID, event.EventType, now.Add(s.cfg.EventDedupTTL))
}

func isBlockedOutcome(err error) bool {
	return errors.Is(err, domain.ErrPayoutBlocked) || errors.Is(err, domain.ErrInvalidState)
}

func (s *Service) FlushOutbox(ctx context.Context) error {
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, record := range pending {
		var publishErr error
		switch record.EventClass {
		case domain.CanonicalEventClassAnalyticsOnly:
			publishErr = s.analytics.PublishAnalytics(ctx, record.Envelope)
		default:
			publishErr = s.domainEvents.PublishDomain(ctx, record.Envelope)
		}
		if publishErr != nil {
			return publishErr
		}
		if err := s.outbox.MarkSent(ctx, record.RecordID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueEscrowFunded(ctx context.Context, escrow domain.Escrow) {
	payload := contracts.EscrowFundedPayload{
		EscrowID:           escrow.EscrowID,
		TaskID:             escrow.TaskID,
		AmountCents:        escrow.AmountCents,
		ExternalPaymentRef: escrow.PaymentIntentRef,
		FundedAt:           s.nowFn().Format(time.RFC3339),
	}
	s.enqueueDomain(ctx, domain.EventEscrowFunded, escrow.TaskID, payload)
}

func (s *Service) enqueueEscrowReleased(ctx context.Context, escrow domain.Escrow, payeeID string) {
	payload := contracts.EscrowReleasedPayload{
		EscrowID:    escrow.EscrowID,
		TaskID:      escrow.TaskID,
		PayeeID:     payeeID,
		AmountCents: escrow.AmountCents,
		ReleasedAt:  s.nowFn().Format(time.RFC3339),
	}
	s.enqueueDomain(ctx, domain.EventEscrowReleased, escrow.TaskID, payload)
}

func (s *Service) enqueueEscrowRefunded(ctx context.Context, escrow domain.Escrow) {
	payload := contracts.EscrowRefundedPayload{
		EscrowID:    escrow.EscrowID,
		TaskID:      escrow.TaskID,
		AmountCents: escrow.AmountCents,
		RefundedAt:  s.nowFn().Format(time.RFC3339),
	}
	s.enqueueDomain(ctx, domain.EventEscrowRefunded, escrow.TaskID, payload)
}

func (s *Service) enqueueSagaRecovered(ctx context.Context, taskID, outcome string, attempt int, previousState string) {
	payload := contracts.SagaRecoveredPayload{
		TaskID:        taskID,
		Outcome:       outcome,
		Attempt:       attempt,
		PreviousState: previousState,
		RecoveredAt:   s.nowFn().Format(time.RFC3339),
	}
	s.enqueueDomain(ctx, domain.EventSagaRecovered, taskID, payload)
}

func (s *Service) enqueueDriftCompensated(ctx context.Context, accountID string, driftCents int64, transactionID string) {
	payload := contracts.DriftCompensatedPayload{
		AccountID:     accountID,
		DriftCents:    driftCents,
		TransactionID: transactionID,
		CompensatedAt: s.nowFn().Format(time.RFC3339),
	}
	s.enqueueDomain(ctx, domain.EventDriftCompensated, accountID, payload)
}

func (s *Service) enqueueKillSwitchTripped(ctx context.Context, state domain.KillSwitchState) {
	trippedAt := s.nowFn()
	if state.TriggeredAt != nil {
		trippedAt = *state.TriggeredAt
	}
	payload := contracts.KillSwitchTrippedPayload{
		Reason:    state.Reason,
		Metadata:  state.Metadata,
		TrippedAt: trippedAt.Format(time.RFC3339),
	}
	s.enqueueDomainWithPath(ctx, domain.EventKillSwitchTripped, "data.reason", state.Reason, payload)
}

// enqueueDomain stages a domain event on the outbox. Outbox failures are
// logged, not returned: event delivery must never fail the money operation
// it describes.
func (s *Service) enqueueDomain(ctx context.Context, eventType, partitionKey string, payload any) {
	s.enqueueDomainWithPath(ctx, eventType, "data.task_id", partitionKey, payload)
}

func (s *Service) enqueueDomainWithPath(ctx context.Context, eventType, partitionKeyPath, partitionKey string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "event payload marshal failed", "event_type", eventType, "error", err)
		return
	}
	at := s.nowFn()
	err = s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: domain.CanonicalEventClassDomain,
		Envelope: contracts.EventEnvelope{
			EventID:          uuid.NewString(),
			EventType:        eventType,
			EventClass:       domain.CanonicalEventClassDomain,
			OccurredAt:       at,
			PartitionKeyPath: partitionKeyPath,
			PartitionKey:     partitionKey,
			SourceService:    s.cfg.ServiceName,
			TraceID:          uuid.NewString(),
			SchemaVersion:    "v1",
			Data:             data,
		},
		CreatedAt: at,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed", "event_type", eventType, "error", err)
	}
}

func validateDomainEventEnvelope(event contracts.EventEnvelope, expectedEventType, expectedPartitionPath string) error {
	if strings.TrimSpace(event.EventID) == "" {
		return fmt.Errorf("%w: missing event_id", domain.ErrInvalidInput)
	}
	if event.EventType != expectedEventType {
		return fmt.Errorf("%w: unsupported event_type %s", domain.ErrInvalidInput, event.EventType)
	}
	if event.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.SourceService) == "" {
		return fmt.Errorf("%w: missing source_service", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.TraceID) == "" {
		return fmt.Errorf("%w: missing trace_id", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.SchemaVersion) == "" {
		return fmt.Errorf("%w: missing schema_version", domain.ErrInvalidInput)
	}
	if len(event.Data) == 0 {
		return fmt.Errorf("%w: missing data payload", domain.ErrInvalidInput)
	}
	if event.PartitionKeyPath != expectedPartitionPath {
		return fmt.Errorf("%w: expected partition_key_path %s", domain.ErrInvalidInput, expectedPartitionPath)
	}
	field := strings.TrimPrefix(event.PartitionKeyPath, "data.")
	var payload map[string]interface{}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("%w: invalid data payload", domain.ErrInvalidInput)
	}
	value, ok := payload[field]
	if !ok {
		return fmt.Errorf("%w: partition key field %s missing from payload", domain.ErrInvalidInput, field)
	}
	if fmt.Sprint(value) != event.PartitionKey {
		return fmt.Errorf("%w: partition key invariant failed", domain.ErrInvalidInput)
	}
	return nil
}
