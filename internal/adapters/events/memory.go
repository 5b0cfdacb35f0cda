package events

import (
	"context"
	"sync"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
)

// MemoryBus is a single-process stand-in for the broker. It implements the
// publisher ports and feeds published domain events back through Receive,
// which keeps local and test wiring loop-complete.
type MemoryBus struct {
	mu        sync.Mutex
	domain    []contracts.EventEnvelope
	analytics []contracts.EventEnvelope
	dlq       []contracts.DLQRecord
	inbox     []contracts.EventEnvelope
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) PublishDomain(_ context.Context, event contracts.EventEnvelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.domain = append(b.domain, event)
	return nil
}

func (b *MemoryBus) PublishAnalytics(_ context.Context, event contracts.EventEnvelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.analytics = append(b.analytics, event)
	return nil
}

func (b *MemoryBus) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dlq = append(b.dlq, record)
	return nil
}

// Inject queues an inbound event for the consumer side.
func (b *MemoryBus) Inject(event contracts.EventEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = append(b.inbox, event)
}

func (b *MemoryBus) Receive(_ context.Context) (*contracts.EventEnvelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.inbox) == 0 {
		return nil, nil
	}
	event := b.inbox[0]
	b.inbox = b.inbox[1:]
	return &event, nil
}

func (b *MemoryBus) DomainEvents() []contracts.EventEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(b.domain))
	copy(out, b.domain)
	return out
}

func (b *MemoryBus) AnalyticsEvents() []contracts.EventEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(b.analytics))
	copy(out, b.analytics)
	return out
}

func (b *MemoryBus) DLQRecords() []contracts.DLQRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contracts.DLQRecord, len(b.dlq))
	copy(out, b.dlq)
	return out
}
