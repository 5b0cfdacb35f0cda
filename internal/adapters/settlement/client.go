package settlement

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

// StubClient stands in for the settlement network. Transfers are recorded
// in memory keyed by idempotency key, so replays return the original
// result instead of moving money twice.
type StubClient struct {
	endpoint string

	mu        sync.Mutex
	transfers map[string]ports.TransferResult
	byID      map[string]ports.SettlementStatus
}

func NewStubClient(endpoint string) *StubClient {
	return &StubClient{
		endpoint:  endpoint,
		transfers: make(map[string]ports.TransferResult),
		byID:      make(map[string]ports.SettlementStatus),
	}
}

func endpointFailing(endpoint string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(endpoint)), "fail")
}

func (c *StubClient) ExecuteTransfer(_ context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	if endpointFailing(c.endpoint) {
		return ports.TransferResult{}, errors.New("settlement upstream unavailable")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prior, ok := c.transfers[req.IdempotencyKey]; ok {
		return prior, nil
	}
	status := ports.SettlementStatusSucceeded
	switch {
	case strings.Contains(req.TaskID, "declined"):
		status = ports.SettlementStatusFailed
	case strings.Contains(req.TaskID, "slow"):
		status = ports.SettlementStatusUnknown
	}
	result := ports.TransferResult{
		TransferID: "tr_" + uuid.NewString(),
		ChargeID:   "ch_" + uuid.NewString(),
		Status:     status,
	}
	c.transfers[req.IdempotencyKey] = result
	c.byID[result.TransferID] = status
	return result, nil
}

func (c *StubClient) GetTransferStatus(_ context.Context, transferID string) (ports.SettlementStatus, error) {
	if endpointFailing(c.endpoint) {
		return ports.SettlementStatusUnknown, errors.New("settlement upstream unavailable")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if status, ok := c.byID[transferID]; ok {
		return status, nil
	}
	return ports.SettlementStatusUnknown, nil
}

func (c *StubClient) GetPaymentIntentStatus(_ context.Context, paymentIntentID string) (ports.SettlementStatus, error) {
	if endpointFailing(c.endpoint) {
		return ports.SettlementStatusUnknown, errors.New("settlement upstream unavailable")
	}
	switch {
	case strings.Contains(paymentIntentID, "declined"):
		return ports.SettlementStatusFailed, nil
	case strings.Contains(paymentIntentID, "processing"):
		return ports.SettlementStatusUnknown, nil
	}
	return ports.SettlementStatusSucceeded, nil
}
