package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/ports"
)

func endpointFailing(endpoint string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(endpoint)), "fail")
}

type taskClient struct{ endpoint string }

type disputeClient struct{ endpoint string }

type proofClient struct{ endpoint string }

func NewTaskClient(endpoint string) ports.TaskReader { return &taskClient{endpoint: endpoint} }
func NewDisputeClient(endpoint string) ports.DisputeReader {
	return &disputeClient{endpoint: endpoint}
}
func NewProofClient(endpoint string) ports.ProofReader { return &proofClient{endpoint: endpoint} }

func (c *taskClient) GetTask(_ context.Context, taskID string) (ports.TaskInfo, error) {
	if endpointFailing(c.endpoint) {
		return ports.TaskInfo{}, errors.New("task upstream unavailable")
	}
	if strings.Contains(taskID, "missing") {
		return ports.TaskInfo{}, domain.ErrNotFound
	}
	status := "completed"
	if strings.Contains(taskID, "open") {
		status = "in_progress"
	}
	return ports.TaskInfo{
		TaskID:   taskID,
		Status:   status,
		PosterID: "user_poster_" + taskID,
		WorkerID: "user_worker_" + taskID,
	}, nil
}

func (c *disputeClient) HasActiveDispute(_ context.Context, taskID string) (bool, error) {
	if endpointFailing(c.endpoint) {
		return false, errors.New("dispute upstream unavailable")
	}
	return strings.Contains(taskID, "disputed"), nil
}

func (c *proofClient) IsPayoutBlocked(_ context.Context, taskID string) (ports.ProofFreeze, error) {
	if endpointFailing(c.endpoint) {
		return ports.ProofFreeze{}, errors.New("proof upstream unavailable")
	}
	if strings.Contains(taskID, "frozen") {
		return ports.ProofFreeze{Blocked: true, Reason: "proof verification in progress"}, nil
	}
	return ports.ProofFreeze{}, nil
}

func (c *proofClient) GetProofTruth(_ context.Context, taskID string) (ports.ProofTruth, error) {
	if endpointFailing(c.endpoint) {
		return ports.ProofTruth{}, errors.New("proof upstream unavailable")
	}
	state := domain.ProofStateVerified
	switch {
	case strings.Contains(taskID, "rejected"):
		state = domain.ProofStateRejected
	case strings.Contains(taskID, "escalated"):
		state = domain.ProofStateEscalated
	case strings.Contains(taskID, "analyzing"):
		state = domain.ProofStateAnalyzing
	}
	return ports.ProofTruth{
		ProofState:    state,
		HasValidProof: state == domain.ProofStateVerified,
	}, nil
}
