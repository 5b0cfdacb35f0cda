package domain

import (
	"strings"
	"time"
)

type Decision string

const (
	DecisionAllow    Decision = "allow"
	DecisionBlock    Decision = "block"
	DecisionEscalate Decision = "escalate"
)

type BlockReason string

const (
	BlockKillSwitchActive     BlockReason = "KILLSWITCH_ACTIVE"
	BlockTaskNotFound         BlockReason = "TASK_NOT_FOUND"
	BlockTaskNotCompleted     BlockReason = "TASK_NOT_COMPLETED"
	BlockDisputeActive        BlockReason = "DISPUTE_ACTIVE"
	BlockProofRequested       BlockReason = "PROOF_REQUESTED"
	BlockProofAnalyzing       BlockReason = "PROOF_ANALYZING"
	BlockProofRejected        BlockReason = "PROOF_REJECTED"
	BlockProofEscalated       BlockReason = "PROOF_ESCALATED"
	BlockMoneyStateInvalid    BlockReason = "MONEY_STATE_INVALID"
	BlockAdminOverrideNeeded  BlockReason = "ADMIN_OVERRIDE_REQUIRED"
)

type ProofState string

const (
	ProofStateNone      ProofState = "none"
	ProofStateRequested ProofState = "requested"
	ProofStateAnalyzing ProofState = "analyzing"
	ProofStateVerified  ProofState = "verified"
	ProofStateRejected  ProofState = "rejected"
	ProofStateEscalated ProofState = "escalated"
)

// AdminOverride lets an operator bypass dispute and proof gates. It never
// bypasses the kill switch or a terminal money state.
type AdminOverride struct {
	Enabled   bool       `json:"enabled"`
	AdminID   string     `json:"admin_id"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the override may be honored at the given time.
// An invalid override is treated as absent, not as an error.
func (o AdminOverride) Valid(now time.Time) bool {
	if !o.Enabled {
		return false
	}
	if strings.TrimSpace(o.AdminID) == "" || strings.TrimSpace(o.Reason) == "" {
		return false
	}
	if o.ExpiresAt != nil && !now.Before(*o.ExpiresAt) {
		return false
	}
	return true
}

// EligibilityEvaluation is one forensic log record per resolver call.
// Append-only; never consulted for control flow.
type EligibilityEvaluation struct {
	EvaluationID string         `json:"evaluation_id"`
	TaskID       string         `json:"task_id"`
	Decision     Decision       `json:"decision"`
	BlockReason  BlockReason    `json:"block_reason,omitempty"`
	Reason       string         `json:"reason"`
	Details      map[string]any `json:"details,omitempty"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}
