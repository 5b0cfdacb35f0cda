package contracts

import "time"

type CreateEscrowRequest struct {
	TaskID      string `json:"task_id"`
	AmountCents int64  `json:"amount_cents"`
}

type FundEscrowRequest struct {
	ExternalPaymentRef string `json:"external_payment_ref"`
}

type ReleaseEscrowRequest struct {
	AdminOverride *AdminOverrideRequest `json:"admin_override,omitempty"`
}

type RefundEscrowRequest struct {
	AmountCents   int64                 `json:"amount_cents,omitempty"`
	AdminOverride *AdminOverrideRequest `json:"admin_override,omitempty"`
}

type ResolveEligibilityRequest struct {
	AdminOverride *AdminOverrideRequest `json:"admin_override,omitempty"`
}

type AdminOverrideRequest struct {
	Enabled   bool       `json:"enabled"`
	AdminID   string     `json:"admin_id"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type TriggerKillSwitchRequest struct {
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ApplyCompensationRequest struct {
	AccountID    string `json:"account_id"`
	DriftCents   int64  `json:"drift_cents"`
	ConfirmedRef string `json:"confirmed_ref,omitempty"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
