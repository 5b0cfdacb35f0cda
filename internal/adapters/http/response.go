package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// mapDomainError uses errors.Is because the application layer wraps
// sentinels with task and state context.
func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrKillSwitchActive):
		return http.StatusServiceUnavailable, "killswitch_active"
	case errors.Is(err, domain.ErrPayoutBlocked):
		return http.StatusUnprocessableEntity, "payout_blocked"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrSettlementPending):
		return http.StatusAccepted, "payment_processing"
	case errors.Is(err, domain.ErrUnbalancedTransaction):
		return http.StatusUnprocessableEntity, "unbalanced_transaction"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
