package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/contracts"
	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

func (h *Handler) createEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	escrow, err := h.service.CreateEscrow(r.Context(), actor, application.CreateEscrowInput{
		TaskID:      strings.TrimSpace(req.TaskID),
		AmountCents: req.AmountCents,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", escrow)
}

func (h *Handler) fundEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.FundEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	escrow, err := h.service.FundEscrow(r.Context(), actor, application.FundEscrowInput{
		EscrowID:           chi.URLParam(r, "escrow_id"),
		ExternalPaymentRef: strings.TrimSpace(req.ExternalPaymentRef),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) releaseEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ReleaseEscrowRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
			return
		}
	}
	escrow, err := h.service.ReleaseEscrow(r.Context(), actor, chi.URLParam(r, "escrow_id"), overrideFromRequest(req.AdminOverride))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) refundEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.RefundEscrowRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
			return
		}
	}
	escrow, err := h.service.RefundEscrow(r.Context(), actor, application.RefundEscrowInput{
		EscrowID:      chi.URLParam(r, "escrow_id"),
		AmountCents:   req.AmountCents,
		AdminOverride: overrideFromRequest(req.AdminOverride),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) lockDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrow, err := h.service.LockDispute(r.Context(), actor, chi.URLParam(r, "escrow_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrow, err := h.service.GetEscrow(r.Context(), actor, chi.URLParam(r, "escrow_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) getTaskEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrow, err := h.service.GetEscrowByTask(r.Context(), actor, chi.URLParam(r, "task_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", escrow)
}

func (h *Handler) resolveEligibility(w http.ResponseWriter, r *http.Request) {
	var req contracts.ResolveEligibilityRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
			return
		}
	}
	evaluation := h.service.ResolveEligibility(r.Context(), chi.URLParam(r, "task_id"), application.ResolveOptions{
		AdminOverride: overrideFromRequest(req.AdminOverride),
	})
	writeSuccess(w, http.StatusOK, "", evaluation)
}

func (h *Handler) getKillSwitch(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", h.service.KillSwitchControl().State(r.Context()))
}

func (h *Handler) triggerKillSwitch(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.TriggerKillSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "reason is required", requestIDFromContext(r.Context()))
		return
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["triggered_by"] = actor.SubjectID
	state := h.service.KillSwitchControl().Trigger(r.Context(), reason, metadata)
	writeSuccess(w, http.StatusOK, "", state)
}

func (h *Handler) resolveKillSwitch(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	state := h.service.KillSwitchControl().Resolve(r.Context(), actor.SubjectID)
	writeSuccess(w, http.StatusOK, "", state)
}

func (h *Handler) applyCompensation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ApplyCompensationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.CompensateDrift(r.Context(), actor, strings.TrimSpace(req.AccountID), req.DriftCents, strings.TrimSpace(req.ConfirmedRef))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

func (h *Handler) triggerSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SweepOnce(r.Context())
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", report)
}

func overrideFromRequest(req *contracts.AdminOverrideRequest) *domain.AdminOverride {
	if req == nil || !req.Enabled {
		return nil
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		expiresAt = &t
	}
	return &domain.AdminOverride{
		Enabled:   true,
		AdminID:   strings.TrimSpace(req.AdminID),
		Reason:    strings.TrimSpace(req.Reason),
		ExpiresAt: expiresAt,
	}
}
