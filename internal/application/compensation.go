package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

// CompensateDrift corrects a detected discrepancy between a ledger account
// and the settlement network's confirmed truth. Drift is signed: positive
// means the ledger reads higher than the external truth. Drift beyond the
// auto-correct ceiling is never patched over: unexplained money drift is a
// stop-the-world event, so the kill switch trips and a human takes over.
func (s *Service) CompensateDrift(ctx context.Context, actor Actor, accountID string, driftCents int64, confirmedRef string) (CompensationResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return CompensationResult{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return CompensationResult{}, domain.ErrForbidden
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" || driftCents == 0 {
		return CompensationResult{}, domain.ErrInvalidInput
	}
	result := CompensationResult{AccountID: accountID, DriftCents: driftCents}

	metadata := map[string]string{
		"account_id":    accountID,
		"drift_cents":   strconv.FormatInt(driftCents, 10),
		"confirmed_ref": confirmedRef,
	}
	if s.alerts != nil {
		s.alerts.Fire(ctx, domain.AlertTypeDriftDetected, domain.AlertSeverityWarning,
			fmt.Sprintf("ledger drift of %d cents on account %s", driftCents, accountID), metadata)
	}

	magnitude := driftCents
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > s.cfg.DriftCeilingCents {
		s.killSwitch.Trigger(ctx, "ledger drift exceeds auto-correct ceiling - manual review required", metadata)
		result.Escalated = true
		return result, nil
	}

	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return CompensationResult{}, err
	}

	// Direction follows the account class: an asset that reads too high is
	// credited down, a liability that reads too high is debited down. The
	// system drift account takes the opposite leg so the entries net to
	// zero.
	ledgerTooHigh := driftCents > 0
	var accountDirection domain.EntryDirection
	if account.Type == domain.AccountTypeAsset {
		accountDirection = domain.EntryDirectionCredit
		if !ledgerTooHigh {
			accountDirection = domain.EntryDirectionDebit
		}
	} else {
		accountDirection = domain.EntryDirectionDebit
		if !ledgerTooHigh {
			accountDirection = domain.EntryDirectionCredit
		}
	}
	driftDirection := domain.EntryDirectionDebit
	if accountDirection == domain.EntryDirectionDebit {
		driftDirection = domain.EntryDirectionCredit
	}

	now := s.nowFn()
	txID := uuid.NewString()
	tx := domain.LedgerTransaction{
		TransactionID: txID,
		Memo:          fmt.Sprintf("drift compensation for %s (ref %s)", accountID, confirmedRef),
		Entries: []domain.LedgerEntry{
			{
				EntryID:       uuid.NewString(),
				TransactionID: txID,
				AccountID:     accountID,
				Direction:     accountDirection,
				AmountCents:   magnitude,
				CreatedAt:     now,
			},
			{
				EntryID:       uuid.NewString(),
				TransactionID: txID,
				AccountID:     s.cfg.DriftAccountID,
				Direction:     driftDirection,
				AmountCents:   magnitude,
				CreatedAt:     now,
			},
		},
		CreatedAt: now,
	}
	// Both account balances are updated inside PostTransaction, one account
	// at a time.
	if err := s.ledger.PostTransaction(ctx, tx); err != nil {
		return CompensationResult{}, err
	}

	result.Applied = true
	result.TransactionID = txID
	if s.metrics != nil {
		s.metrics.Increment("drift_compensated", map[string]string{"account_type": string(account.Type)})
	}
	s.enqueueDriftCompensated(ctx, accountID, driftCents, txID)
	return result, nil
}
