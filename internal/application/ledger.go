package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/domain"
)

// EnsureSystemAccounts creates the well-known ledger accounts. Safe to call
// on every boot.
func (s *Service) EnsureSystemAccounts(ctx context.Context) error {
	now := s.nowFn()
	accounts := []domain.LedgerAccount{
		{AccountID: s.cfg.CashAccountID, Name: "settlement cash", Type: domain.AccountTypeAsset, CreatedAt: now, UpdatedAt: now},
		{AccountID: s.cfg.ClearingAccountID, Name: "escrow clearing", Type: domain.AccountTypeLiability, CreatedAt: now, UpdatedAt: now},
		{AccountID: s.cfg.DriftAccountID, Name: "system drift", Type: domain.AccountTypeLiability, CreatedAt: now, UpdatedAt: now},
	}
	for _, account := range accounts {
		if err := s.ledger.EnsureAccount(ctx, account); err != nil {
			return fmt.Errorf("ensure account %s: %w", account.AccountID, err)
		}
	}
	return nil
}

func (s *Service) payeeAccountID(payeeID string) string {
	return "acct_payee:" + payeeID
}

// postLedgerFor records the double-entry for a settled engine event.
// Funding: cash in, escrow liability up. Release: escrow liability down,
// payee payable up. Refund: escrow liability down, cash out, with any
// non-refunded remainder owed to the payee.
func (s *Service) postLedgerFor(ctx context.Context, eventType string, eventCtx MoneyEventContext) error {
	now := s.nowFn()
	txID := uuid.NewString()
	entry := func(accountID string, direction domain.EntryDirection, amount int64) domain.LedgerEntry {
		return domain.LedgerEntry{
			EntryID:       uuid.NewString(),
			TransactionID: txID,
			AccountID:     accountID,
			Direction:     direction,
			AmountCents:   amount,
			CreatedAt:     now,
		}
	}

	var tx domain.LedgerTransaction
	switch eventType {
	case domain.MoneyEventFund:
		tx = domain.LedgerTransaction{
			TransactionID: txID,
			Memo:          "escrow funded " + eventCtx.EscrowID,
			Entries: []domain.LedgerEntry{
				entry(s.cfg.CashAccountID, domain.EntryDirectionDebit, eventCtx.AmountCents),
				entry(s.cfg.ClearingAccountID, domain.EntryDirectionCredit, eventCtx.AmountCents),
			},
			CreatedAt: now,
		}
	case domain.MoneyEventRelease:
		payeeAccount := s.payeeAccountID(eventCtx.PayeeID)
		if err := s.ledger.EnsureAccount(ctx, domain.LedgerAccount{
			AccountID: payeeAccount, Name: "payee " + eventCtx.PayeeID,
			Type: domain.AccountTypeLiability, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		tx = domain.LedgerTransaction{
			TransactionID: txID,
			Memo:          "escrow released " + eventCtx.EscrowID,
			Entries: []domain.LedgerEntry{
				entry(s.cfg.ClearingAccountID, domain.EntryDirectionDebit, eventCtx.AmountCents),
				entry(payeeAccount, domain.EntryDirectionCredit, eventCtx.AmountCents),
			},
			CreatedAt: now,
		}
	case domain.MoneyEventRefund:
		refund := eventCtx.RefundCents
		if refund <= 0 {
			refund = eventCtx.AmountCents
		}
		entries := []domain.LedgerEntry{
			entry(s.cfg.ClearingAccountID, domain.EntryDirectionDebit, refund+eventCtx.PayeeCents),
			entry(s.cfg.CashAccountID, domain.EntryDirectionCredit, refund),
		}
		if eventCtx.PayeeCents > 0 {
			payeeAccount := s.payeeAccountID(eventCtx.PayeeID)
			if err := s.ledger.EnsureAccount(ctx, domain.LedgerAccount{
				AccountID: payeeAccount, Name: "payee " + eventCtx.PayeeID,
				Type: domain.AccountTypeLiability, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
			entries = append(entries, entry(payeeAccount, domain.EntryDirectionCredit, eventCtx.PayeeCents))
		}
		tx = domain.LedgerTransaction{
			TransactionID: txID,
			Memo:          "escrow refunded " + eventCtx.EscrowID,
			Entries:       entries,
			CreatedAt:     now,
		}
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventType, eventType)
	}
	return s.ledger.PostTransaction(ctx, tx)
}
