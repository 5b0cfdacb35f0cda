package domain

import "time"

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
)

type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

type LedgerAccount struct {
	AccountID    string      `json:"account_id"`
	Name         string      `json:"name"`
	Type         AccountType `json:"type"`
	BalanceCents int64       `json:"balance_cents"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type LedgerEntry struct {
	EntryID       string         `json:"entry_id"`
	TransactionID string         `json:"transaction_id"`
	AccountID     string         `json:"account_id"`
	Direction     EntryDirection `json:"direction"`
	AmountCents   int64          `json:"amount_cents"`
	CreatedAt     time.Time      `json:"created_at"`
}

type LedgerTransaction struct {
	TransactionID string        `json:"transaction_id"`
	Memo          string        `json:"memo,omitempty"`
	Entries       []LedgerEntry `json:"entries"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ValidateLedgerTransaction enforces the double-entry invariant: at least two
// entries, every amount strictly positive, debits equal to credits.
func ValidateLedgerTransaction(tx LedgerTransaction) error {
	if len(tx.Entries) < 2 {
		return ErrUnbalancedTransaction
	}
	var debits, credits int64
	for _, entry := range tx.Entries {
		if entry.AmountCents <= 0 {
			return ErrUnbalancedTransaction
		}
		switch entry.Direction {
		case EntryDirectionDebit:
			debits += entry.AmountCents
		case EntryDirectionCredit:
			credits += entry.AmountCents
		default:
			return ErrUnbalancedTransaction
		}
	}
	if debits != credits {
		return ErrUnbalancedTransaction
	}
	return nil
}

// BalanceDelta is the signed effect of one entry on an account balance.
// Debits increase asset accounts and decrease liability accounts; credits
// are the reverse.
func BalanceDelta(accountType AccountType, direction EntryDirection, amountCents int64) int64 {
	debitIncreases := accountType == AccountTypeAsset
	if (direction == EntryDirectionDebit) == debitIncreases {
		return amountCents
	}
	return -amountCents
}
