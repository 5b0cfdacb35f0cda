package domain

import "testing"

func entry(accountID string, direction EntryDirection, cents int64) LedgerEntry {
	return LedgerEntry{AccountID: accountID, Direction: direction, AmountCents: cents}
}

func TestValidateLedgerTransaction(t *testing.T) {
	balanced := LedgerTransaction{Entries: []LedgerEntry{
		entry("a", EntryDirectionDebit, 500),
		entry("b", EntryDirectionCredit, 500),
	}}
	if err := ValidateLedgerTransaction(balanced); err != nil {
		t.Fatalf("balanced transaction rejected: %v", err)
	}

	split := LedgerTransaction{Entries: []LedgerEntry{
		entry("a", EntryDirectionDebit, 1000),
		entry("b", EntryDirectionCredit, 400),
		entry("c", EntryDirectionCredit, 600),
	}}
	if err := ValidateLedgerTransaction(split); err != nil {
		t.Fatalf("split transaction rejected: %v", err)
	}

	bad := []LedgerTransaction{
		{Entries: []LedgerEntry{entry("a", EntryDirectionDebit, 500)}},
		{Entries: []LedgerEntry{entry("a", EntryDirectionDebit, 500), entry("b", EntryDirectionCredit, 400)}},
		{Entries: []LedgerEntry{entry("a", EntryDirectionDebit, 0), entry("b", EntryDirectionCredit, 0)}},
		{Entries: []LedgerEntry{entry("a", EntryDirectionDebit, -100), entry("b", EntryDirectionCredit, -100)}},
		{Entries: []LedgerEntry{entry("a", "sideways", 500), entry("b", EntryDirectionCredit, 500)}},
	}
	for i, tx := range bad {
		if err := ValidateLedgerTransaction(tx); err != ErrUnbalancedTransaction {
			t.Errorf("case %d: expected ErrUnbalancedTransaction, got %v", i, err)
		}
	}
}

func TestBalanceDelta(t *testing.T) {
	cases := []struct {
		accountType AccountType
		direction   EntryDirection
		want        int64
	}{
		{AccountTypeAsset, EntryDirectionDebit, 100},
		{AccountTypeAsset, EntryDirectionCredit, -100},
		{AccountTypeLiability, EntryDirectionDebit, -100},
		{AccountTypeLiability, EntryDirectionCredit, 100},
	}
	for _, tc := range cases {
		if got := BalanceDelta(tc.accountType, tc.direction, 100); got != tc.want {
			t.Errorf("BalanceDelta(%s, %s) = %d, want %d", tc.accountType, tc.direction, got, tc.want)
		}
	}
}
