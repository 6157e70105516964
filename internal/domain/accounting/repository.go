package accounting

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// EntryFilter narrows journal listings.
type EntryFilter struct {
	domain.ListFilter

	From *time.Time
	To   *time.Time

	Reference string
}

// ItemTotals is Σdebit and Σcredit of journal items for one account.
type ItemTotals struct {
	AccountCode string      `db:"account_code" json:"accountCode"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
}

// EntryTotals is Σdebit and Σcredit of one journal entry.
type EntryTotals struct {
	EntryID   id.ID       `db:"entry_id" json:"entryId"`
	Reference string      `db:"reference" json:"reference"`
	Debit     types.Money `db:"debit" json:"debit"`
	Credit    types.Money `db:"credit" json:"credit"`
}

// Repository defines chart-of-accounts and journal persistence.
type Repository interface {
	// EnsureAccounts inserts accounts whose code is not yet present and
	// returns how many were created.
	EnsureAccounts(ctx context.Context, accounts []*Account) (int, error)

	// ListAccounts returns the chart ordered by code.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// GetAccountsForUpdate locks the accounts with the given codes (in code order)
	// and returns those that exist, keyed by code.
	GetAccountsForUpdate(ctx context.Context, codes []string) (map[string]*Account, error)

	UpdateBalances(ctx context.Context, accounts []*Account) error

	// CreateEntry inserts the header and its items.
	CreateEntry(ctx context.Context, e *JournalEntry) error

	// GetEntry returns an entry with its items.
	GetEntry(ctx context.Context, entryID id.ID) (*JournalEntry, error)

	// ListEntries returns entries (newest first) with their items.
	ListEntries(ctx context.Context, filter EntryFilter) (domain.ListResult[*JournalEntry], error)

	// DeleteEntry removes an entry and its items.
	DeleteEntry(ctx context.Context, entryID id.ID) error

	// ItemTotalsByAccount sums journal items per account, optionally limited to
	// entries dated within [from, to].
	ItemTotalsByAccount(ctx context.Context, from, to *time.Time) (map[string]ItemTotals, error)

	// UnbalancedEntries returns entries whose |Σdebit − Σcredit| exceeds tolerance.
	UnbalancedEntries(ctx context.Context, tolerance types.Money) ([]EntryTotals, error)
}

// Auditor records administrative changes to the journal.
type Auditor interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}
