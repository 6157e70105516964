// Package accounting implements the chart of accounts and the double-entry journal engine.
package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Tolerance is the maximum |Σdebit − Σcredit| accepted for a posted entry.
var Tolerance = decimal.New(1, -2)

// AccountClass determines an account's normal balance side.
type AccountClass string

const (
	ClassAsset     AccountClass = "Asset"
	ClassLiability AccountClass = "Liability"
	ClassEquity    AccountClass = "Equity"
	ClassRevenue   AccountClass = "Revenue"
	ClassExpense   AccountClass = "Expense"
)

// Valid reports whether c is a known class.
func (c AccountClass) Valid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassEquity, ClassRevenue, ClassExpense:
		return true
	}
	return false
}

// IsDebitNormal is true for Asset and Expense accounts.
func (c AccountClass) IsDebitNormal() bool {
	return c == ClassAsset || c == ClassExpense
}

// Effect returns the signed change a debit/credit pair makes to a balance of this class.
func (c AccountClass) Effect(debit, credit types.Money) types.Money {
	if c.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Account is one row of the chart of accounts with its running balance.
type Account struct {
	ID        id.ID        `db:"id" json:"id"`
	Code      string       `db:"code" json:"code"`
	Name      string       `db:"name" json:"name"`
	Class     AccountClass `db:"class" json:"class"`
	Category  string       `db:"category" json:"category"`
	Balance   types.Money  `db:"balance" json:"balance"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
}

// Apply adds the effect of a debit/credit pair to the running balance.
func (a *Account) Apply(debit, credit types.Money) {
	a.Balance = a.Balance.Add(a.Class.Effect(debit, credit))
}

// JournalEntry is a balanced set of journal items.
type JournalEntry struct {
	ID          id.ID         `db:"id" json:"id"`
	Date        time.Time     `db:"entry_date" json:"date"`
	Reference   string        `db:"reference" json:"reference"`
	Description string        `db:"description" json:"description"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	Items       []JournalItem `db:"-" json:"items"`
}

// Totals sums debits and credits of the entry.
func (e *JournalEntry) Totals() (debit, credit types.Money) {
	debit, credit = types.Zero(), types.Zero()
	for _, it := range e.Items {
		debit = debit.Add(it.Debit)
		credit = credit.Add(it.Credit)
	}
	return debit, credit
}

// JournalItem is one line of a journal entry. Immutable once posted.
type JournalItem struct {
	ID          id.ID       `db:"id" json:"id"`
	EntryID     id.ID       `db:"entry_id" json:"entryId"`
	AccountID   id.ID       `db:"account_id" json:"accountId"`
	AccountCode string      `db:"account_code" json:"accountCode"`
	AccountName string      `db:"account_name" json:"accountName"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
}

// Line is a requested journal line, addressed by account code.
type Line struct {
	AccountCode string      `json:"accountCode"`
	Debit       types.Money `json:"debit"`
	Credit      types.Money `json:"credit"`
}

// Debit builds a debit line.
func Debit(code string, amount types.Money) Line {
	return Line{AccountCode: code, Debit: amount, Credit: types.Zero()}
}

// Credit builds a credit line.
func Credit(code string, amount types.Money) Line {
	return Line{AccountCode: code, Debit: types.Zero(), Credit: amount}
}

// PostRequest is the input of Engine.Post.
type PostRequest struct {
	// Date defaults to now when zero
	Date        time.Time
	Reference   string
	Description string
	Lines       []Line
}
