package accounting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockbook/internal/core/types"
)

// AccountBalance is one account line of a statement.
type AccountBalance struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Class    AccountClass `json:"class"`
	Category string       `json:"category"`
	Balance  types.Money  `json:"balance"`
}

// TrialBalanceRow shows an account balance on its debit or credit side.
type TrialBalanceRow struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Class  AccountClass `json:"class"`
	Debit  types.Money  `json:"debit"`
	Credit types.Money  `json:"credit"`
}

// TrialBalance lists every account; total debits equal total credits when the ledger is sound.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  types.Money       `json:"totalDebit"`
	TotalCredit types.Money       `json:"totalCredit"`
	Balanced    bool              `json:"balanced"`
}

// BalanceSheet reports assets against liabilities and equity. CurrentEarnings is
// revenue minus expenses not yet closed into equity.
type BalanceSheet struct {
	Assets           []AccountBalance `json:"assets"`
	Liabilities      []AccountBalance `json:"liabilities"`
	Equity           []AccountBalance `json:"equity"`
	CurrentEarnings  types.Money      `json:"currentEarnings"`
	TotalAssets      types.Money      `json:"totalAssets"`
	TotalLiabilities types.Money      `json:"totalLiabilities"`
	TotalEquity      types.Money      `json:"totalEquity"`
	Balanced         bool             `json:"balanced"`
}

// ProfitAndLoss reports revenue and expense activity for a period.
type ProfitAndLoss struct {
	From         *time.Time       `json:"from,omitempty"`
	To           *time.Time       `json:"to,omitempty"`
	Revenues     []AccountBalance `json:"revenues"`
	Expenses     []AccountBalance `json:"expenses"`
	TotalRevenue types.Money      `json:"totalRevenue"`
	TotalExpense types.Money      `json:"totalExpense"`
	NetIncome    types.Money      `json:"netIncome"`
}

// TrialBalance builds the trial balance from running balances.
func (e *Engine) TrialBalance(ctx context.Context) (*TrialBalance, error) {
	accounts, err := e.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	tb := &TrialBalance{TotalDebit: types.Zero(), TotalCredit: types.Zero()}
	for _, a := range accounts {
		row := TrialBalanceRow{Code: a.Code, Name: a.Name, Class: a.Class, Debit: types.Zero(), Credit: types.Zero()}
		// A negative balance shows on the opposite side.
		onDebitSide := a.Class.IsDebitNormal() != a.Balance.IsNegative()
		if onDebitSide {
			row.Debit = a.Balance.Abs()
		} else {
			row.Credit = a.Balance.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}
	tb.Balanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThanOrEqual(Tolerance)
	return tb, nil
}

// BalanceSheet builds the balance sheet from running balances.
func (e *Engine) BalanceSheet(ctx context.Context) (*BalanceSheet, error) {
	accounts, err := e.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	bs := &BalanceSheet{
		CurrentEarnings:  types.Zero(),
		TotalAssets:      types.Zero(),
		TotalLiabilities: types.Zero(),
		TotalEquity:      types.Zero(),
	}
	for _, a := range accounts {
		line := toBalance(a, a.Balance)
		switch a.Class {
		case ClassAsset:
			bs.Assets = append(bs.Assets, line)
			bs.TotalAssets = bs.TotalAssets.Add(a.Balance)
		case ClassLiability:
			bs.Liabilities = append(bs.Liabilities, line)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(a.Balance)
		case ClassEquity:
			bs.Equity = append(bs.Equity, line)
			bs.TotalEquity = bs.TotalEquity.Add(a.Balance)
		case ClassRevenue:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(a.Balance)
		case ClassExpense:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(a.Balance)
		}
	}
	bs.TotalEquity = bs.TotalEquity.Add(bs.CurrentEarnings)
	bs.Balanced = bs.TotalAssets.Sub(bs.TotalLiabilities.Add(bs.TotalEquity)).Abs().LessThanOrEqual(Tolerance)
	return bs, nil
}

// ProfitAndLoss sums revenue and expense activity from journal items dated
// within [from, to]. Nil bounds are open.
func (e *Engine) ProfitAndLoss(ctx context.Context, from, to *time.Time) (*ProfitAndLoss, error) {
	accounts, err := e.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	totals, err := e.repo.ItemTotalsByAccount(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum journal items: %w", err)
	}

	pl := &ProfitAndLoss{
		From:         from,
		To:           to,
		TotalRevenue: types.Zero(),
		TotalExpense: types.Zero(),
	}
	for _, a := range accounts {
		t, ok := totals[a.Code]
		if !ok {
			continue
		}
		activity := a.Class.Effect(t.Debit, t.Credit)
		switch a.Class {
		case ClassRevenue:
			pl.Revenues = append(pl.Revenues, toBalance(a, activity))
			pl.TotalRevenue = pl.TotalRevenue.Add(activity)
		case ClassExpense:
			pl.Expenses = append(pl.Expenses, toBalance(a, activity))
			pl.TotalExpense = pl.TotalExpense.Add(activity)
		}
	}
	pl.NetIncome = pl.TotalRevenue.Sub(pl.TotalExpense)
	return pl, nil
}

// BalanceMismatch is an account whose stored balance differs from its journal items.
type BalanceMismatch struct {
	Code     string      `json:"code"`
	Stored   types.Money `json:"stored"`
	Computed types.Money `json:"computed"`
}

// VerificationReport is the result of Engine.Verify.
type VerificationReport struct {
	CheckedAccounts   int               `json:"checkedAccounts"`
	UnbalancedEntries []EntryTotals     `json:"unbalancedEntries"`
	BalanceMismatches []BalanceMismatch `json:"balanceMismatches"`
	OK                bool              `json:"ok"`
}

// Verify checks that every entry balances and that every account balance equals
// the signed sum of its journal items.
func (e *Engine) Verify(ctx context.Context) (*VerificationReport, error) {
	accounts, err := e.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	totals, err := e.repo.ItemTotalsByAccount(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("sum journal items: %w", err)
	}
	unbalanced, err := e.repo.UnbalancedEntries(ctx, Tolerance)
	if err != nil {
		return nil, fmt.Errorf("find unbalanced entries: %w", err)
	}

	report := &VerificationReport{
		CheckedAccounts:   len(accounts),
		UnbalancedEntries: unbalanced,
	}
	for _, a := range accounts {
		computed := types.Zero()
		if t, ok := totals[a.Code]; ok {
			computed = a.Class.Effect(t.Debit, t.Credit)
		}
		if !computed.Equal(a.Balance) {
			report.BalanceMismatches = append(report.BalanceMismatches, BalanceMismatch{
				Code:     a.Code,
				Stored:   a.Balance,
				Computed: computed,
			})
		}
	}
	sort.Slice(report.BalanceMismatches, func(i, j int) bool {
		return report.BalanceMismatches[i].Code < report.BalanceMismatches[j].Code
	})
	report.OK = len(report.UnbalancedEntries) == 0 && len(report.BalanceMismatches) == 0
	return report, nil
}

func toBalance(a *Account, amount types.Money) AccountBalance {
	return AccountBalance{
		Code:     a.Code,
		Name:     a.Name,
		Class:    a.Class,
		Category: a.Category,
		Balance:  amount,
	}
}
