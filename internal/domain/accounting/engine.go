package accounting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// Engine posts balanced journal entries and maintains account balances.
type Engine struct {
	repo      Repository
	txManager tx.Manager
	auditor   Auditor
	events    domain.EventPublisher
	numbers   NumberGenerator
	now       func() time.Time
}

// NumberGenerator issues references for manual entries posted without one.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// PrefixJournal prefixes generated manual-entry references (JV-2026-00001).
const PrefixJournal = "JV"

// NewEngine creates a journal engine.
func NewEngine(repo Repository, txManager tx.Manager) *Engine {
	return &Engine{
		repo:      repo,
		txManager: txManager,
		events:    domain.NopPublisher{},
		now:       time.Now,
	}
}

// WithAuditor enables audit records for administrative journal changes.
func (e *Engine) WithAuditor(a Auditor) *Engine {
	e.auditor = a
	return e
}

// WithEvents publishes journal.deleted through p.
func (e *Engine) WithEvents(p domain.EventPublisher) *Engine {
	if p != nil {
		e.events = p
	}
	return e
}

// WithNumbers enables reference generation for manual entries.
func (e *Engine) WithNumbers(n NumberGenerator) *Engine {
	e.numbers = n
	return e
}

// WithClock overrides the clock used for entry dates.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SeedChart inserts the default chart of accounts where missing.
func (e *Engine) SeedChart(ctx context.Context) (int, error) {
	var created int
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := e.now().UTC()
		chart := DefaultChart()
		for _, a := range chart {
			a.ID = id.New()
			a.Balance = types.Zero()
			a.UpdatedAt = now
		}
		var err error
		created, err = e.repo.EnsureAccounts(ctx, chart)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("seed chart of accounts: %w", err)
	}
	if created > 0 {
		logger.Info(ctx, "chart of accounts seeded", "created", created)
	}
	return created, nil
}

// Post validates and persists a journal entry, then applies its balance effects.
// Every referenced account is resolved and locked before anything is written, so
// an unknown account code fails the whole entry.
func (e *Engine) Post(ctx context.Context, req PostRequest) (*JournalEntry, error) {
	lines, err := normalizeLines(req.Lines)
	if err != nil {
		return nil, err
	}

	debit, credit := lineTotals(lines)
	if debit.Sub(credit).Abs().GreaterThan(Tolerance) {
		return nil, apperror.NewUnbalancedEntry(debit.String(), credit.String()).
			WithDetail("reference", req.Reference)
	}

	date := req.Date
	if date.IsZero() {
		date = e.now()
	}
	entry := &JournalEntry{
		ID:          id.New(),
		Date:        date.UTC(),
		Reference:   req.Reference,
		Description: req.Description,
		CreatedAt:   e.now().UTC(),
	}

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if entry.Reference == "" && e.numbers != nil {
			ref, err := e.numbers.Next(ctx, PrefixJournal)
			if err != nil {
				return fmt.Errorf("generate reference: %w", err)
			}
			entry.Reference = ref
		}

		accounts, err := e.repo.GetAccountsForUpdate(ctx, distinctCodes(lines))
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		for _, l := range lines {
			if _, ok := accounts[l.AccountCode]; !ok {
				return apperror.NewUnknownAccount(l.AccountCode).WithDetail("reference", req.Reference)
			}
		}

		entry.Items = make([]JournalItem, 0, len(lines))
		for _, l := range lines {
			acc := accounts[l.AccountCode]
			entry.Items = append(entry.Items, JournalItem{
				ID:          id.New(),
				EntryID:     entry.ID,
				AccountID:   acc.ID,
				AccountCode: acc.Code,
				AccountName: acc.Name,
				Debit:       l.Debit,
				Credit:      l.Credit,
			})
			acc.Apply(l.Debit, l.Credit)
			acc.UpdatedAt = entry.CreatedAt
		}

		if err := e.repo.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create journal entry: %w", err)
		}
		if err := e.repo.UpdateBalances(ctx, sortedAccounts(accounts)); err != nil {
			return fmt.Errorf("update balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "journal entry posted",
		"entry_id", entry.ID,
		"reference", entry.Reference,
		"amount", debit.String(),
		"lines", len(entry.Items))
	return entry, nil
}

// RecordSale posts Dr Cash / Cr Revenue for the sale total and, when cogs > 0,
// Dr COGS / Cr Inventory for the FIFO cost, as one entry. A sale with neither
// revenue nor cost posts nothing and returns a nil entry.
func (e *Engine) RecordSale(ctx context.Context, reference string, total, cogs types.Money) (*JournalEntry, error) {
	if total.IsNegative() || cogs.IsNegative() {
		return nil, apperror.NewValidation("sale amounts cannot be negative").
			WithDetail("total", total.String()).
			WithDetail("cogs", cogs.String())
	}
	if total.IsZero() && cogs.IsZero() {
		return nil, nil
	}
	lines := []Line{
		Debit(CodeCash, total),
		Credit(CodeSalesRevenue, total),
	}
	if cogs.IsPositive() {
		lines = append(lines,
			Debit(CodeCOGS, cogs),
			Credit(CodeInventory, cogs),
		)
	}
	return e.Post(ctx, PostRequest{
		Reference:   reference,
		Description: fmt.Sprintf("Sale %s", reference),
		Lines:       lines,
	})
}

// RecordPurchase posts Dr Inventory / Cr Cash for received goods.
// A zero amount posts nothing and returns a nil entry.
func (e *Engine) RecordPurchase(ctx context.Context, reference string, amount types.Money, supplier string) (*JournalEntry, error) {
	if amount.IsNegative() {
		return nil, apperror.NewValidation("purchase amount cannot be negative").
			WithDetail("amount", amount.String())
	}
	if amount.IsZero() {
		return nil, nil
	}
	desc := fmt.Sprintf("Purchase %s", reference)
	if supplier != "" {
		desc = fmt.Sprintf("Purchase %s from %s", reference, supplier)
	}
	return e.Post(ctx, PostRequest{
		Reference:   reference,
		Description: desc,
		Lines: []Line{
			Debit(CodeInventory, amount),
			Credit(CodeCash, amount),
		},
	})
}

// RecordAdjustment posts a stock-count difference. A loss moves value from
// Inventory to COGS; a gain moves it back. A zero amount posts nothing and
// returns a nil entry.
func (e *Engine) RecordAdjustment(ctx context.Context, reference string, amount types.Money, isLoss bool) (*JournalEntry, error) {
	if amount.IsNegative() {
		return nil, apperror.NewValidation("adjustment amount cannot be negative").
			WithDetail("amount", amount.String())
	}
	if amount.IsZero() {
		return nil, nil
	}
	req := PostRequest{Reference: reference}
	if isLoss {
		req.Description = fmt.Sprintf("Stock count loss %s", reference)
		req.Lines = []Line{Debit(CodeCOGS, amount), Credit(CodeInventory, amount)}
	} else {
		req.Description = fmt.Sprintf("Stock count gain %s", reference)
		req.Lines = []Line{Debit(CodeInventory, amount), Credit(CodeCOGS, amount)}
	}
	return e.Post(ctx, req)
}

// RecordSalesReturn reverses revenue for refunded goods: Dr Revenue / Cr Cash.
func (e *Engine) RecordSalesReturn(ctx context.Context, reference string, refund types.Money, orderReference string) (*JournalEntry, error) {
	if !refund.IsPositive() {
		return nil, apperror.NewValidation("refund amount must be positive").
			WithDetail("refund", refund.String())
	}
	desc := fmt.Sprintf("Sales return %s", reference)
	if orderReference != "" {
		desc = fmt.Sprintf("Sales return %s for %s", reference, orderReference)
	}
	return e.Post(ctx, PostRequest{
		Reference:   reference,
		Description: desc,
		Lines: []Line{
			Debit(CodeSalesRevenue, refund),
			Credit(CodeCash, refund),
		},
	})
}

// Accounts returns the chart of accounts with balances.
func (e *Engine) Accounts(ctx context.Context) ([]*Account, error) {
	return e.repo.ListAccounts(ctx)
}

// Entry returns one journal entry.
func (e *Engine) Entry(ctx context.Context, entryID id.ID) (*JournalEntry, error) {
	return e.repo.GetEntry(ctx, entryID)
}

// Entries lists journal entries, newest first.
func (e *Engine) Entries(ctx context.Context, filter EntryFilter) (domain.ListResult[*JournalEntry], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return e.repo.ListEntries(ctx, filter)
}

// DeleteEntry removes a posted entry and reverses its balance effects.
// This is an administrative correction path; an audit record keeps the deleted content.
func (e *Engine) DeleteEntry(ctx context.Context, entryID id.ID, reason string) error {
	var deleted *JournalEntry
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := e.repo.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}

		codes := make([]string, 0, len(entry.Items))
		for _, it := range entry.Items {
			codes = append(codes, it.AccountCode)
		}
		accounts, err := e.repo.GetAccountsForUpdate(ctx, dedupe(codes))
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}

		now := e.now().UTC()
		for _, it := range entry.Items {
			acc, ok := accounts[it.AccountCode]
			if !ok {
				return apperror.NewUnknownAccount(it.AccountCode)
			}
			acc.Apply(it.Credit, it.Debit)
			acc.UpdatedAt = now
		}

		if err := e.repo.UpdateBalances(ctx, sortedAccounts(accounts)); err != nil {
			return fmt.Errorf("update balances: %w", err)
		}
		if err := e.repo.DeleteEntry(ctx, entryID); err != nil {
			return fmt.Errorf("delete journal entry: %w", err)
		}

		if e.auditor != nil {
			if err := e.auditor.LogChange(ctx, "journal_entry", entryID, "delete", map[string]any{
				"reason": reason,
				"entry":  entry,
			}); err != nil {
				return fmt.Errorf("audit journal deletion: %w", err)
			}
		}
		deleted = entry
		return e.events.Publish(ctx, domain.Event{
			AggregateType: "journal_entry",
			AggregateID:   entryID,
			EventType:     domain.EventJournalDeleted,
			Payload: map[string]any{
				"reference": entry.Reference,
				"reason":    reason,
			},
		})
	})
	if err != nil {
		return err
	}

	logger.Warn(ctx, "journal entry deleted",
		"entry_id", entryID,
		"reference", deleted.Reference,
		"reason", reason)
	return nil
}

func normalizeLines(in []Line) ([]Line, error) {
	out := make([]Line, 0, len(in))
	for i, l := range in {
		code := strings.TrimSpace(l.AccountCode)
		if code == "" {
			return nil, apperror.NewValidation("account code is required").WithDetail("line", i)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return nil, apperror.NewValidation("journal amounts cannot be negative").
				WithDetail("line", i).
				WithDetail("account_code", code)
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}
		out = append(out, Line{AccountCode: code, Debit: l.Debit, Credit: l.Credit})
	}
	if len(out) == 0 {
		return nil, apperror.NewValidation("journal entry has no amounts")
	}
	return out, nil
}

func lineTotals(lines []Line) (debit, credit types.Money) {
	debit, credit = types.Zero(), types.Zero()
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func distinctCodes(lines []Line) []string {
	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		codes = append(codes, l.AccountCode)
	}
	return dedupe(codes)
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func sortedAccounts(m map[string]*Account) []*Account {
	out := make([]*Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
