// Package accounting_repo provides the PostgreSQL implementation of accounting.Repository.
package accounting_repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	accountsTable = "accounts"
	entriesTable  = "journal_entries"
	itemsTable    = "journal_items"
)

var (
	accountColumns = []string{"id", "code", "name", "class", "category", "balance", "updated_at"}
	entryColumns   = []string{"id", "entry_date", "reference", "description", "created_at"}
	itemColumns    = []string{"id", "entry_id", "account_id", "debit", "credit", "line_no"}
)

var _ accounting.Repository = (*AccountingRepo)(nil)

// AccountingRepo implements accounting.Repository.
type AccountingRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewAccountingRepo creates a new accounting repository.
func NewAccountingRepo(txManager *postgres.TxManager) *AccountingRepo {
	return &AccountingRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
	}
}

// --- Chart of accounts ---

// EnsureAccounts inserts missing accounts, leaving existing codes untouched.
func (r *AccountingRepo) EnsureAccounts(ctx context.Context, accounts []*accounting.Account) (int, error) {
	if len(accounts) == 0 {
		return 0, nil
	}

	q := r.builder.Insert(accountsTable).Columns(accountColumns...)
	for _, a := range accounts {
		q = q.Values(a.ID, a.Code, a.Name, a.Class, a.Category, a.Balance, a.UpdatedAt)
	}
	sql, args, err := q.Suffix("ON CONFLICT (code) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("ensure accounts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListAccounts returns the chart ordered by code.
func (r *AccountingRepo) ListAccounts(ctx context.Context) ([]*accounting.Account, error) {
	sql, args, err := r.builder.Select(accountColumns...).From(accountsTable).OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*accounting.Account
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r *AccountingRepo) accountsForUpdateQuery(codes []string) squirrel.SelectBuilder {
	return r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"code": codes}).
		OrderBy("code").
		Suffix("FOR UPDATE")
}

// GetAccountsForUpdate locks the requested accounts in code order.
func (r *AccountingRepo) GetAccountsForUpdate(ctx context.Context, codes []string) (map[string]*accounting.Account, error) {
	out := make(map[string]*accounting.Account, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)

	sql, args, err := r.accountsForUpdateQuery(sorted).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*accounting.Account
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	for _, a := range rows {
		out[a.Code] = a
	}
	return out, nil
}

// UpdateBalances writes running balances in one round-trip.
func (r *AccountingRepo) UpdateBalances(ctx context.Context, accounts []*accounting.Account) error {
	queries := make([]postgres.BatchQuery, 0, len(accounts))
	for _, a := range accounts {
		sql, args, err := r.builder.
			Update(accountsTable).
			Set("balance", a.Balance).
			Set("updated_at", a.UpdatedAt).
			Where(squirrel.Eq{"code": a.Code}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args, ExpectRows: 1})
	}

	if err := postgres.ExecuteBatch(ctx, r.txManager.GetQuerier(ctx), queries); err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	return nil
}

// --- Journal ---

// CreateEntry inserts the header and its items.
func (r *AccountingRepo) CreateEntry(ctx context.Context, e *accounting.JournalEntry) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("create journal entry requires transaction context")
	}
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder.
		Insert(entriesTable).
		Columns(entryColumns...).
		Values(e.ID, e.Date, e.Reference, e.Description, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	rows := make([][]any, 0, len(e.Items))
	for i, it := range e.Items {
		rows = append(rows, []any{it.ID, e.ID, it.AccountID, it.Debit, it.Credit, i})
	}
	if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, itemsTable, itemColumns, rows); err != nil {
		return fmt.Errorf("insert journal items: %w", err)
	}
	return nil
}

// GetEntry returns an entry with its items.
func (r *AccountingRepo) GetEntry(ctx context.Context, entryID id.ID) (*accounting.JournalEntry, error) {
	sql, args, err := r.builder.
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"id": entryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e accounting.JournalEntry
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("journal entry", entryID.String())
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}

	entries := []*accounting.JournalEntry{&e}
	if err := r.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *AccountingRepo) itemsQuery(entryIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select("i.id", "i.entry_id", "i.account_id", "a.code AS account_code", "a.name AS account_name", "i.debit", "i.credit").
		From(itemsTable + " i").
		Join(accountsTable + " a ON a.id = i.account_id").
		Where(squirrel.Eq{"i.entry_id": entryIDs}).
		OrderBy("i.entry_id", "i.line_no")
}

func (r *AccountingRepo) attachItems(ctx context.Context, entries []*accounting.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]id.ID, len(entries))
	byID := make(map[id.ID]*accounting.JournalEntry, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		byID[e.ID] = e
		e.Items = []accounting.JournalItem{}
	}

	sql, args, err := r.itemsQuery(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var items []accounting.JournalItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return fmt.Errorf("load journal items: %w", err)
	}
	for _, it := range items {
		if e, ok := byID[it.EntryID]; ok {
			e.Items = append(e.Items, it)
		}
	}
	return nil
}

func (r *AccountingRepo) entriesQuery(filter accounting.EntryFilter) squirrel.SelectBuilder {
	q := r.builder.Select(entryColumns...).From(entriesTable)
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"entry_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"entry_date": *filter.To})
	}
	if filter.Reference != "" {
		q = q.Where(squirrel.Eq{"reference": filter.Reference})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"description": "%" + filter.Search + "%"})
	}
	return q
}

// ListEntries returns entries newest first with their items.
func (r *AccountingRepo) ListEntries(ctx context.Context, filter accounting.EntryFilter) (domain.ListResult[*accounting.JournalEntry], error) {
	result := domain.ListResult[*accounting.JournalEntry]{
		Items:  []*accounting.JournalEntry{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	querier := r.txManager.GetQuerier(ctx)
	q := r.entriesQuery(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count journal entries: %w", err)
	}

	q = q.OrderBy("entry_date DESC", "created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list journal entries: %w", err)
	}
	if err := r.attachItems(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// DeleteEntry removes an entry; items cascade and movements lose the link.
func (r *AccountingRepo) DeleteEntry(ctx context.Context, entryID id.ID) error {
	sql, args, err := r.builder.Delete(entriesTable).Where(squirrel.Eq{"id": entryID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("journal entry", entryID.String())
	}
	return nil
}

// --- Verification ---

func (r *AccountingRepo) itemTotalsQuery(from, to *time.Time) squirrel.SelectBuilder {
	q := r.builder.
		Select("a.code AS account_code", "COALESCE(SUM(i.debit), 0) AS debit", "COALESCE(SUM(i.credit), 0) AS credit").
		From(itemsTable + " i").
		Join(accountsTable + " a ON a.id = i.account_id").
		Join(entriesTable + " e ON e.id = i.entry_id")
	if from != nil {
		q = q.Where(squirrel.GtOrEq{"e.entry_date": *from})
	}
	if to != nil {
		q = q.Where(squirrel.LtOrEq{"e.entry_date": *to})
	}
	return q.GroupBy("a.code")
}

// ItemTotalsByAccount sums journal items per account code.
func (r *AccountingRepo) ItemTotalsByAccount(ctx context.Context, from, to *time.Time) (map[string]accounting.ItemTotals, error) {
	sql, args, err := r.itemTotalsQuery(from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []accounting.ItemTotals
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("item totals: %w", err)
	}

	out := make(map[string]accounting.ItemTotals, len(rows))
	for _, t := range rows {
		out[t.AccountCode] = t
	}
	return out, nil
}

// UnbalancedEntries returns entries whose debit and credit sums differ by more than tolerance.
func (r *AccountingRepo) UnbalancedEntries(ctx context.Context, tolerance types.Money) ([]accounting.EntryTotals, error) {
	sql, args, err := r.builder.
		Select("e.id AS entry_id", "e.reference", "COALESCE(SUM(i.debit), 0) AS debit", "COALESCE(SUM(i.credit), 0) AS credit").
		From(entriesTable + " e").
		LeftJoin(itemsTable + " i ON i.entry_id = e.id").
		GroupBy("e.id", "e.reference", "e.created_at").
		Having("ABS(COALESCE(SUM(i.debit), 0) - COALESCE(SUM(i.credit), 0)) > ?", tolerance).
		OrderBy("e.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []accounting.EntryTotals
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("unbalanced entries: %w", err)
	}
	return out, nil
}
