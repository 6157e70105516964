package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
)

var _ accounting.Repository = (*AccountingRepo)(nil)

// AccountingRepo implements accounting.Repository.
type AccountingRepo struct{ s *Store }

func cloneEntry(e *accounting.JournalEntry) *accounting.JournalEntry {
	cp := *e
	cp.Items = append([]accounting.JournalItem(nil), e.Items...)
	return &cp
}

func (r *AccountingRepo) EnsureAccounts(ctx context.Context, accounts []*accounting.Account) (int, error) {
	created := 0
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range accounts {
			if _, ok := st.accounts[a.Code]; ok {
				continue
			}
			cp := *a
			st.accounts[a.Code] = &cp
			created++
		}
		return nil
	})
	return created, err
}

func (r *AccountingRepo) ListAccounts(ctx context.Context) ([]*accounting.Account, error) {
	var out []*accounting.Account
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.accounts {
			cp := *a
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r *AccountingRepo) GetAccountsForUpdate(ctx context.Context, codes []string) (map[string]*accounting.Account, error) {
	out := make(map[string]*accounting.Account, len(codes))
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range codes {
			if a, ok := st.accounts[c]; ok {
				cp := *a
				out[c] = &cp
			}
		}
		return nil
	})
	return out, err
}

func (r *AccountingRepo) UpdateBalances(ctx context.Context, accounts []*accounting.Account) error {
	return r.s.do(ctx, func(st *state) error {
		for _, a := range accounts {
			stored, ok := st.accounts[a.Code]
			if !ok {
				return apperror.NewUnknownAccount(a.Code)
			}
			stored.Balance = a.Balance
			stored.UpdatedAt = a.UpdatedAt
		}
		return nil
	})
}

func (r *AccountingRepo) CreateEntry(ctx context.Context, e *accounting.JournalEntry) error {
	return r.s.do(ctx, func(st *state) error {
		st.entries[e.ID] = cloneEntry(e)
		st.entryOrder = append(st.entryOrder, e.ID)
		return nil
	})
}

func (r *AccountingRepo) GetEntry(ctx context.Context, entryID id.ID) (*accounting.JournalEntry, error) {
	var out *accounting.JournalEntry
	err := r.s.do(ctx, func(st *state) error {
		e, ok := st.entries[entryID]
		if !ok {
			return apperror.NewNotFound("journal entry", entryID)
		}
		out = cloneEntry(e)
		return nil
	})
	return out, err
}

func (r *AccountingRepo) ListEntries(ctx context.Context, filter accounting.EntryFilter) (domain.ListResult[*accounting.JournalEntry], error) {
	res := domain.ListResult[*accounting.JournalEntry]{Limit: filter.Limit, Offset: filter.Offset}
	err := r.s.do(ctx, func(st *state) error {
		var all []*accounting.JournalEntry
		for i := len(st.entryOrder) - 1; i >= 0; i-- {
			e, ok := st.entries[st.entryOrder[i]]
			if !ok || !inPeriod(e.Date, filter.From, filter.To) {
				continue
			}
			if filter.Reference != "" && e.Reference != filter.Reference {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(filter.Search)) {
				continue
			}
			all = append(all, cloneEntry(e))
		}
		res.TotalCount = int64(len(all))
		res.Items = page(all, filter.Offset, filter.Limit)
		return nil
	})
	return res, err
}

func (r *AccountingRepo) DeleteEntry(ctx context.Context, entryID id.ID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.entries[entryID]; !ok {
			return apperror.NewNotFound("journal entry", entryID)
		}
		delete(st.entries, entryID)
		for i, eid := range st.entryOrder {
			if eid == entryID {
				st.entryOrder = append(st.entryOrder[:i], st.entryOrder[i+1:]...)
				break
			}
		}
		for _, m := range st.movements {
			if m.JournalEntryID != nil && *m.JournalEntryID == entryID {
				m.JournalEntryID = nil
			}
		}
		return nil
	})
}

func (r *AccountingRepo) ItemTotalsByAccount(ctx context.Context, from, to *time.Time) (map[string]accounting.ItemTotals, error) {
	out := make(map[string]accounting.ItemTotals)
	err := r.s.do(ctx, func(st *state) error {
		for _, e := range st.entries {
			if !inPeriod(e.Date, from, to) {
				continue
			}
			for _, it := range e.Items {
				t, ok := out[it.AccountCode]
				if !ok {
					t = accounting.ItemTotals{AccountCode: it.AccountCode, Debit: types.Zero(), Credit: types.Zero()}
				}
				t.Debit = t.Debit.Add(it.Debit)
				t.Credit = t.Credit.Add(it.Credit)
				out[it.AccountCode] = t
			}
		}
		return nil
	})
	return out, err
}

func (r *AccountingRepo) UnbalancedEntries(ctx context.Context, tolerance types.Money) ([]accounting.EntryTotals, error) {
	var out []accounting.EntryTotals
	err := r.s.do(ctx, func(st *state) error {
		for _, eid := range st.entryOrder {
			e := st.entries[eid]
			debit, credit := e.Totals()
			if debit.Sub(credit).Abs().GreaterThan(tolerance) {
				out = append(out, accounting.EntryTotals{
					EntryID:   e.ID,
					Reference: e.Reference,
					Debit:     debit,
					Credit:    credit,
				})
			}
		}
		return nil
	})
	return out, err
}

func inPeriod(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
