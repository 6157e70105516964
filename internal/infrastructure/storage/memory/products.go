package memory

import (
	"context"
	"sort"
	"strings"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalog"
)

var _ catalog.Repository = (*ProductRepo)(nil)

// ProductRepo implements catalog.Repository.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.products {
			if existing.Code == p.Code {
				return apperror.NewDuplicate("product", "code", p.Code)
			}
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Code == code {
				cp := *p
				out = &cp
				return nil
			}
		}
		return apperror.NewNotFound("product", code)
	})
	return out, err
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, ids []id.ID) (map[id.ID]*catalog.Product, error) {
	out := make(map[id.ID]*catalog.Product, len(ids))
	err := r.s.do(ctx, func(st *state) error {
		for _, pid := range ids {
			p, ok := st.products[pid]
			if !ok {
				return apperror.NewNotFound("product", pid)
			}
			cp := *p
			out[pid] = &cp
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) Update(ctx context.Context, p *catalog.Product) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.products[p.ID]
		if !ok {
			return apperror.NewNotFound("product", p.ID)
		}
		if stored.Version != p.Version {
			return apperror.NewConcurrentModification("product", p.ID)
		}
		p.Touch()
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, filter catalog.ListFilter) (domain.ListResult[*catalog.Product], error) {
	res := domain.ListResult[*catalog.Product]{Limit: filter.Limit, Offset: filter.Offset}
	err := r.s.do(ctx, func(st *state) error {
		search := strings.ToLower(filter.Search)
		var all []*catalog.Product
		for _, p := range st.products {
			if filter.LowStockOnly && !p.IsLowStock() {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(p.Code), search) &&
				!strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			cp := *p
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

		res.TotalCount = int64(len(all))
		res.Items = page(all, filter.Offset, filter.Limit)
		return nil
	})
	return res, err
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
