// Package catalog_repo provides the PostgreSQL implementation of catalog.Repository.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var _ catalog.Repository = (*ProductRepo)(nil)

// ProductRepo implements catalog.Repository.
type ProductRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: postgres.ExtractDBColumns[catalog.Product](),
	}
}

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).From(productsTable)
}

// Create inserts a new product using its "db" tags.
func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.builder.
		Insert(productsTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(p), r.selectCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "products_code_key") {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"id": productID}, productID.String())
}

// GetByCode retrieves a product by its SKU.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *ProductRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*catalog.Product, error) {
	sql, args, err := r.baseSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// forUpdateQuery locks rows in ascending id order so multi-line requests
// touching the same products never deadlock.
func (r *ProductRepo) forUpdateQuery(ids []id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

// GetForUpdate retrieves and locks products. Must run inside a transaction.
func (r *ProductRepo) GetForUpdate(ctx context.Context, ids []id.ID) (map[id.ID]*catalog.Product, error) {
	if len(ids) == 0 {
		return map[id.ID]*catalog.Product{}, nil
	}
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("product lock requires transaction context")
	}

	sorted := append([]id.ID(nil), ids...)
	id.Sort(sorted)

	sql, args, err := r.forUpdateQuery(sorted).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*catalog.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	out := make(map[id.ID]*catalog.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	for _, pid := range ids {
		if _, ok := out[pid]; !ok {
			return nil, apperror.NewNotFound("product", pid.String())
		}
	}
	return out, nil
}

// Update modifies a product with optimistic locking.
func (r *ProductRepo) Update(ctx context.Context, p *catalog.Product) error {
	data := postgres.PickColumns(postgres.StructToMap(p), r.selectCols, "id", "version", "created_at", "updated_at")

	sql, args, err := r.builder.
		Update(productsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, "products_code_key") {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		if postgres.IsCheckViolation(err) {
			return apperror.NewValidation("product quantity constraint violated").WithCause(err)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID)
	}

	p.Touch()
	return nil
}

func (r *ProductRepo) listQuery(filter catalog.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.LowStockOnly {
		q = q.Where("total_quantity <= min_stock_threshold")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	return q
}

// List retrieves products ordered by code with pagination.
func (r *ProductRepo) List(ctx context.Context, filter catalog.ListFilter) (domain.ListResult[*catalog.Product], error) {
	result := domain.ListResult[*catalog.Product]{
		Items:  []*catalog.Product{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	querier := r.txManager.GetQuerier(ctx)
	q := r.listQuery(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}

	q = q.OrderBy("code")
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
		return result, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}
