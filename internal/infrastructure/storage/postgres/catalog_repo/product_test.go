package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalog"
)

const productCols = "id, version, created_at, updated_at, code, name, category, price, cost, total_quantity, min_stock_threshold"

func TestForUpdateQuery(t *testing.T) {
	repo := NewProductRepo(nil)
	a := id.MustParse("0190a3c4-0000-7000-8000-000000000001")
	b := id.MustParse("0190a3c4-0000-7000-8000-000000000002")

	sql, args, err := repo.forUpdateQuery([]id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT "+productCols+" FROM products WHERE id IN ($1,$2) ORDER BY id FOR UPDATE", sql)
	assert.Equal(t, []any{a, b}, args)
}

func TestListQuery(t *testing.T) {
	repo := NewProductRepo(nil)

	tests := []struct {
		name     string
		filter   catalog.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "All",
			filter:  catalog.ListFilter{},
			wantSQL: "SELECT " + productCols + " FROM products",
		},
		{
			name:    "LowStock",
			filter:  catalog.ListFilter{LowStockOnly: true},
			wantSQL: "SELECT " + productCols + " FROM products WHERE total_quantity <= min_stock_threshold",
		},
		{
			name:     "Search",
			filter:   catalog.ListFilter{ListFilter: domain.ListFilter{Search: " milk "}},
			wantSQL:  "SELECT " + productCols + " FROM products WHERE (code ILIKE $1 OR name ILIKE $2)",
			wantArgs: []any{"%milk%", "%milk%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}
