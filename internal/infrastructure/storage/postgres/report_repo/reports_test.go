package report_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/reports"
)

func TestOnHandQuery(t *testing.T) {
	repo := NewReportRepo(nil)

	sql, args, err := repo.onHandQuery(reports.OnHandFilter{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT b.id AS batch_id, b.product_id, p.code AS product_code, p.name AS product_name, p.category, "+
			"b.batch_number, b.current_quantity, b.unit_cost, b.expiry_date, b.created_at "+
			"FROM batches b JOIN products p ON p.id = b.product_id WHERE b.current_quantity > $1 ORDER BY b.created_at, b.id",
		sql)
	assert.Equal(t, []any{0}, args)

	productID := id.MustParse("0190a3c4-0000-7000-8000-000000000001")
	sql, args, err = repo.onHandQuery(reports.OnHandFilter{ProductIDs: []id.ID{productID}}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "AND b.product_id IN ($2)")
	assert.Equal(t, []any{0, productID}, args)
}
