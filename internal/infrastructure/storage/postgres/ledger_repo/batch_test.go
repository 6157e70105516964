package ledger_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
)

func TestAvailableQuery_LocksInAllocationOrder(t *testing.T) {
	repo := NewBatchRepo(nil)
	productID := id.MustParse("0190a3c4-0000-7000-8000-000000000001")

	sql, args, err := repo.availableQuery(productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, product_id, batch_number, initial_quantity, current_quantity, unit_cost, expiry_date, created_at "+
			"FROM batches WHERE product_id = $1 AND current_quantity > $2 "+
			"ORDER BY expiry_date ASC NULLS LAST, created_at, id FOR UPDATE",
		sql)
	assert.Equal(t, []any{productID.String(), 0}, args)
}
