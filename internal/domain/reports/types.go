// Package reports provides stock valuation and ageing reports over the batch ledger.
package reports

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// OnHandBatch is a batch with remaining stock, joined with its product.
type OnHandBatch struct {
	BatchID     id.ID          `db:"batch_id"`
	ProductID   id.ID          `db:"product_id"`
	ProductCode string         `db:"product_code"`
	ProductName string         `db:"product_name"`
	Category    string         `db:"category"`
	BatchNumber string         `db:"batch_number"`
	Quantity    types.Quantity `db:"current_quantity"`
	UnitCost    types.Money    `db:"unit_cost"`
	ExpiryDate  *time.Time     `db:"expiry_date"`
	CreatedAt   time.Time      `db:"created_at"`
}

// OnHandFilter narrows the batches a report reads.
type OnHandFilter struct {
	ProductIDs []id.ID
}

// --- Valuation ---

// ProductValuation is the FIFO value of one product's remaining batches.
type ProductValuation struct {
	ProductID   id.ID          `json:"productId"`
	ProductCode string         `json:"productCode"`
	ProductName string         `json:"productName"`
	Quantity    types.Quantity `json:"quantity"`
	Value       types.Money    `json:"value"`
	Batches     int            `json:"batches"`
}

// ValuationReport is Σ current quantity × unit cost over all batches.
type ValuationReport struct {
	AsOf     time.Time          `json:"asOf"`
	Total    types.Money        `json:"total"`
	Products []ProductValuation `json:"products"`
}

// --- Ageing ---

// AgeBucket classifies a batch by age in days.
type AgeBucket string

const (
	BucketFresh    AgeBucket = "Fresh"    // < 30 days
	BucketAging    AgeBucket = "Aging"    // 30-59 days
	BucketOld      AgeBucket = "Old"      // 60-89 days
	BucketObsolete AgeBucket = "Obsolete" // >= 90 days
)

// Buckets lists the age buckets from youngest to oldest.
var Buckets = []AgeBucket{BucketFresh, BucketAging, BucketOld, BucketObsolete}

// BucketFor returns the age bucket of a batch that is ageDays old.
func BucketFor(ageDays int) AgeBucket {
	switch {
	case ageDays < 30:
		return BucketFresh
	case ageDays < 60:
		return BucketAging
	case ageDays < 90:
		return BucketOld
	default:
		return BucketObsolete
	}
}

// AgeingRow is one batch with remaining stock.
type AgeingRow struct {
	ProductID   id.ID          `json:"productId"`
	ProductName string         `json:"productName"`
	BatchNumber string         `json:"batchNumber"`
	Quantity    types.Quantity `json:"quantity"`
	Value       types.Money    `json:"value"`
	AgeDays     int            `json:"ageDays"`
	Category    AgeBucket      `json:"category"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
}

// BucketSummary totals one age bucket.
type BucketSummary struct {
	Bucket   AgeBucket      `json:"bucket"`
	Batches  int            `json:"batches"`
	Quantity types.Quantity `json:"quantity"`
	Value    types.Money    `json:"value"`
}

// AgeingReport lists remaining batches, oldest first, with per-bucket totals.
type AgeingReport struct {
	AsOf    time.Time       `json:"asOf"`
	Rows    []AgeingRow     `json:"rows"`
	Summary []BucketSummary `json:"summary"`
}
