package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
)

// Service provides report generation operations.
// Reads run in a read-only transaction so each report sees one snapshot.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
	now       func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, txManager: txManager, now: time.Now}
}

// WithClock overrides the clock used as the default report date.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) onHand(ctx context.Context, filter OnHandFilter) ([]OnHandBatch, error) {
	rows, err := tx.Read(ctx, s.txManager, func(ctx context.Context) ([]OnHandBatch, error) {
		return s.repo.ListOnHandBatches(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("list on-hand batches: %w", err)
	}
	return rows, nil
}

// CalculateValuation returns Σ current quantity × unit cost over all batches.
func (s *Service) CalculateValuation(ctx context.Context) (types.Money, error) {
	report, err := s.GetValuation(ctx, OnHandFilter{})
	if err != nil {
		return types.Zero(), err
	}
	return report.Total, nil
}

// GetValuation returns the FIFO stock value per product.
func (s *Service) GetValuation(ctx context.Context, filter OnHandFilter) (*ValuationReport, error) {
	rows, err := s.onHand(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := &ValuationReport{AsOf: s.now().UTC(), Total: types.Zero()}
	index := make(map[id.ID]int)
	for _, r := range rows {
		value := r.Quantity.Cost(r.UnitCost)
		report.Total = report.Total.Add(value)

		i, ok := index[r.ProductID]
		if !ok {
			i = len(report.Products)
			index[r.ProductID] = i
			report.Products = append(report.Products, ProductValuation{
				ProductID:   r.ProductID,
				ProductCode: r.ProductCode,
				ProductName: r.ProductName,
				Value:       types.Zero(),
			})
		}
		pv := &report.Products[i]
		pv.Quantity += r.Quantity
		pv.Value = pv.Value.Add(value)
		pv.Batches++
	}
	sort.Slice(report.Products, func(i, j int) bool {
		return report.Products[i].ProductCode < report.Products[j].ProductCode
	})
	return report, nil
}

// GetAgeingReport classifies remaining batches by age as of asOf (default now).
func (s *Service) GetAgeingReport(ctx context.Context, asOf *time.Time) (*AgeingReport, error) {
	rows, err := s.onHand(ctx, OnHandFilter{})
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if asOf != nil {
		at = asOf.UTC()
	}

	report := &AgeingReport{AsOf: at}
	summary := make(map[AgeBucket]*BucketSummary, len(Buckets))
	for _, b := range Buckets {
		summary[b] = &BucketSummary{Bucket: b, Value: types.Zero()}
	}

	for _, r := range rows {
		age := AgeDays(r.CreatedAt, at)
		bucket := BucketFor(age)
		value := r.Quantity.Cost(r.UnitCost)

		report.Rows = append(report.Rows, AgeingRow{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			BatchNumber: r.BatchNumber,
			Quantity:    r.Quantity,
			Value:       value,
			AgeDays:     age,
			Category:    bucket,
			ExpiryDate:  r.ExpiryDate,
		})

		sm := summary[bucket]
		sm.Batches++
		sm.Quantity += r.Quantity
		sm.Value = sm.Value.Add(value)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].AgeDays > report.Rows[j].AgeDays
	})
	for _, b := range Buckets {
		report.Summary = append(report.Summary, *summary[b])
	}
	return report, nil
}

// AgeDays returns whole days elapsed from createdAt to asOf, never negative.
func AgeDays(createdAt, asOf time.Time) int {
	d := asOf.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
