// Package app wires the PostgreSQL repositories into the domain services
// shared by the server and seed binaries.
package app

import (
	"context"
	"fmt"

	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/accounting_repo"
	"stockbook/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/internal/infrastructure/storage/postgres/movement_repo"
	"stockbook/internal/infrastructure/storage/postgres/report_repo"
	"stockbook/pkg/numerator"
)

// Options tune the movement orchestrator.
type Options struct {
	Policy movements.AdjustmentPolicy

	// Locker is optional
	Locker movements.Locker
}

// Services is the set of domain services over one database.
type Services struct {
	TxManager *postgres.TxManager
	Numbers   *numerator.Service

	Catalog   *catalog.Service
	Ledger    *batches.Ledger
	Journal   *accounting.Engine
	Movements *movements.Service
	Reports   *reports.Service
}

// NewServices builds every service on txm. Events go to the transactional outbox.
func NewServices(txm *postgres.TxManager, opts Options) (*Services, error) {
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	outbox := postgres.NewOutboxPublisher(txm)
	numbers := numerator.NewWithResolver(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	products := catalog_repo.NewProductRepo(txm)
	ledger := batches.NewLedger(ledger_repo.NewBatchRepo(txm), txm)
	journal := accounting.NewEngine(accounting_repo.NewAccountingRepo(txm), txm).
		WithAuditor(audit).
		WithEvents(outbox).
		WithNumbers(numbers)

	return &Services{
		TxManager: txm,
		Numbers:   numbers,
		Catalog:   catalog.NewService(products, txm),
		Ledger:    ledger,
		Journal:   journal,
		Movements: movements.NewService(movements.Config{
			TxManager: txm,
			Products:  products,
			Ledger:    ledger,
			Journal:   journal,
			Repo:      movement_repo.NewMovementRepo(txm),
			Events:    outbox,
			Locker:    opts.Locker,
			Numbers:   numbers,
			Policy:    opts.Policy,
		}),
		Reports: reports.NewService(report_repo.NewReportRepo(txm), txm),
	}, nil
}
