// Package main provides a CLI tool for initializing the database:
// migrations, the chart of accounts and optional demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockbook/internal/app"
	"stockbook/internal/config"
	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	services, err := app.NewServices(postgres.NewTxManager(pool), app.Options{Policy: cfg.AdjustmentPolicy})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	created, err := services.Journal.SeedChart(ctx)
	if err != nil {
		log.Fatalw("failed to seed chart of accounts", "error", err)
	}
	log.Infow("chart of accounts ready", "created", created)

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, services, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

type demoProduct struct {
	code, name, category string
	price, cost          string
	threshold            int64
	opening              int64
	expiresInDays        int
}

var demoProducts = []demoProduct{
	{"SKU-1001", "Arabica Coffee Beans 1kg", "Beverages", "24.90", "14.20", 10, 60, 180},
	{"SKU-1002", "Green Tea 100 bags", "Beverages", "8.50", "4.10", 20, 120, 365},
	{"SKU-2001", "Whole Milk 1L", "Dairy", "1.80", "0.95", 30, 80, 10},
	{"SKU-3001", "Paper Cups 250ml (50 pcs)", "Supplies", "6.00", "2.75", 15, 40, 0},
}

// seedDemoData registers demo products and receives their opening stock in one purchase order.
// Products that already exist are left untouched.
func seedDemoData(ctx context.Context, services *app.Services, log *logger.Logger) error {
	log.Info("seeding demo data...")

	receipt := movements.ReceiptRequest{
		Reference: "OPENING-STOCK",
		Supplier:  "Demo Supplier",
		Notes:     "opening stock",
	}
	now := time.Now().UTC()

	for _, d := range demoProducts {
		p := catalog.NewProduct(d.code, d.name, types.MustMoney(d.price), types.MustMoney(d.cost))
		p.Category = d.category
		p.MinStockThreshold = types.NewQuantity(d.threshold)

		if err := services.Catalog.Create(ctx, p); err != nil {
			if apperror.IsDuplicate(err) {
				log.Infow("demo product exists, skipping", "code", d.code)
				continue
			}
			return fmt.Errorf("create product %s: %w", d.code, err)
		}

		line := movements.ReceiptLine{
			ProductID: p.ID,
			Quantity:  types.NewQuantity(d.opening),
			UnitCost:  p.Cost,
		}
		if d.expiresInDays > 0 {
			expiry := now.AddDate(0, 0, d.expiresInDays)
			line.ExpiryDate = &expiry
		}
		receipt.Lines = append(receipt.Lines, line)
	}

	if len(receipt.Lines) == 0 {
		log.Info("demo products already present")
		return nil
	}

	result, err := services.Movements.Receive(ctx, receipt)
	if err != nil {
		return fmt.Errorf("receive opening stock: %w", err)
	}
	log.Infow("opening stock received",
		"reference", result.Reference,
		"batches", len(result.Batches),
		"amount", result.Amount.String())
	return nil
}
