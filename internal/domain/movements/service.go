package movements

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/pkg/logger"
)

var tracer = otel.Tracer("stockbook/movements")

// Config wires the orchestrator's collaborators. Events, Locker and Numbers are optional.
type Config struct {
	TxManager tx.Manager
	Products  catalog.Repository
	Ledger    *batches.Ledger
	Journal   *accounting.Engine
	Repo      Repository
	Events    domain.EventPublisher
	Locker    Locker
	Numbers   NumberGenerator
	Policy    AdjustmentPolicy
}

// Service is the movement orchestrator. Every operation runs as one unit of work:
// batch changes, product totals, movements, journal entries and outbox events
// commit together or not at all.
type Service struct {
	txManager tx.Manager
	products  catalog.Repository
	ledger    *batches.Ledger
	journal   *accounting.Engine
	repo      Repository
	events    domain.EventPublisher
	locker    Locker
	numbers   NumberGenerator
	policy    AdjustmentPolicy
	now       func() time.Time
}

// NewService creates the movement orchestrator.
func NewService(cfg Config) *Service {
	s := &Service{
		txManager: cfg.TxManager,
		products:  cfg.Products,
		ledger:    cfg.Ledger,
		journal:   cfg.Journal,
		repo:      cfg.Repo,
		events:    cfg.Events,
		locker:    cfg.Locker,
		numbers:   cfg.Numbers,
		policy:    cfg.Policy,
		now:       time.Now,
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.policy == "" {
		s.policy = PolicyBatches
	}
	return s
}

// WithClock overrides the clock used for movement timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// lock takes the optional cross-process product lock.
func (s *Service) lock(ctx context.Context, ids []id.ID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.LockProducts(ctx, ids)
}

// reference returns given, or a generated number when given is empty.
func (s *Service) reference(ctx context.Context, given, prefix string) (string, error) {
	if given != "" {
		return given, nil
	}
	if s.numbers == nil {
		return fmt.Sprintf("%s-%d", prefix, s.now().UnixNano()), nil
	}
	ref, err := s.numbers.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return ref, nil
}

// loadProducts locks the products in ascending id order.
func (s *Service) loadProducts(ctx context.Context, ids []id.ID) (map[id.ID]*catalog.Product, error) {
	products, err := s.products.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, pid := range ids {
		if _, ok := products[pid]; !ok {
			return nil, apperror.NewNotFound("product", pid)
		}
	}
	return products, nil
}

func (s *Service) saveProducts(ctx context.Context, products map[id.ID]*catalog.Product, ids []id.ID) error {
	for _, pid := range ids {
		if err := s.products.Update(ctx, products[pid]); err != nil {
			return fmt.Errorf("update product %s: %w", pid, err)
		}
	}
	return nil
}

func (s *Service) newMovement(productID id.ID, typ MovementType, ref string) *Movement {
	return &Movement{
		ID:        id.New(),
		ProductID: productID,
		Type:      typ,
		Reference: ref,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Service) saveMovements(ctx context.Context, list []*Movement, entry *accounting.JournalEntry) error {
	for _, m := range list {
		if entry != nil && m.JournalEntryID == nil {
			entryID := entry.ID
			m.JournalEntryID = &entryID
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
	}
	return nil
}

// notifyLowStock emits stock.low when the product crossed from above its
// threshold to at-or-below it.
func (s *Service) notifyLowStock(ctx context.Context, p *catalog.Product, before types.Quantity, ref string) error {
	if p.MinStockThreshold < before && p.IsLowStock() {
		logger.Warn(ctx, "product reached minimum stock",
			"product_id", p.ID,
			"code", p.Code,
			"quantity", p.TotalQuantity.String(),
			"threshold", p.MinStockThreshold.String())
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "product",
			AggregateID:   p.ID,
			EventType:     domain.EventStockLow,
			Payload: LowStockPayload{
				ProductID: p.ID,
				Code:      p.Code,
				Name:      p.Name,
				Quantity:  p.TotalQuantity,
				Threshold: p.MinStockThreshold,
				Reference: ref,
			},
		})
	}
	return nil
}

// History returns recent movements of a product with their allocation records.
func (s *Service) History(ctx context.Context, productID id.ID, limit int) ([]*MovementView, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	list, err := s.repo.ListByProduct(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	ids := make([]id.ID, 0, len(list))
	for _, m := range list {
		if m.Type != MovementIn {
			ids = append(ids, m.ID)
		}
	}
	records, err := s.ledger.AllocationRecords(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	byMovement := make(map[id.ID][]batches.AllocationRecord, len(ids))
	for _, r := range records {
		byMovement[r.MovementID] = append(byMovement[r.MovementID], r)
	}

	views := make([]*MovementView, 0, len(list))
	for _, m := range list {
		views = append(views, &MovementView{Movement: m, Allocations: byMovement[m.ID]})
	}
	return views, nil
}

func uniqueIDs(ids []id.ID) []id.ID {
	seen := make(map[id.ID]struct{}, len(ids))
	out := make([]id.ID, 0, len(ids))
	for _, v := range ids {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	id.Sort(out)
	return out
}
