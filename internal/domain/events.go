package domain

import (
	"context"

	"stockbook/internal/core/id"
)

// Event types emitted by ledger operations.
const (
	EventStockReceived  = "stock.received"
	EventSaleConfirmed  = "sale.confirmed"
	EventStockAdjusted  = "stock.adjusted"
	EventSaleReturned   = "sale.returned"
	EventStockLow       = "stock.low"
	EventJournalDeleted = "journal.deleted"
)

// Event is a domain event written to the transactional outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher records events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
