// Package events delivers outbox messages to external consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

var (
	_ postgres.OutboxHandler = (*PubSubHandler)(nil)
	_ postgres.OutboxHandler = LogHandler{}
)

// Envelope is the message body published for every outbox event.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewEnvelope wraps an outbox message.
func NewEnvelope(msg *postgres.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID.String(),
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID.String(),
		EventType:     msg.EventType,
		Payload:       payload,
		OccurredAt:    msg.CreatedAt,
	}
}

// Attributes are the Pub/Sub attributes subscribers can filter on.
func (e Envelope) Attributes() map[string]string {
	return map[string]string{
		"event_type":     e.EventType,
		"aggregate_type": e.AggregateType,
		"aggregate_id":   e.AggregateID,
	}
}

// PubSubHandler publishes outbox messages to a Google Cloud Pub/Sub topic.
type PubSubHandler struct {
	topic   *pubsub.Topic
	timeout time.Duration
}

// NewPubSubHandler creates a handler on an existing topic.
func NewPubSubHandler(client *pubsub.Client, topicName string) (*PubSubHandler, error) {
	if client == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topicName == "" {
		return nil, errors.New("topic is required")
	}

	t := client.Topic(topicName)
	// Keep ordering per product or entry.
	t.EnableMessageOrdering = true
	return &PubSubHandler{topic: t, timeout: 30 * time.Second}, nil
}

// Handle publishes one message and waits for the server ack.
func (h *PubSubHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	env := NewEnvelope(msg)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result := h.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  env.Attributes(),
		OrderingKey: env.AggregateID,
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		h.topic.ResumePublish(env.AggregateID)
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}

	logger.Debug(ctx, "event published",
		"event_type", env.EventType, "outbox_id", env.ID, "pubsub_id", serverID)
	return nil
}

// Stop flushes pending publishes.
func (h *PubSubHandler) Stop() {
	h.topic.Stop()
}

// LogHandler writes events to the log. Used when no broker is configured.
type LogHandler struct{}

// Handle implements postgres.OutboxHandler.
func (LogHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload))
	return nil
}
