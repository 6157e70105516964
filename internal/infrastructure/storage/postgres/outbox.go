package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

var _ domain.EventPublisher = (*OutboxPublisher)(nil)

// OutboxStatus is the delivery state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries failed deliveries park a message as failed.
const MaxOutboxRetries = 5

// OutboxMessage is one row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher stores domain events in sys_outbox as part of the
// transaction that produced them. An event exists iff its posting committed.
type OutboxPublisher struct {
	txManager *TxManager
}

func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish must run inside RunInTransaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox: %s published outside a transaction", event.EventType)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s: %w", event.EventType, err)
	}

	sql, args, err := Builder().Insert("sys_outbox").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(id.New(), event.AggregateType, event.AggregateID, event.EventType, payload,
			OutboxStatusPending, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("outbox: build insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.EventType, err)
	}
	return nil
}

// OutboxHandler delivers one message to a broker.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error { return f(ctx, msg) }

// RelayStats summarises one relay pass.
type RelayStats struct {
	Fetched   int
	Delivered int
	Failed    int
}

// OutboxRelay drains sys_outbox. A pass holds its claimed rows with
// FOR UPDATE SKIP LOCKED until the status updates commit, so several workers
// can run side by side without double delivery.
type OutboxRelay struct {
	txManager *TxManager
	batchSize uint64
	handler   OutboxHandler
	now       func() time.Time
}

func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager: txManager,
		batchSize: uint64(batchSize),
		handler:   handler,
		now:       time.Now,
	}
}

// ProcessBatch delivers up to one batch of due messages in creation order.
// Delivery failures are recorded on the row and do not fail the pass.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (RelayStats, error) {
	var stats RelayStats
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		msgs, err := r.claim(ctx)
		if err != nil {
			return err
		}
		stats.Fetched = len(msgs)

		for _, msg := range msgs {
			if herr := r.handler.Handle(ctx, msg); herr != nil {
				logger.Warn(ctx, "outbox delivery failed",
					"message_id", msg.ID, "event_type", msg.EventType,
					"attempt", msg.RetryCount+1, "error", herr)
				if err := r.markFailed(ctx, msg, herr); err != nil {
					return err
				}
				stats.Failed++
				continue
			}
			if err := r.markPublished(ctx, msg); err != nil {
				return err
			}
			stats.Delivered++
		}
		return nil
	})
	if err != nil {
		return RelayStats{}, err
	}
	return stats, nil
}

func (r *OutboxRelay) claim(ctx context.Context) ([]*OutboxMessage, error) {
	sql, args, err := Builder().
		Select("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status",
			"retry_count", "last_error", "next_retry_at", "created_at", "published_at").
		From("sys_outbox").
		Where("status = ?", OutboxStatusPending).
		Where("(next_retry_at IS NULL OR next_retry_at <= ?)", r.now().UTC()).
		OrderBy("created_at").
		Limit(r.batchSize).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("outbox: build claim: %w", err)
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("outbox: scan: %w", err)
	}
	return msgs, nil
}

func (r *OutboxRelay) markPublished(ctx context.Context, msg *OutboxMessage) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		`UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3`,
		OutboxStatusPublished, r.now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("outbox: mark %s published: %w", msg.ID, err)
	}
	return nil
}

func (r *OutboxRelay) markFailed(ctx context.Context, msg *OutboxMessage, cause error) error {
	status := OutboxStatusPending
	if msg.RetryCount+1 >= MaxOutboxRetries {
		status = OutboxStatusFailed
	}
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_outbox
		SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2, status = $3
		WHERE id = $4`,
		cause.Error(), NextRetryAt(r.now().UTC(), msg.RetryCount), status, msg.ID)
	if err != nil {
		return fmt.Errorf("outbox: record failure of %s: %w", msg.ID, err)
	}
	return nil
}

// NextRetryAt backs off one minute per attempt, capped at an hour.
func NextRetryAt(now time.Time, retryCount int) time.Time {
	return now.Add(min(time.Duration(retryCount+1)*time.Minute, time.Hour))
}

// MoveToDLQ parks messages that exhausted their retries in sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1 AND retry_count >= $2
			RETURNING *
		)
		INSERT INTO sys_outbox_dlq
		SELECT *, NOW(), last_error FROM moved`,
		OutboxStatusFailed, MaxOutboxRetries)
	if err != nil {
		return 0, fmt.Errorf("outbox: move to dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgePublished deletes delivered messages older than olderThan.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2`,
		OutboxStatusPublished, r.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("outbox: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
