// Package lock provides a cross-instance product lock on Redis.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/movements"
	"stockbook/pkg/logger"
)

var _ movements.Locker = (*ProductLocker)(nil)

const defaultTTL = 30 * time.Second

// ProductLocker serializes work on products across server instances.
// It is best-effort: when Redis is down or a lock is busy past the retry
// budget the caller proceeds and database row locks decide.
type ProductLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewProductLocker creates a locker on rdb. A nil client yields a no-op locker.
func NewProductLocker(rdb redis.UniversalClient, ttl time.Duration) *ProductLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	l := &ProductLocker{
		ttl:   ttl,
		retry: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	}
	if rdb != nil {
		l.client = redislock.New(rdb)
	}
	return l
}

// Key returns the Redis key guarding a product.
func Key(productID id.ID) string {
	return "lock:product:" + productID.String()
}

// LockProducts obtains one lock per product in ascending id order.
// The returned release func is always non-nil.
func (l *ProductLocker) LockProducts(ctx context.Context, productIDs []id.ID) (func(), error) {
	if l.client == nil || len(productIDs) == 0 {
		return func() {}, nil
	}

	ids := append([]id.ID(nil), productIDs...)
	id.Sort(ids)

	held := make([]*redislock.Lock, 0, len(ids))
	for i, pid := range ids {
		if i > 0 && ids[i-1] == pid {
			continue
		}
		lk, err := l.client.Obtain(ctx, Key(pid), l.ttl, &redislock.Options{RetryStrategy: l.retry})
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			logger.Warn(ctx, "could not obtain product lock; proceeding without it", "product_id", pid)
			continue
		case err != nil:
			if ctx.Err() != nil {
				release(held)
				return func() {}, ctx.Err()
			}
			logger.Warn(ctx, "error obtaining product lock; proceeding without it", "product_id", pid, "error", err)
			continue
		}
		held = append(held, lk)
	}

	return func() { release(held) }, nil
}

func release(locks []*redislock.Lock) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(locks) - 1; i >= 0; i-- {
		if err := locks[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release product lock", "key", locks[i].Key(), "error", err)
		}
	}
}
