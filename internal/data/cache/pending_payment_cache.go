package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingPaymentPrefix = "pending_payment:"

// PendingPaymentCache holds the claim check of what a payment key is
// expected to charge. Entries are never extended; a missing entry means
// the verification window is over.
type PendingPaymentCache interface {
	Register(ctx context.Context, pending *entity.PendingPayment, ttl time.Duration) error
	Get(ctx context.Context, paymentKey string) (*entity.PendingPayment, error)
	// Remove reports whether an entry was actually deleted.
	Remove(ctx context.Context, paymentKey string) (bool, error)
}

type pendingPaymentCache struct {
	client    redis.Cmdable
	opTimeout time.Duration
	log       *zap.Logger
}

func NewPendingPaymentCache(client redis.Cmdable, opTimeout time.Duration, log *zap.Logger) PendingPaymentCache {
	return &pendingPaymentCache{
		client:    client,
		opTimeout: opTimeout,
		log:       log.With(zap.String("cache", "pending_payment")),
	}
}

func pendingPaymentKey(paymentKey string) string {
	return pendingPaymentPrefix + paymentKey
}

func (c *pendingPaymentCache) Register(ctx context.Context, pending *entity.PendingPayment, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	body, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending payment %s: %w", pending.PaymentKey, err)
	}

	ok, err := c.client.SetNX(ctx, pendingPaymentKey(pending.PaymentKey), body, ttl).Result()
	if err != nil {
		c.log.Error("Failed to register pending payment",
			zap.Error(err),
			zap.String("payment_key", pending.PaymentKey),
		)
		return apperror.ErrCacheUnavailable.Wrap(err)
	}
	if !ok {
		return apperror.ErrPaymentKeyCollision.WithMessage("pending payment %s already registered", pending.PaymentKey)
	}

	return nil
}

func (c *pendingPaymentCache) Get(ctx context.Context, paymentKey string) (*entity.PendingPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	body, err := c.client.Get(ctx, pendingPaymentKey(paymentKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.log.Error("Failed to get pending payment", zap.Error(err), zap.String("payment_key", paymentKey))
		return nil, apperror.ErrCacheUnavailable.Wrap(err)
	}

	var pending entity.PendingPayment
	if err := json.Unmarshal(body, &pending); err != nil {
		c.log.Error("Corrupt pending payment entry", zap.Error(err), zap.String("payment_key", paymentKey))
		return nil, fmt.Errorf("decode pending payment %s: %w", paymentKey, err)
	}

	return &pending, nil
}

func (c *pendingPaymentCache) Remove(ctx context.Context, paymentKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.client.Del(ctx, pendingPaymentKey(paymentKey)).Result()
	if err != nil {
		c.log.Error("Failed to remove pending payment", zap.Error(err), zap.String("payment_key", paymentKey))
		return false, apperror.ErrCacheUnavailable.Wrap(err)
	}

	return n > 0, nil
}
