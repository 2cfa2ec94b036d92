package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultKeyAttempts = 5
	keyRetryBaseDelay  = 20 * time.Millisecond
	keyRetryJitter     = 30 * time.Millisecond
)

// PaymentKeyGenerator issues payment keys that are not yet present in the
// payment ledger. The unique index on payment_key still backs this check
// against two callers racing on the same fresh key.
type PaymentKeyGenerator struct {
	payments    repository.PaymentRepository
	clock       utils.Clock
	maxAttempts int
	newKey      func(time.Time) (string, error)
	sleep       func(context.Context, time.Duration) error
	log         *zap.Logger
}

func NewPaymentKeyGenerator(payments repository.PaymentRepository, clock utils.Clock, maxAttempts int, log *zap.Logger) *PaymentKeyGenerator {
	if maxAttempts <= 0 {
		maxAttempts = defaultKeyAttempts
	}
	return &PaymentKeyGenerator{
		payments:    payments,
		clock:       clock,
		maxAttempts: maxAttempts,
		newKey:      utils.GeneratePaymentKey,
		sleep:       sleepCtx,
		log:         log.With(zap.String("component", "payment_key")),
	}
}

func (g *PaymentKeyGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		key, err := g.newKey(g.clock.Now())
		if err != nil {
			return "", fmt.Errorf("generate payment key: %w", err)
		}

		exists, err := g.payments.ExistsByPaymentKey(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}

		g.log.Warn("Payment key collision", zap.String("payment_key", key), zap.Int("attempt", attempt))
		if attempt == g.maxAttempts {
			break
		}

		delay := keyRetryBaseDelay + rand.N(keyRetryJitter)
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	g.log.Error("Payment key generation exhausted", zap.Int("attempts", g.maxAttempts))
	return "", apperror.ErrPaymentKeyExhausted
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
