package mocks

import (
	"context"
	"time"

	"ticket-booking/internal/data/cache"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/gateway"

	"github.com/stretchr/testify/mock"
)

type PendingPaymentCache struct {
	mock.Mock
}

func (m *PendingPaymentCache) Register(ctx context.Context, pending *entity.PendingPayment, ttl time.Duration) error {
	args := m.Called(ctx, pending, ttl)
	return args.Error(0)
}

func (m *PendingPaymentCache) Get(ctx context.Context, paymentKey string) (*entity.PendingPayment, error) {
	args := m.Called(ctx, paymentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PendingPayment), args.Error(1)
}

func (m *PendingPaymentCache) Remove(ctx context.Context, paymentKey string) (bool, error) {
	args := m.Called(ctx, paymentKey)
	return args.Bool(0), args.Error(1)
}

type GatewayClient struct {
	mock.Mock
}

func (m *GatewayClient) GetCharge(ctx context.Context, paymentKey string) (*gateway.Charge, error) {
	args := m.Called(ctx, paymentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *GatewayClient) CancelCharge(ctx context.Context, paymentKey, reason string) error {
	args := m.Called(ctx, paymentKey, reason)
	return args.Error(0)
}

// Publisher records published messages.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	args := m.Called(ctx, routingKey, messageID, body)
	return args.Error(0)
}

var (
	_ cache.PendingPaymentCache = (*PendingPaymentCache)(nil)
	_ gateway.Client            = (*GatewayClient)(nil)
)
