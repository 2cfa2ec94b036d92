package usecase

import (
	"context"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/mocks"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

const (
	testPaymentKey = "payment123"
	testSeatID     = int64(42)
	testClientIP   = "203.0.113.10"
)

func testConfig() *utils.Config {
	return &utils.Config{
		Gateway: utils.GatewayConfig{Timeout: 2 * time.Second},
		Reservation: utils.ReservationConfig{
			HoldTTL:           10 * time.Minute,
			PendingPaymentTTL: 30 * time.Minute,
			SeatLockTimeout:   3 * time.Second,
			KeyMaxAttempts:    3,
			PaidAtMaxFuture:   5 * time.Minute,
			PaidAtMaxAge:      time.Hour,
		},
	}
}

type paymentFixture struct {
	repos   *mocks.Repositories
	pending *mocks.PendingPaymentCache
	pg      *mocks.GatewayClient
	keys    *PaymentKeyGenerator
	svc     *paymentService
}

func newPaymentFixture() *paymentFixture {
	repos := mocks.NewRepositories()
	pending := new(mocks.PendingPaymentCache)
	pg := new(mocks.GatewayClient)
	clock := utils.FixedClock{T: testNow}
	config := testConfig()

	keys := NewPaymentKeyGenerator(repos.Payment, clock, config.Reservation.KeyMaxAttempts, zap.NewNop())
	keys.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	svc := NewPaymentService(repos.Repo, pending, pg, keys, config, clock, zap.NewNop()).(*paymentService)
	return &paymentFixture{repos: repos, pending: pending, pg: pg, keys: keys, svc: svc}
}

func (f *paymentFixture) assertExpectations(t mock.TestingT) {
	f.repos.AssertExpectations(t)
	f.pending.AssertExpectations(t)
	f.pg.AssertExpectations(t)
}

func pendingPayment(buyerID uuid.UUID, amount int64) *entity.Payment {
	p, err := entity.NewPayment(testPaymentKey, buyerID, testSeatID, "", "Seat A-12", amount, testNow.Add(-5*time.Minute))
	if err != nil {
		panic(err)
	}
	p.ID = 7
	return p
}

func paidPayment(buyerID uuid.UUID, amount int64) *entity.Payment {
	p := pendingPayment(buyerID, amount)
	if err := p.Approve("CARD", testNow.Add(-time.Minute), "https://pg.example/receipt/1", testClientIP, testNow.Add(-time.Minute)); err != nil {
		panic(err)
	}
	return p
}

func heldReservation(buyerID uuid.UUID) *entity.Reservation {
	res := entity.NewHold(buyerID, testSeatID, testNow.Add(-2*time.Minute), 10*time.Minute)
	res.ID = 11
	return res
}

func testSeat() *entity.Seat {
	return &entity.Seat{ID: testSeatID, PerformanceID: 1, Code: "A-12", Price: 10000, Status: entity.SeatStatusHeld}
}
