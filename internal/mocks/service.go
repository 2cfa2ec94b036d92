package mocks

import (
	"context"

	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type ReservationService struct {
	mock.Mock
}

func (m *ReservationService) HoldSeat(ctx context.Context, buyerID uuid.UUID, req *request.HoldSeatRequest) (*response.ReservationResponse, error) {
	args := m.Called(ctx, buyerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReservationResponse), args.Error(1)
}

func (m *ReservationService) CancelHold(ctx context.Context, buyerID uuid.UUID, seatID int64) error {
	args := m.Called(ctx, buyerID, seatID)
	return args.Error(0)
}

func (m *ReservationService) GetReservation(ctx context.Context, buyerID uuid.UUID, seatID int64) (*response.ReservationResponse, error) {
	args := m.Called(ctx, buyerID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReservationResponse), args.Error(1)
}

func (m *ReservationService) ConfirmReservation(ctx context.Context, evt event.PaymentCompletedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *ReservationService) ReleaseExpiredHolds(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type PaymentService struct {
	mock.Mock
}

func (m *PaymentService) RequestPayment(ctx context.Context, buyerID uuid.UUID, req *request.RequestPaymentRequest) (*response.PaymentResponse, error) {
	args := m.Called(ctx, buyerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}

func (m *PaymentService) VerifyPayment(ctx context.Context, buyerID uuid.UUID, clientIP string, req *request.VerifyPaymentRequest) (*response.PaymentResponse, error) {
	args := m.Called(ctx, buyerID, clientIP, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}

func (m *PaymentService) GetPayment(ctx context.Context, buyerID uuid.UUID, isAdmin bool, paymentKey string) (*response.PaymentResponse, error) {
	args := m.Called(ctx, buyerID, isAdmin, paymentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}

func (m *PaymentService) RefundPayment(ctx context.Context, actorID uuid.UUID, isAdmin bool, paymentKey string, req *request.RefundPaymentRequest) (*response.PaymentResponse, error) {
	args := m.Called(ctx, actorID, isAdmin, paymentKey, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}
