package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/cache"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/event"
	"ticket-booking/internal/gateway"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	RequestPayment(ctx context.Context, buyerID uuid.UUID, req *request.RequestPaymentRequest) (*response.PaymentResponse, error)
	VerifyPayment(ctx context.Context, buyerID uuid.UUID, clientIP string, req *request.VerifyPaymentRequest) (*response.PaymentResponse, error)
	GetPayment(ctx context.Context, buyerID uuid.UUID, isAdmin bool, paymentKey string) (*response.PaymentResponse, error)
	RefundPayment(ctx context.Context, actorID uuid.UUID, isAdmin bool, paymentKey string, req *request.RefundPaymentRequest) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo    *repository.Repository
	pending cache.PendingPaymentCache
	pg      gateway.Client
	keys    *PaymentKeyGenerator
	config  *utils.Config
	clock   utils.Clock
	log     *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	pending cache.PendingPaymentCache,
	pg gateway.Client,
	keys *PaymentKeyGenerator,
	config *utils.Config,
	clock utils.Clock,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:    repo,
		pending: pending,
		pg:      pg,
		keys:    keys,
		config:  config,
		clock:   clock,
		log:     log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) RequestPayment(ctx context.Context, buyerID uuid.UUID, req *request.RequestPaymentRequest) (*response.PaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrInvalidRequest.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	now := s.clock.Now()

	hold, err := s.repo.Reservation.FindLive(ctx, buyerID, req.SeatID)
	if err != nil {
		return nil, fmt.Errorf("find hold for seat %d: %w", req.SeatID, err)
	}
	if hold == nil || hold.Status != entity.ReservationStatusHeld || hold.HoldExpired(now) {
		return nil, apperror.ErrReservationNotHeld
	}

	seat, err := s.repo.Seat.FindByID(ctx, req.SeatID)
	if err != nil {
		return nil, fmt.Errorf("find seat %d: %w", req.SeatID, err)
	}
	if seat == nil {
		return nil, apperror.ErrSeatNotFound
	}

	paid, err := s.repo.Payment.ExistsPaidForSeat(ctx, req.SeatID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, apperror.ErrSeatAlreadyPaid
	}

	var (
		payment *entity.Payment
		pending *entity.PendingPayment
	)
	for attempt := 1; ; attempt++ {
		payment, pending, err = s.registerPayment(ctx, buyerID, seat, req.Method, now)
		if err == nil {
			break
		}
		// a concurrent request took the key between the check and the insert
		if !errors.Is(err, apperror.ErrPaymentKeyCollision) || attempt >= registerAttempts {
			return nil, err
		}
		s.log.Warn("Payment key taken at insert, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	key := payment.PaymentKey

	s.log.Info("Payment registered",
		zap.String("payment_key", key),
		zap.Int64("seat_id", seat.ID),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("method", payment.Method),
	)

	out := response.PaymentToResponse(payment)
	out.ExpiresAt = &pending.ExpiresAt
	return out, nil
}

// registerAttempts bounds how often RequestPayment draws a new key after
// losing a collision at insert time.
const registerAttempts = 2

// registerPayment stores the claim check and then the PENDING payment under
// a freshly generated key.
func (s *paymentService) registerPayment(ctx context.Context, buyerID uuid.UUID, seat *entity.Seat, method string, now time.Time) (*entity.Payment, *entity.PendingPayment, error) {
	key, err := s.keys.Generate(ctx)
	if err != nil {
		return nil, nil, err
	}

	// the amount always comes from the seat price, never from the client
	payment, err := entity.NewPayment(key, buyerID, seat.ID, method, "Seat "+seat.Code, seat.Price, now)
	if err != nil {
		return nil, nil, err
	}

	ttl := s.config.Reservation.PendingPaymentTTL
	pending := &entity.PendingPayment{
		PaymentKey: key,
		Amount:     payment.Amount,
		Method:     payment.Method,
		ExpiresAt:  now.Add(ttl),
	}
	if err := s.pending.Register(ctx, pending, ttl); err != nil {
		return nil, nil, err
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		// the claim check is ours (SET NX succeeded), so drop it
		if _, rmErr := s.pending.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.log.Warn("Failed to drop pending payment after create failure", zap.Error(rmErr), zap.String("payment_key", key))
		}
		return nil, nil, err
	}

	return payment, pending, nil
}

func (s *paymentService) GetPayment(ctx context.Context, buyerID uuid.UUID, isAdmin bool, paymentKey string) (*response.PaymentResponse, error) {
	payment, err := s.repo.Payment.FindByPaymentKey(ctx, paymentKey)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentKey, err)
	}
	if payment == nil {
		return nil, apperror.ErrPaymentNotFound
	}
	if !isAdmin && payment.BuyerID != buyerID {
		// indistinguishable from a missing key for other buyers
		return nil, apperror.ErrPaymentNotFound
	}

	return response.PaymentToResponse(payment), nil
}

// RefundPayment cancels a PAID payment at the gateway first and only then
// releases the reservation and seat locally.
func (s *paymentService) RefundPayment(ctx context.Context, actorID uuid.UUID, isAdmin bool, paymentKey string, req *request.RefundPaymentRequest) (*response.PaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrInvalidRequest.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	payment, err := s.repo.Payment.FindByPaymentKey(ctx, paymentKey)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", paymentKey, err)
	}
	if payment == nil {
		return nil, apperror.ErrPaymentNotFound
	}
	if !isAdmin && payment.BuyerID != actorID {
		return nil, apperror.ErrNotPaymentOwner
	}
	if err := payment.CheckRefundable(); err != nil {
		return nil, err
	}

	pgCtx, cancel := context.WithTimeout(ctx, s.config.Gateway.Timeout)
	err = s.pg.CancelCharge(pgCtx, paymentKey, req.Reason)
	cancel()
	if err != nil {
		s.log.Warn("Gateway refused refund", zap.Error(err), zap.String("payment_key", paymentKey))
		return nil, err
	}

	// money is back with the buyer; local state must follow even if the
	// caller goes away
	ctx = context.WithoutCancel(ctx)

	var refunded *entity.Payment
	err = s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		p, err := tx.Payment.FindByPaymentKeyForUpdate(ctx, paymentKey)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.ErrPaymentNotFound
		}

		now := s.clock.Now()
		if err := p.Refund(req.Reason, now); err != nil {
			return err
		}
		if err := tx.Payment.Update(ctx, p); err != nil {
			return err
		}

		res, err := tx.Reservation.FindLiveForUpdate(ctx, p.BuyerID, p.SeatID)
		if err != nil {
			return err
		}
		if res != nil {
			if err := res.Cancel(now); err != nil {
				return err
			}
			if err := tx.Reservation.Update(ctx, res); err != nil {
				return err
			}
			if err := tx.Seat.Restock(ctx, p.SeatID, now); err != nil {
				return err
			}
		}

		msg, err := event.NewPaymentCancelledMessage(p, event.CancelKindRefund, now)
		if err != nil {
			return err
		}
		if err := tx.Outbox.Create(ctx, msg); err != nil {
			return err
		}

		refunded = p
		return nil
	})
	if errors.Is(err, apperror.ErrAlreadyCancelled) {
		// a concurrent refund got there first
		return nil, err
	}
	if err != nil {
		s.log.Error("Refunded at gateway but local refund failed",
			zap.Bool("alert", true),
			zap.Error(err),
			zap.String("payment_key", paymentKey),
		)
		return nil, apperror.Escalate(err)
	}

	s.log.Info("Payment refunded",
		zap.String("payment_key", paymentKey),
		zap.String("actor_id", actorID.String()),
		zap.Bool("admin", isAdmin),
		zap.Int64("amount", refunded.Amount),
	)

	return response.PaymentToResponse(refunded), nil
}
