package usecase

import (
	"context"
	"errors"
	"fmt"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/event"
	"ticket-booking/pkg/telemetry"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ReservationService interface {
	HoldSeat(ctx context.Context, buyerID uuid.UUID, req *request.HoldSeatRequest) (*response.ReservationResponse, error)
	CancelHold(ctx context.Context, buyerID uuid.UUID, seatID int64) error
	GetReservation(ctx context.Context, buyerID uuid.UUID, seatID int64) (*response.ReservationResponse, error)

	// ConfirmReservation handles a payment.completed event. Redelivery of an
	// already applied event is a no-op.
	ConfirmReservation(ctx context.Context, evt event.PaymentCompletedEvent) error

	// ReleaseExpiredHolds puts back on sale up to limit seats whose hold
	// expired without a completed payment.
	ReleaseExpiredHolds(ctx context.Context, limit int) (int, error)
}

type reservationService struct {
	repo   *repository.Repository
	config utils.ReservationConfig
	clock  utils.Clock
	log    *zap.Logger
}

func NewReservationService(repo *repository.Repository, config utils.ReservationConfig, clock utils.Clock, log *zap.Logger) ReservationService {
	return &reservationService{
		repo:   repo,
		config: config,
		clock:  clock,
		log:    log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) HoldSeat(ctx context.Context, buyerID uuid.UUID, req *request.HoldSeatRequest) (res *response.ReservationResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation.HoldSeat", attribute.Int64("seat.id", req.SeatID))
	defer func() { telemetry.EndSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrInvalidRequest.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	var hold *entity.Reservation
	var result entity.AcquireResult

	// seat acquisition and the reservation row commit or roll back together
	err = s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		now := s.clock.Now()

		acquired, err := tx.Seat.Acquire(ctx, req.SeatID, s.config.SeatLockTimeout, now)
		if err != nil {
			return err
		}
		result = acquired
		if result != entity.AcquireOK {
			return nil
		}

		hold = entity.NewHold(buyerID, req.SeatID, now, s.config.HoldTTL)
		return tx.Reservation.CreateHold(ctx, hold)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrSeatBusy) || errors.Is(err, apperror.ErrSeatAlreadyHeld) {
			s.log.Info("Seat hold lost under contention",
				zap.Int64("seat_id", req.SeatID),
				zap.String("buyer_id", buyerID.String()),
				zap.String("code", apperror.CodeOf(err)),
			)
			return nil, err
		}
		s.log.Error("Failed to hold seat", zap.Error(err), zap.Int64("seat_id", req.SeatID))
		return nil, fmt.Errorf("hold seat %d: %w", req.SeatID, err)
	}

	switch result {
	case entity.AcquireNotFound:
		return nil, apperror.ErrSeatNotFound
	case entity.AcquireAlreadyHeld:
		return nil, apperror.ErrSeatAlreadyHeld
	}

	seat, err := s.repo.Seat.FindByID(ctx, req.SeatID)
	if err != nil {
		return nil, fmt.Errorf("load held seat %d: %w", req.SeatID, err)
	}

	s.log.Info("Seat held",
		zap.Int64("seat_id", req.SeatID),
		zap.Int64("reservation_id", hold.ID),
		zap.String("buyer_id", buyerID.String()),
		zap.Time("hold_expires_at", hold.HoldExpiresAt),
	)

	return response.ReservationToResponse(hold, seat), nil
}

func (s *reservationService) CancelHold(ctx context.Context, buyerID uuid.UUID, seatID int64) error {
	err := s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		res, err := tx.Reservation.FindLiveForUpdate(ctx, buyerID, seatID)
		if err != nil {
			return err
		}
		if res == nil {
			return apperror.ErrReservationNotFound
		}
		if res.Status == entity.ReservationStatusConfirmed {
			return apperror.ErrReservationConfirmed
		}

		// paid but not yet confirmed: only a refund may release it
		paid, err := tx.Payment.ExistsPaidForSeat(ctx, seatID)
		if err != nil {
			return err
		}
		if paid {
			return apperror.ErrReservationConfirmed
		}

		now := s.clock.Now()
		if err := res.Cancel(now); err != nil {
			return err
		}
		if err := tx.Reservation.Update(ctx, res); err != nil {
			return err
		}
		return tx.Seat.Release(ctx, seatID, now)
	})
	if err != nil {
		return err
	}

	s.log.Info("Seat hold cancelled by buyer",
		zap.Int64("seat_id", seatID),
		zap.String("buyer_id", buyerID.String()),
	)
	return nil
}

func (s *reservationService) GetReservation(ctx context.Context, buyerID uuid.UUID, seatID int64) (*response.ReservationResponse, error) {
	res, err := s.repo.Reservation.FindLive(ctx, buyerID, seatID)
	if err != nil {
		return nil, fmt.Errorf("get reservation for seat %d: %w", seatID, err)
	}
	if res == nil {
		return nil, apperror.ErrReservationNotFound
	}

	seat, err := s.repo.Seat.FindByID(ctx, seatID)
	if err != nil {
		return nil, fmt.Errorf("get seat %d: %w", seatID, err)
	}

	return response.ReservationToResponse(res, seat), nil
}

func (s *reservationService) ConfirmReservation(ctx context.Context, evt event.PaymentCompletedEvent) error {
	var alreadyConfirmed bool

	err := s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		res, err := tx.Reservation.FindLiveForUpdate(ctx, evt.BuyerID, evt.SeatID)
		if err != nil {
			return err
		}
		if res == nil {
			return s.missingReservation(ctx, tx, evt)
		}
		if res.Status == entity.ReservationStatusConfirmed {
			alreadyConfirmed = true
			return nil
		}

		now := s.clock.Now()
		if err := res.Confirm(now); err != nil {
			return err
		}
		if err := tx.Reservation.Update(ctx, res); err != nil {
			return err
		}
		return tx.Seat.ConfirmSold(ctx, evt.SeatID, now)
	})
	if err != nil {
		return err
	}

	if alreadyConfirmed {
		s.log.Debug("Reservation already confirmed", zap.String("payment_key", evt.PaymentKey))
		return nil
	}

	s.log.Info("Reservation confirmed",
		zap.String("payment_key", evt.PaymentKey),
		zap.Int64("seat_id", evt.SeatID),
		zap.String("buyer_id", evt.BuyerID.String()),
	)
	return nil
}

// missingReservation decides what a completed payment without a live
// reservation means. A refund that ran before the event was consumed is
// fine; anything else is a paid seat with no reservation.
func (s *reservationService) missingReservation(ctx context.Context, tx *repository.Repository, evt event.PaymentCompletedEvent) error {
	payment, err := tx.Payment.FindByPaymentKey(ctx, evt.PaymentKey)
	if err != nil {
		return err
	}
	if payment != nil && payment.Status != entity.PaymentStatusPaid {
		s.log.Info("Skipping confirmation for cancelled payment",
			zap.String("payment_key", evt.PaymentKey),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	s.log.Error("Paid seat has no live reservation",
		zap.Bool("alert", true),
		zap.String("payment_key", evt.PaymentKey),
		zap.Int64("seat_id", evt.SeatID),
		zap.String("buyer_id", evt.BuyerID.String()),
	)
	return apperror.ErrReservationNotFound.WithMessage("no live reservation for payment %s", evt.PaymentKey)
}

func (s *reservationService) ReleaseExpiredHolds(ctx context.Context, limit int) (int, error) {
	holds, err := s.repo.Reservation.FindExpiredHolds(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, hold := range holds {
		ok, err := s.releaseHold(ctx, hold.ID)
		if err != nil {
			s.log.Warn("Failed to release expired hold",
				zap.Error(err),
				zap.Int64("reservation_id", hold.ID),
				zap.Int64("seat_id", hold.SeatID),
			)
			continue
		}
		if ok {
			released++
		}
	}

	return released, nil
}

// releaseHold re-checks the hold under its row lock; a verification may
// have approved the payment since it was listed.
func (s *reservationService) releaseHold(ctx context.Context, reservationID int64) (bool, error) {
	released := false

	err := s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		res, err := tx.Reservation.FindByIDForUpdate(ctx, reservationID)
		if err != nil || res == nil {
			return err
		}

		now := s.clock.Now()
		if !res.HoldExpired(now) {
			return nil
		}

		paid, err := tx.Payment.ExistsPaidForSeat(ctx, res.SeatID)
		if err != nil || paid {
			return err
		}

		if err := res.Cancel(now); err != nil {
			return err
		}
		if err := tx.Reservation.Update(ctx, res); err != nil {
			return err
		}
		if err := tx.Seat.Release(ctx, res.SeatID, now); err != nil {
			return err
		}

		released = true
		return nil
	})

	if err != nil {
		return false, err
	}
	if released {
		s.log.Info("Expired hold released", zap.Int64("reservation_id", reservationID))
	}
	return released, nil
}
