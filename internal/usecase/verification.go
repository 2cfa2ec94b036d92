package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"
	"ticket-booking/internal/event"
	"ticket-booking/internal/gateway"
	"ticket-booking/pkg/telemetry"
	"ticket-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// VerifyPayment reconciles the gateway's charge with the pending claim
// check and the payment ledger, then approves the payment. Every gate is
// hard; once the gateway has confirmed a charge exists, a failed gate
// cancels it (see compensate).
func (s *paymentService) VerifyPayment(ctx context.Context, buyerID uuid.UUID, clientIP string, req *request.VerifyPaymentRequest) (out *response.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.Verify", attribute.String("payment.key", req.PaymentKey))
	defer func() { telemetry.EndSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrInvalidRequest.WithMessage("%s", utils.FormatValidationErrors(errs))
	}
	key := req.PaymentKey

	if !utils.CheckClientIP(clientIP, s.config.App.AllowPrivateClientIP) {
		s.log.Warn("Verification rejected: client ip", zap.String("payment_key", key), zap.String("client_ip", clientIP))
		return nil, apperror.ErrInvalidClientIP
	}

	pgCtx, cancel := context.WithTimeout(ctx, s.config.Gateway.Timeout)
	charge, err := s.pg.GetCharge(pgCtx, key)
	cancel()
	if err != nil {
		s.log.Warn("Verification rejected: charge lookup failed", zap.Error(err), zap.String("payment_key", key))
		if errors.Is(err, apperror.ErrChargeNotFound) {
			return nil, err
		}
		return nil, apperror.ErrVerificationFailed.
			WithMessage("payment gateway did not confirm the charge").
			Wrap(err)
	}

	// from here on money may have moved
	payment, err := s.reconcile(ctx, buyerID, clientIP, key, charge)
	if err != nil {
		if !needsCompensation(err) {
			s.log.Warn("Verification rejected", zap.Error(err), zap.String("payment_key", key))
			return nil, err
		}
		return nil, s.compensate(ctx, key, err)
	}

	s.log.Info("Payment approved",
		zap.String("payment_key", key),
		zap.Int64("amount", payment.Amount),
		zap.String("method", payment.Method),
		zap.String("buyer_id", buyerID.String()),
	)

	return response.PaymentToResponse(payment), nil
}

// needsCompensation reports whether a failed verification should cancel the
// charge. Failures of our own stores leave the claim check in place so the
// buyer can retry, and a caller who does not own the payment must not be
// able to cancel someone else's charge.
func needsCompensation(err error) bool {
	switch apperror.KindOf(err) {
	case apperror.KindReconciliation, apperror.KindNotFound:
		return true
	default:
		return false
	}
}

func (s *paymentService) reconcile(ctx context.Context, buyerID uuid.UUID, clientIP, key string, charge *gateway.Charge) (*entity.Payment, error) {
	pending, err := s.pending.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, apperror.ErrVerificationExpired
	}
	if err := matchClaim(pending, key, charge); err != nil {
		return nil, err
	}

	var approved *entity.Payment
	err = s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		payment, err := tx.Payment.FindByPaymentKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperror.ErrPaymentNotFound
		}

		now := s.clock.Now()
		if err := s.checkCharge(payment, buyerID, charge, now); err != nil {
			return err
		}

		// the hold must still be ours; the reaper takes the same row lock
		hold, err := tx.Reservation.FindLiveForUpdate(ctx, payment.BuyerID, payment.SeatID)
		if err != nil {
			return err
		}
		if hold == nil || hold.Status != entity.ReservationStatusHeld {
			return apperror.ErrReservationNotHeld
		}

		paid, err := tx.Payment.ExistsPaidForSeat(ctx, payment.SeatID)
		if err != nil {
			return err
		}
		if paid {
			return apperror.ErrSeatAlreadyPaid
		}

		if err := payment.Approve(charge.Method, charge.PaidAt, charge.ReceiptURL, clientIP, now); err != nil {
			// the charge is real at this point, so any refusal must compensate
			return apperror.ErrVerificationFailed.WithMessage("payment could not be approved").Wrap(err)
		}
		if err := tx.Payment.Update(ctx, payment); err != nil {
			return err
		}

		msg, err := event.NewPaymentCompletedMessage(payment, now)
		if err != nil {
			return err
		}
		if err := tx.Outbox.Create(ctx, msg); err != nil {
			return err
		}

		// removing the claim check last means a commit failure leaves no
		// entry, and a retry is rejected as expired
		removed, err := s.pending.Remove(ctx, key)
		if err != nil {
			return err
		}
		if !removed {
			return apperror.ErrVerificationExpired
		}

		approved = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return approved, nil
}

// matchClaim compares the gateway's charge with what the server proposed
// at pre-registration.
func matchClaim(pending *entity.PendingPayment, key string, charge *gateway.Charge) error {
	if charge.PaymentKey != key {
		return apperror.ErrVerificationFailed.WithMessage("payment gateway returned a different payment key")
	}
	if pending.Amount != charge.Amount {
		return apperror.ErrAmountMismatch
	}
	if !pending.Matches(key, charge.Amount, charge.Method) {
		return apperror.ErrMethodMismatch
	}
	return nil
}

func (s *paymentService) checkCharge(payment *entity.Payment, buyerID uuid.UUID, charge *gateway.Charge, now time.Time) error {
	if payment.BuyerID != buyerID {
		return apperror.ErrNotPaymentOwner
	}
	if payment.Status != entity.PaymentStatusPending {
		return apperror.ErrVerificationExpired.WithMessage("payment %s is already %s", payment.PaymentKey, payment.Status)
	}
	if charge.BuyerID != "" && charge.BuyerID != payment.BuyerID.String() {
		return apperror.ErrBuyerMismatch
	}
	if charge.Amount != payment.Amount {
		return apperror.ErrAmountMismatch
	}
	if charge.Status != gateway.StatusPaid {
		return apperror.ErrChargeNotPaid.WithMessage("payment gateway reports status %s", charge.Status)
	}
	if !s.paidAtPlausible(charge.PaidAt, now) {
		return apperror.ErrPaidAtOutOfWindow
	}
	if strings.TrimSpace(charge.Method) == "" {
		return apperror.ErrVerificationFailed.WithMessage("payment gateway reported no payment method")
	}
	if payment.MethodFixed() && charge.Method != payment.Method {
		return apperror.ErrMethodMismatch
	}
	return nil
}

func (s *paymentService) paidAtPlausible(paidAt, now time.Time) bool {
	if paidAt.IsZero() {
		return false
	}
	maxFuture := s.config.Reservation.PaidAtMaxFuture
	maxAge := s.config.Reservation.PaidAtMaxAge
	return !paidAt.After(now.Add(maxFuture)) && !paidAt.Before(now.Add(-maxAge))
}
