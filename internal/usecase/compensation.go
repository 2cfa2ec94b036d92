package usecase

import (
	"context"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/event"

	"go.uber.org/zap"
)

// compensate cancels a charge that failed verification and returns the
// error the buyer should see: cause itself, or cause escalated to
// contact-support when the gateway cancel could not be completed.
//
// The payment is first claimed PENDING -> FAILED under its row lock so a
// concurrent successful verification cannot be refunded from here. PAID
// and CANCELLED payments are left alone; a FAILED one had its gateway
// cancel fail earlier and is retried.
func (s *paymentService) compensate(ctx context.Context, paymentKey string, cause error) error {
	// must run to completion even if the buyer disconnects
	ctx = context.WithoutCancel(ctx)
	reason := "verification failed: " + apperror.CodeOf(cause)

	s.log.Warn("Verification rejected, compensating",
		zap.String("payment_key", paymentKey),
		zap.String("code", apperror.CodeOf(cause)),
		zap.Error(cause),
	)

	skip := false
	err := s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		p, err := tx.Payment.FindByPaymentKeyForUpdate(ctx, paymentKey)
		if err != nil || p == nil {
			return err
		}

		switch p.Status {
		case entity.PaymentStatusPaid, entity.PaymentStatusCancelled:
			skip = true
			return nil
		case entity.PaymentStatusPending:
			if err := p.Fail(reason, s.clock.Now()); err != nil {
				return err
			}
			return tx.Payment.Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Compensation could not claim payment",
			zap.Bool("alert", true),
			zap.String("payment_key", paymentKey),
			zap.Error(err),
		)
		return apperror.Escalate(cause)
	}
	if skip {
		s.log.Info("Payment already settled, skipping compensation", zap.String("payment_key", paymentKey))
		return cause
	}

	pgCtx, cancel := context.WithTimeout(ctx, s.config.Gateway.Timeout)
	err = s.pg.CancelCharge(pgCtx, paymentKey, reason)
	cancel()
	if err != nil {
		s.log.Error("Compensation cancel failed at payment gateway",
			zap.Bool("alert", true),
			zap.String("payment_key", paymentKey),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return apperror.Escalate(cause)
	}

	err = s.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		p, err := tx.Payment.FindByPaymentKeyForUpdate(ctx, paymentKey)
		if err != nil || p == nil || p.Status == entity.PaymentStatusCancelled {
			return err
		}

		now := s.clock.Now()
		p.CancelForCompensation(reason, now)
		if err := tx.Payment.Update(ctx, p); err != nil {
			return err
		}

		msg, err := event.NewPaymentCancelledMessage(p, event.CancelKindCompensation, now)
		if err != nil {
			return err
		}
		return tx.Outbox.Create(ctx, msg)
	})
	if err != nil {
		// the charge is cancelled; only the local record lags behind
		s.log.Error("Charge cancelled but local payment not updated",
			zap.String("payment_key", paymentKey),
			zap.Error(err),
		)
	}

	return cause
}
