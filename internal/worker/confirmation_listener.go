package worker

import (
	"context"
	"encoding/json"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/event"
	"ticket-booking/internal/usecase"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultPrefetch   = 20
	maxConsumeBackoff = 30 * time.Second
)

// Consumer opens a delivery stream for a queue bound to routingKey.
type Consumer interface {
	Consume(queue, routingKey string, prefetch int) (<-chan amqp.Delivery, *amqp.Channel, error)
}

// ConfirmationListener consumes payment.completed events and confirms the
// matching reservation.
type ConfirmationListener struct {
	consumer     Consumer
	reservations usecase.ReservationService
	queue        string
	prefetch     int
	log          *zap.Logger
}

func NewConfirmationListener(consumer Consumer, reservations usecase.ReservationService, queue string, log *zap.Logger) *ConfirmationListener {
	return &ConfirmationListener{
		consumer:     consumer,
		reservations: reservations,
		queue:        queue,
		prefetch:     defaultPrefetch,
		log:          log.With(zap.String("worker", "confirmation_listener"), zap.String("queue", queue)),
	}
}

// Run consumes until ctx is cancelled, reopening the channel with backoff
// whenever the broker closes it.
func (l *ConfirmationListener) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		deliveries, ch, err := l.consumer.Consume(l.queue, event.TopicPaymentCompleted, l.prefetch)
		if err != nil {
			l.log.Error("Failed to start consuming", zap.Error(err), zap.Duration("retry_in", backoff))
		} else {
			backoff = time.Second
			l.log.Info("Consuming payment completions")
			l.serve(ctx, deliveries)
			_ = ch.Close()
		}

		if ctx.Err() != nil {
			l.log.Info("Confirmation listener stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < maxConsumeBackoff {
			backoff *= 2
		}
	}
}

// serve handles deliveries until the stream closes or ctx is cancelled.
func (l *ConfirmationListener) serve(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				l.log.Warn("Delivery channel closed")
				return
			}
			l.handle(ctx, d)
		}
	}
}

func (l *ConfirmationListener) handle(ctx context.Context, d amqp.Delivery) {
	var evt event.PaymentCompletedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		l.log.Error("Dropping malformed payment event", zap.Error(err), zap.String("message_id", d.MessageId))
		_ = d.Nack(false, false)
		return
	}

	err := l.reservations.ConfirmReservation(ctx, evt)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case apperror.KindOf(err) == apperror.KindNotFound:
		// already alerted on; redelivery cannot fix it
		_ = d.Nack(false, false)
	default:
		l.log.Warn("Failed to confirm reservation, requeueing",
			zap.Error(err),
			zap.String("payment_key", evt.PaymentKey),
			zap.String("message_id", d.MessageId),
		)
		_ = d.Nack(false, true)
	}
}
