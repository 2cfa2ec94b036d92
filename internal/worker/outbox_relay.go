// Package worker holds the background loops that run next to the HTTP
// server: the outbox relay, the expired hold reaper and the reservation
// confirmation listener.
package worker

import (
	"context"
	"time"

	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

const defaultOutboxBatchSize = 100

// Publisher is the broker side of the relay.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// OutboxRelay polls payment_outbox and publishes each row to the broker,
// routed by its event type. Delivery is at-least-once: a row whose publish
// succeeded but whose status update did not commit is sent again.
type OutboxRelay struct {
	repo      *repository.Repository
	publisher Publisher
	interval  time.Duration
	batchSize int
	clock     utils.Clock
	log       *zap.Logger
}

func NewOutboxRelay(repo *repository.Repository, publisher Publisher, interval time.Duration, clock utils.Clock, log *zap.Logger) *OutboxRelay {
	return &OutboxRelay{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultOutboxBatchSize,
		clock:     clock,
		log:       log.With(zap.String("worker", "outbox_relay")),
	}
}

// Run relays until ctx is cancelled.
func (w *OutboxRelay) Run(ctx context.Context) error {
	w.log.Info("Starting outbox relay", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("Outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes one batch and reports how many rows were published.
// The rows stay locked until their status is written so concurrent relays
// never pick up the same row.
func (w *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	published := 0

	err := w.repo.Tx.Transact(ctx, func(tx *repository.Repository) error {
		published = 0

		messages, err := tx.Outbox.FetchPending(ctx, w.batchSize)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := w.publisher.Publish(ctx, msg.EventType, msg.ID.String(), msg.Payload); err != nil {
				w.log.Warn("Failed to publish outbox message",
					zap.Error(err),
					zap.String("message_id", msg.ID.String()),
					zap.String("event_type", msg.EventType),
					zap.Int("retry_count", msg.RetryCount+1),
				)
				if err := tx.Outbox.MarkFailed(ctx, msg.ID, err.Error()); err != nil {
					return err
				}
				if msg.RetryCount+1 >= msg.MaxRetries {
					w.log.Error("Outbox message gave up after max retries",
						zap.Bool("alert", true),
						zap.String("message_id", msg.ID.String()),
						zap.String("aggregate_id", msg.AggregateID),
						zap.String("event_type", msg.EventType),
					)
				}
				continue
			}

			if err := tx.Outbox.MarkPublished(ctx, msg.ID, w.clock.Now()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		w.log.Debug("Outbox messages published", zap.Int("count", published))
	}
	return published, nil
}
