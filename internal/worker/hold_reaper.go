package worker

import (
	"context"
	"time"

	"ticket-booking/internal/usecase"

	"go.uber.org/zap"
)

const defaultReapBatchSize = 100

// HoldReaper periodically puts seats back on sale whose hold expired
// without a completed payment.
type HoldReaper struct {
	reservations usecase.ReservationService
	interval     time.Duration
	batchSize    int
	log          *zap.Logger
}

func NewHoldReaper(reservations usecase.ReservationService, interval time.Duration, log *zap.Logger) *HoldReaper {
	return &HoldReaper{
		reservations: reservations,
		interval:     interval,
		batchSize:    defaultReapBatchSize,
		log:          log.With(zap.String("worker", "hold_reaper")),
	}
}

func (w *HoldReaper) Run(ctx context.Context) error {
	w.log.Info("Starting hold reaper", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Hold reaper stopped")
			return nil
		case <-ticker.C:
			w.ReapOnce(ctx)
		}
	}
}

// ReapOnce drains expired holds batch by batch and returns how many were
// released.
func (w *HoldReaper) ReapOnce(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		released, err := w.reservations.ReleaseExpiredHolds(ctx, w.batchSize)
		if err != nil {
			w.log.Error("Failed to release expired holds", zap.Error(err))
			break
		}
		total += released
		// a short batch means nothing is left; a batch with skipped rows
		// is picked up on the next tick
		if released < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.log.Info("Expired holds released", zap.Int("count", total))
	}
	return total
}
