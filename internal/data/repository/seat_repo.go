package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Seat, error)

	// Acquire must run inside a transaction; the row lock it takes is held
	// until that transaction ends.
	Acquire(ctx context.Context, seatID int64, lockTimeout time.Duration, now time.Time) (entity.AcquireResult, error)
	Release(ctx context.Context, seatID int64, now time.Time) error
	ConfirmSold(ctx context.Context, seatID int64, now time.Time) error
	Restock(ctx context.Context, seatID int64, now time.Time) error
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) FindByID(ctx context.Context, id int64) (*entity.Seat, error) {
	query := `
		SELECT id, performance_id, code, price, status, created_at, updated_at
		FROM seats
		WHERE id = $1
	`

	var seat entity.Seat
	// QueryRow returns at most one row
	err := r.db.QueryRow(ctx, query, id).Scan(
		&seat.ID,
		&seat.PerformanceID,
		&seat.Code,
		&seat.Price,
		&seat.Status,
		&seat.CreatedAt,
		&seat.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat by ID", zap.Error(err), zap.Int64("seat_id", id))
		return nil, fmt.Errorf("find seat %d: %w", id, err)
	}

	return &seat, nil
}

func (r *seatRepository) Acquire(ctx context.Context, seatID int64, lockTimeout time.Duration, now time.Time) (entity.AcquireResult, error) {
	// bounded wait for the row lock, scoped to the current transaction
	timeout := fmt.Sprintf("%dms", lockTimeout.Milliseconds())
	if _, err := r.db.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return entity.AcquireNotFound, fmt.Errorf("set lock timeout: %w", err)
	}

	var status entity.SeatStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM seats WHERE id = $1 FOR UPDATE`, seatID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.AcquireNotFound, nil
	}
	if database.IsLockTimeout(err) {
		r.log.Warn("Seat lock wait timed out", zap.Int64("seat_id", seatID), zap.Duration("timeout", lockTimeout))
		return entity.AcquireAlreadyHeld, apperror.ErrSeatBusy.Wrap(err)
	}
	if err != nil {
		r.log.Error("Failed to lock seat", zap.Error(err), zap.Int64("seat_id", seatID))
		return entity.AcquireNotFound, fmt.Errorf("lock seat %d: %w", seatID, err)
	}

	if !entity.SeatHold.Allows(status) {
		return entity.AcquireAlreadyHeld, nil
	}

	// row is locked, so the status cannot have moved since the read
	_, err = r.db.Exec(ctx,
		`UPDATE seats SET status = $2, updated_at = $3 WHERE id = $1`,
		seatID, entity.SeatHold.To, now,
	)
	if err != nil {
		r.log.Error("Failed to hold seat", zap.Error(err), zap.Int64("seat_id", seatID))
		return entity.AcquireNotFound, fmt.Errorf("hold seat %d: %w", seatID, err)
	}

	return entity.AcquireOK, nil
}

func (r *seatRepository) Release(ctx context.Context, seatID int64, now time.Time) error {
	return r.transition(ctx, seatID, entity.SeatRelease, now)
}

func (r *seatRepository) ConfirmSold(ctx context.Context, seatID int64, now time.Time) error {
	return r.transition(ctx, seatID, entity.SeatSell, now)
}

// Restock puts a refunded seat back on sale. It is the only way out of SOLD.
func (r *seatRepository) Restock(ctx context.Context, seatID int64, now time.Time) error {
	return r.transition(ctx, seatID, entity.SeatRestock, now)
}

// transition applies t only if the seat is currently in one of t.From.
func (r *seatRepository) transition(ctx context.Context, seatID int64, t entity.SeatTransition, now time.Time) error {
	query := `
		UPDATE seats
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
	`

	result, err := r.db.Exec(ctx, query, seatID, t.To, now, t.FromStrings())
	if err != nil {
		r.log.Error("Failed to update seat status",
			zap.Error(err),
			zap.Int64("seat_id", seatID),
			zap.String("transition", t.Name),
		)
		return fmt.Errorf("%s seat %d: %w", t.Name, seatID, err)
	}

	// no row means the seat was not in any of the allowed source statuses
	if result.RowsAffected() == 0 {
		return apperror.ErrInvalidSeatTransition.WithMessage("seat %d cannot %s to %s", seatID, t.Name, t.To)
	}

	return nil
}
