package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	CreateHold(ctx context.Context, reservation *entity.Reservation) error
	FindLive(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error)
	FindLiveForUpdate(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.Reservation, error)
	Update(ctx context.Context, reservation *entity.Reservation) error

	// Business queries
	// FindExpiredHolds lists HELD reservations past their expiry that
	// have no PAID payment for their seat.
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `id, buyer_id, seat_id, status, held_at, hold_expires_at, confirmed_at, cancelled_at, created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	err := row.Scan(
		&res.ID,
		&res.BuyerID,
		&res.SeatID,
		&res.Status,
		&res.HeldAt,
		&res.HoldExpiresAt,
		&res.ConfirmedAt,
		&res.CancelledAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) CreateHold(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (buyer_id, seat_id, status, held_at, hold_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		res.BuyerID,
		res.SeatID,
		res.Status,
		res.HeldAt,
		res.HoldExpiresAt,
		res.CreatedAt,
		res.UpdatedAt,
	).Scan(&res.ID)

	if database.IsUniqueViolation(err) {
		return apperror.ErrSeatAlreadyHeld.Wrap(err)
	}
	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("buyer_id", res.BuyerID.String()),
			zap.Int64("seat_id", res.SeatID),
		)
		return fmt.Errorf("create reservation for seat %d: %w", res.SeatID, err)
	}

	return nil
}

func (r *reservationRepository) FindLive(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error) {
	return r.findLive(ctx, buyerID, seatID, "")
}

func (r *reservationRepository) FindLiveForUpdate(ctx context.Context, buyerID uuid.UUID, seatID int64) (*entity.Reservation, error) {
	return r.findLive(ctx, buyerID, seatID, "FOR UPDATE")
}

func (r *reservationRepository) findLive(ctx context.Context, buyerID uuid.UUID, seatID int64, lock string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE buyer_id = $1 AND seat_id = $2 AND status IN ('HELD', 'CONFIRMED')
		` + lock

	res, err := scanReservation(r.db.QueryRow(ctx, query, buyerID, seatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find live reservation",
			zap.Error(err),
			zap.String("buyer_id", buyerID.String()),
			zap.Int64("seat_id", seatID),
		)
		return nil, fmt.Errorf("find reservation for seat %d: %w", seatID, err)
	}

	return res, nil
}

func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock reservation", zap.Error(err), zap.Int64("reservation_id", id))
		return nil, fmt.Errorf("lock reservation %d: %w", id, err)
	}

	return res, nil
}

func (r *reservationRepository) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $2, confirmed_at = $3, cancelled_at = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		res.ID,
		res.Status,
		res.ConfirmedAt,
		res.CancelledAt,
		res.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update reservation",
			zap.Error(err),
			zap.Int64("reservation_id", res.ID),
			zap.String("status", string(res.Status)),
		)
		return fmt.Errorf("update reservation %d: %w", res.ID, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrReservationNotFound
	}

	return nil
}

func (r *reservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations rv
		WHERE rv.status = 'HELD'
		  AND rv.hold_expires_at <= $1
		  AND NOT EXISTS (
		      SELECT 1 FROM payments p
		      WHERE p.seat_id = rv.seat_id AND p.status = 'PAID'
		  )
		ORDER BY rv.hold_expires_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired holds", zap.Error(err))
		return nil, fmt.Errorf("find expired holds: %w", err)
	}
	defer rows.Close() // hands the connection back to the pool

	var holds []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			r.log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		holds = append(holds, res)
	}

	// Check for errors during iteration, not just the query
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired holds: %w", err)
	}

	return holds, nil
}
