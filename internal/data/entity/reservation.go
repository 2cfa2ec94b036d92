package entity

import (
	"time"

	"ticket-booking/internal/apperror"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusHeld      ReservationStatus = "HELD"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is identified by (BuyerID, SeatID); ID is only the row key so
// cancelled history can be kept.
type Reservation struct {
	Timestamps
	ID            int64             `db:"id"`
	BuyerID       uuid.UUID         `db:"buyer_id"`
	SeatID        int64             `db:"seat_id"`
	Status        ReservationStatus `db:"status"`
	HeldAt        time.Time         `db:"held_at"`
	HoldExpiresAt time.Time         `db:"hold_expires_at"`
	ConfirmedAt   *time.Time        `db:"confirmed_at"`
	CancelledAt   *time.Time        `db:"cancelled_at"`
}

func NewHold(buyerID uuid.UUID, seatID int64, now time.Time, holdTTL time.Duration) *Reservation {
	return &Reservation{
		Timestamps: Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
		BuyerID:       buyerID,
		SeatID:        seatID,
		Status:        ReservationStatusHeld,
		HeldAt:        now,
		HoldExpiresAt: now.Add(holdTTL),
	}
}

func (r *Reservation) IsLive() bool {
	return r.Status == ReservationStatusHeld || r.Status == ReservationStatusConfirmed
}

func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == ReservationStatusHeld && !now.Before(r.HoldExpiresAt)
}

func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != ReservationStatusHeld {
		return apperror.ErrInvalidReservationOp.WithMessage("cannot confirm reservation in status %s", r.Status)
	}
	r.Status = ReservationStatusConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Cancel(now time.Time) error {
	if !r.IsLive() {
		return apperror.ErrInvalidReservationOp.WithMessage("reservation is already %s", r.Status)
	}
	r.Status = ReservationStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}
