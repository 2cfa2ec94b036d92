package response

import (
	"time"

	"ticket-booking/internal/data/entity"
)

type ReservationResponse struct {
	ID            int64                    `json:"id"`
	BuyerID       string                   `json:"buyer_id"`
	SeatID        int64                    `json:"seat_id"`
	SeatCode      string                   `json:"seat_code,omitempty"`
	Price         int64                    `json:"price,omitempty"`
	Status        entity.ReservationStatus `json:"status"`
	HeldAt        time.Time                `json:"held_at"`
	HoldExpiresAt time.Time                `json:"hold_expires_at"`
	ConfirmedAt   *time.Time               `json:"confirmed_at,omitempty"`
}

func ReservationToResponse(res *entity.Reservation, seat *entity.Seat) *ReservationResponse {
	out := &ReservationResponse{
		ID:            res.ID,
		BuyerID:       res.BuyerID.String(),
		SeatID:        res.SeatID,
		Status:        res.Status,
		HeldAt:        res.HeldAt,
		HoldExpiresAt: res.HoldExpiresAt,
		ConfirmedAt:   res.ConfirmedAt,
	}
	if seat != nil {
		out.SeatCode = seat.Code
		out.Price = seat.Price
	}
	return out
}
