package request

type HoldSeatRequest struct {
	SeatID int64 `json:"seat_id" validate:"required,gt=0"`
}
