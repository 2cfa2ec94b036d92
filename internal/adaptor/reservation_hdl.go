package adaptor

import (
	"encoding/json"
	"net/http"

	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReservationHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log.With(zap.String("handler", "reservation")),
	}
}

// HoldSeat handles POST /api/reservations
func (h *ReservationHandler) HoldSeat(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.HoldSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	reservation, err := h.service.HoldSeat(r.Context(), buyerID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "hold seat")
		return
	}

	utils.ResponseCreated(w, "Seat held", reservation)
}

// CancelHold handles DELETE /api/reservations/{seatId}
func (h *ReservationHandler) CancelHold(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	seatID, ok := seatIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid seat id", nil)
		return
	}

	if err := h.service.CancelHold(r.Context(), buyerID, seatID); err != nil {
		handleServiceError(w, h.log, err, "cancel hold")
		return
	}

	utils.ResponseSuccess(w, "Hold cancelled", nil)
}

// GetReservation handles GET /api/reservations/{seatId}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	seatID, ok := seatIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid seat id", nil)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), buyerID, seatID)
	if err != nil {
		handleServiceError(w, h.log, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}
