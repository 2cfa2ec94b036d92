package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/middleware"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/reservations", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/reservations - hold a seat for the caller
		r.Post("/", reservationHandler.HoldSeat)

		// GET /api/reservations/{seatId} - the caller's live reservation
		r.Get("/{seatId}", reservationHandler.GetReservation)

		// DELETE /api/reservations/{seatId} - give up an unpaid hold
		r.Delete("/{seatId}", reservationHandler.CancelHold)
	})
}
