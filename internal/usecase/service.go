package usecase

import (
	"ticket-booking/internal/data/cache"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation ReservationService
	Payment     PaymentService
}

func NewService(
	repo *repository.Repository,
	pending cache.PendingPaymentCache,
	pg gateway.Client,
	config *utils.Config,
	clock utils.Clock,
	log *zap.Logger,
) *Service {
	keys := NewPaymentKeyGenerator(repo.Payment, clock, config.Reservation.KeyMaxAttempts, log)

	return &Service{
		Reservation: NewReservationService(repo, config.Reservation, clock, log),
		Payment:     NewPaymentService(repo, pending, pg, keys, config, clock, log),
	}
}
