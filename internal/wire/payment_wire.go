package wire

import (
	"ticket-booking/internal/adaptor"
	"ticket-booking/internal/data/repository"
	"ticket-booking/pkg/middleware"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== BUYER ROUTES ====================
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/payments - pre-register a payment for a held seat
		r.Post("/", paymentHandler.RequestPayment)

		// POST /api/payments/verify - callback after paying at the gateway
		r.Post("/verify", paymentHandler.VerifyPayment)

		r.Get("/{paymentKey}", paymentHandler.GetPayment)
		r.Post("/{paymentKey}/refund", paymentHandler.RefundPayment)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/payments", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.Admin(log))

		// POST /api/admin/payments/{paymentKey}/refund - refund any payment
		r.Post("/{paymentKey}/refund", paymentHandler.AdminRefundPayment)
	})
}
