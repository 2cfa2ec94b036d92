package adaptor

import (
	"encoding/json"
	"net/http"

	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// RequestPayment handles POST /api/payments
func (h *PaymentHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.RequestPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.RequestPayment(r.Context(), buyerID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "request payment")
		return
	}

	utils.ResponseCreated(w, "Payment registered", payment)
}

// VerifyPayment handles POST /api/payments/verify, the buyer's callback
// after paying at the gateway.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.VerifyPayment(r.Context(), buyerID, utils.ClientIP(r), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "verify payment")
		return
	}

	utils.ResponseSuccess(w, "Payment approved", payment)
}

// GetPayment handles GET /api/payments/{paymentKey}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPayment(r.Context(), buyerID, utils.IsAdmin(r.Context()), chi.URLParam(r, "paymentKey"))
	if err != nil {
		handleServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// RefundPayment handles POST /api/payments/{paymentKey}/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	h.refund(w, r, false)
}

// AdminRefundPayment handles POST /api/admin/payments/{paymentKey}/refund
func (h *PaymentHandler) AdminRefundPayment(w http.ResponseWriter, r *http.Request) {
	h.refund(w, r, true)
}

func (h *PaymentHandler) refund(w http.ResponseWriter, r *http.Request, asAdmin bool) {
	actorID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.RefundPayment(r.Context(), actorID, asAdmin, chi.URLParam(r, "paymentKey"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "refund payment")
		return
	}

	utils.ResponseSuccess(w, "Payment refunded", payment)
}
