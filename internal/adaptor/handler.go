package adaptor

import (
	"net/http"
	"strconv"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/usecase"
	"ticket-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Reservation *ReservationHandler
	Payment     *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Reservation: NewReservationHandler(service.Reservation, log),
		Payment:     NewPaymentHandler(service.Payment, log),
	}
}

// handleServiceError logs err at a level matching its kind and writes the
// mapped response.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("operation", operation),
		zap.String("code", apperror.CodeOf(err)),
	}

	switch kind := apperror.KindOf(err); {
	case apperror.IsEscalated(err), kind == "", kind == apperror.KindInternal:
		log.Error(operation+" failed", fields...)
	case kind == apperror.KindExternal, kind == apperror.KindReconciliation:
		log.Warn(operation+" failed", fields...)
	default:
		log.Info(operation+" rejected", fields...)
	}

	utils.ResponseError(w, err)
}

func seatIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "seatId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
