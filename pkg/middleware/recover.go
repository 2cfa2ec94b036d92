package middleware

import (
	"net/http"

	"ticket-booking/pkg/telemetry"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 envelope. http.ErrAbortHandler
// is re-raised so net/http can drop the connection quietly.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				}
				if buyerID, ok := utils.GetUserIDFromContext(r.Context()); ok {
					fields = append(fields, zap.String("user_id", buyerID.String()))
				}
				if traceID := telemetry.TraceID(r.Context()); traceID != "" {
					fields = append(fields, zap.String("trace_id", traceID))
				}
				logger.Error("handler panicked", fields...)

				utils.ResponseInternalError(w, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
