package request

// RequestPaymentRequest pre-registers a payment for a held seat. Method is
// optional; when empty the instrument reported by the gateway is accepted.
type RequestPaymentRequest struct {
	SeatID int64  `json:"seat_id" validate:"required,gt=0"`
	Method string `json:"method" validate:"omitempty,oneof=CARD TRANSFER VIRTUAL_ACCOUNT MOBILE_PHONE EASY_PAY"`
}

type VerifyPaymentRequest struct {
	PaymentKey string `json:"payment_key" validate:"required,max=64"`
}

type RefundPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=200"`
}
