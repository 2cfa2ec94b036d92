package entity

import "time"

// PendingPayment is the short-lived claim check of what the server expects
// the gateway to charge for a payment key.
type PendingPayment struct {
	PaymentKey string    `json:"payment_key"`
	Amount     int64     `json:"amount"`
	Method     string    `json:"method"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Matches compares the claim against what the gateway reported.
func (p *PendingPayment) Matches(paymentKey string, amount int64, method string) bool {
	if p.PaymentKey != paymentKey || p.Amount != amount {
		return false
	}
	if p.Method == "" || p.Method == PaymentMethodUnknown {
		return true
	}
	return p.Method == method
}
