// Package gateway talks to the external payment gateway (PG). The PG is the
// authority on whether money moved; nothing here decides whether a charge
// is acceptable.
package gateway

import (
	"context"
	"time"
)

// StatusPaid is the only PG status that means the charge completed.
const StatusPaid = "PAID"

// Charge is the PG's record of a payment key.
type Charge struct {
	PaymentKey  string    `json:"paymentKey"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	Amount      int64     `json:"totalAmount"`
	BuyerID     string    `json:"customerKey"`
	ReceiptURL  string    `json:"receiptUrl"`
	RequestedAt time.Time `json:"requestedAt"`
	PaidAt      time.Time `json:"approvedAt"`
}

type Client interface {
	GetCharge(ctx context.Context, paymentKey string) (*Charge, error)
	CancelCharge(ctx context.Context, paymentKey, reason string) error
}
