package response

import (
	"time"

	"ticket-booking/internal/data/entity"
)

type PaymentResponse struct {
	PaymentKey   string               `json:"payment_key"`
	SeatID       int64                `json:"seat_id"`
	ProductName  string               `json:"product_name"`
	Amount       int64                `json:"amount"`
	Method       string               `json:"method"`
	Status       entity.PaymentStatus `json:"status"`
	ApprovedAt   *time.Time           `json:"approved_at,omitempty"`
	ReceiptURL   *string              `json:"receipt_url,omitempty"`
	CanceledAt   *time.Time           `json:"canceled_at,omitempty"`
	CancelReason *string              `json:"cancel_reason,omitempty"`
	// ExpiresAt is set on pre-registration: verify before this instant.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func PaymentToResponse(p *entity.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentKey:   p.PaymentKey,
		SeatID:       p.SeatID,
		ProductName:  p.ProductName,
		Amount:       p.Amount,
		Method:       p.Method,
		Status:       p.Status,
		ApprovedAt:   p.ApprovedAt,
		ReceiptURL:   p.ReceiptURL,
		CanceledAt:   p.CanceledAt,
		CancelReason: p.CancelReason,
		CreatedAt:    p.CreatedAt,
	}
}
