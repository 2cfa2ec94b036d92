package entity

import (
	"strings"
	"time"

	"ticket-booking/internal/apperror"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// PaymentMethodUnknown marks a payment whose instrument is not fixed yet;
// the gateway's reported method is accepted as-is on approval.
const PaymentMethodUnknown = "UNKNOWN"

type Payment struct {
	Timestamps
	ID           int64         `db:"id"`
	PaymentKey   string        `db:"payment_key"`
	BuyerID      uuid.UUID     `db:"buyer_id"`
	SeatID       int64         `db:"seat_id"`
	Method       string        `db:"method"`
	ProductName  string        `db:"product_name"`
	Amount       int64         `db:"amount"`
	Status       PaymentStatus `db:"status"`
	ClientIP     *string       `db:"client_ip"`
	ApprovedAt   *time.Time    `db:"approved_at"`
	ReceiptURL   *string       `db:"receipt_url"`
	CanceledAt   *time.Time    `db:"canceled_at"`
	CancelReason *string       `db:"cancel_reason"`
}

// NewPayment builds a PENDING payment. The amount is fixed here and never
// changes afterwards.
func NewPayment(paymentKey string, buyerID uuid.UUID, seatID int64, method, productName string, amount int64, now time.Time) (*Payment, error) {
	if strings.TrimSpace(paymentKey) == "" {
		return nil, apperror.ErrInvalidRequest.WithMessage("payment key is required")
	}
	if buyerID == uuid.Nil {
		return nil, apperror.ErrInvalidRequest.WithMessage("buyer id is required")
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = PaymentMethodUnknown
	}

	return &Payment{
		Timestamps: Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
		PaymentKey:  paymentKey,
		BuyerID:     buyerID,
		SeatID:      seatID,
		Method:      method,
		ProductName: productName,
		Amount:      amount,
		Status:      PaymentStatusPending,
	}, nil
}

// MethodFixed reports whether the instrument was chosen at registration.
func (p *Payment) MethodFixed() bool {
	return p.Method != "" && p.Method != PaymentMethodUnknown
}

// Approve moves PENDING to PAID. A second call always fails.
func (p *Payment) Approve(method string, approvedAt time.Time, receiptURL, clientIP string, now time.Time) error {
	if strings.TrimSpace(method) == "" {
		return apperror.ErrInvalidMethod
	}
	if approvedAt.IsZero() {
		return apperror.ErrMissingPaidAt
	}
	if p.Status != PaymentStatusPending {
		return apperror.ErrPaymentNotPending.WithMessage("payment %s is %s", p.PaymentKey, p.Status)
	}

	p.Status = PaymentStatusPaid
	p.Method = method
	p.ApprovedAt = &approvedAt
	if receiptURL != "" {
		p.ReceiptURL = &receiptURL
	}
	if clientIP != "" {
		p.ClientIP = &clientIP
	}
	p.UpdatedAt = now
	return nil
}

// Fail moves PENDING to FAILED. Used when a charge failed reconciliation and
// the gateway refund has not been confirmed yet.
func (p *Payment) Fail(reason string, now time.Time) error {
	if p.Status != PaymentStatusPending {
		return apperror.ErrPaymentNotPending.WithMessage("payment %s is %s", p.PaymentKey, p.Status)
	}
	p.Status = PaymentStatusFailed
	p.CancelReason = &reason
	p.UpdatedAt = now
	return nil
}

// CheckRefundable reports whether Refund would succeed, without mutating.
func (p *Payment) CheckRefundable() error {
	switch p.Status {
	case PaymentStatusPaid:
		return nil
	case PaymentStatusCancelled:
		return apperror.ErrAlreadyCancelled
	default:
		return apperror.ErrNotRefundable.WithMessage("payment %s is %s", p.PaymentKey, p.Status)
	}
}

// Refund cancels a PAID payment.
func (p *Payment) Refund(reason string, now time.Time) error {
	if err := p.CheckRefundable(); err != nil {
		return err
	}
	p.markCancelled(reason, now)
	return nil
}

// CancelForCompensation cancels from any non-cancelled status. It is only
// used to clean up after a failed reconciliation; cancelling twice is a no-op.
func (p *Payment) CancelForCompensation(reason string, now time.Time) {
	if p.Status == PaymentStatusCancelled {
		return
	}
	p.markCancelled(reason, now)
}

func (p *Payment) markCancelled(reason string, now time.Time) {
	p.Status = PaymentStatusCancelled
	p.CancelReason = &reason
	p.CanceledAt = &now
	p.UpdatedAt = now
}
