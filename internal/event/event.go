// Package event defines the messages this service publishes about payments.
package event

import (
	"strconv"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/google/uuid"
)

const (
	TopicPaymentCompleted = "payment.completed"
	TopicPaymentCancelled = "payment.cancelled"

	aggregatePayment = "payment"
)

type CancelKind string

const (
	CancelKindRefund       CancelKind = "refund"
	CancelKindCompensation CancelKind = "compensation"
)

type PaymentCompletedEvent struct {
	PaymentID  int64     `json:"payment_id"`
	PaymentKey string    `json:"payment_key"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SeatID     int64     `json:"seat_id"`
	Amount     int64     `json:"amount"`
	Method     string    `json:"method"`
	ApprovedAt time.Time `json:"approved_at"`
}

type PaymentCancelledEvent struct {
	PaymentID   int64      `json:"payment_id"`
	PaymentKey  string     `json:"payment_key"`
	BuyerID     uuid.UUID  `json:"buyer_id"`
	SeatID      int64      `json:"seat_id"`
	Amount      int64      `json:"amount"`
	Kind        CancelKind `json:"kind"`
	Reason      string     `json:"reason"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

func NewPaymentCompletedMessage(p *entity.Payment, now time.Time) (*entity.OutboxMessage, error) {
	evt := PaymentCompletedEvent{
		PaymentID:  p.ID,
		PaymentKey: p.PaymentKey,
		BuyerID:    p.BuyerID,
		SeatID:     p.SeatID,
		Amount:     p.Amount,
		Method:     p.Method,
	}
	if p.ApprovedAt != nil {
		evt.ApprovedAt = *p.ApprovedAt
	}
	return entity.NewOutboxMessage(aggregatePayment, strconv.FormatInt(p.ID, 10), TopicPaymentCompleted, evt, now)
}

func NewPaymentCancelledMessage(p *entity.Payment, kind CancelKind, now time.Time) (*entity.OutboxMessage, error) {
	evt := PaymentCancelledEvent{
		PaymentID:   p.ID,
		PaymentKey:  p.PaymentKey,
		BuyerID:     p.BuyerID,
		SeatID:      p.SeatID,
		Amount:      p.Amount,
		Kind:        kind,
		CancelledAt: now,
	}
	if p.CancelReason != nil {
		evt.Reason = *p.CancelReason
	}
	return entity.NewOutboxMessage(aggregatePayment, strconv.FormatInt(p.ID, 10), TopicPaymentCancelled, evt, now)
}
