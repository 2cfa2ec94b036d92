package entity

import (
	"errors"
	"testing"
	"time"

	"ticket-booking/internal/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newPendingPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment("payment123", uuid.New(), 1, "", "Concert A-12", 10000, testNow)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	buyer := uuid.New()

	tests := []struct {
		name    string
		key     string
		buyer   uuid.UUID
		amount  int64
		wantErr error
	}{
		{name: "valid payment", key: "payment123", buyer: buyer, amount: 10000},
		{name: "missing key", key: " ", buyer: buyer, amount: 10000, wantErr: apperror.ErrInvalidRequest},
		{name: "missing buyer", key: "payment123", buyer: uuid.Nil, amount: 10000, wantErr: apperror.ErrInvalidRequest},
		{name: "zero amount", key: "payment123", buyer: buyer, amount: 0, wantErr: apperror.ErrInvalidAmount},
		{name: "negative amount", key: "payment123", buyer: buyer, amount: -500, wantErr: apperror.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(tt.key, tt.buyer, 1, "", "Concert", tt.amount, testNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PaymentStatusPending, p.Status)
			assert.Equal(t, PaymentMethodUnknown, p.Method)
			assert.False(t, p.MethodFixed())
			assert.Equal(t, tt.amount, p.Amount)
		})
	}
}

func TestPayment_Approve(t *testing.T) {
	p := newPendingPayment(t)
	paidAt := testNow.Add(-time.Minute)

	err := p.Approve("CARD", paidAt, "https://pg.example/receipt/1", "203.0.113.7", testNow)
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPaid, p.Status)
	assert.Equal(t, "CARD", p.Method)
	require.NotNil(t, p.ApprovedAt)
	assert.Equal(t, paidAt, *p.ApprovedAt)
	require.NotNil(t, p.ReceiptURL)
	assert.Equal(t, "https://pg.example/receipt/1", *p.ReceiptURL)
}

func TestPayment_ApproveTwiceFails(t *testing.T) {
	p := newPendingPayment(t)
	require.NoError(t, p.Approve("CARD", testNow, "", "", testNow))
	approvedAt := *p.ApprovedAt

	err := p.Approve("TRANSFER", testNow.Add(time.Minute), "", "", testNow)

	assert.ErrorIs(t, err, apperror.ErrPaymentNotPending)
	assert.Equal(t, "CARD", p.Method)
	assert.Equal(t, approvedAt, *p.ApprovedAt)
}

func TestPayment_ApproveGuards(t *testing.T) {
	t.Run("empty method", func(t *testing.T) {
		p := newPendingPayment(t)
		assert.ErrorIs(t, p.Approve("", testNow, "", "", testNow), apperror.ErrInvalidMethod)
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("missing approval time", func(t *testing.T) {
		p := newPendingPayment(t)
		assert.ErrorIs(t, p.Approve("CARD", time.Time{}, "", "", testNow), apperror.ErrMissingPaidAt)
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("failed payment", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.Fail("mismatch", testNow))
		assert.ErrorIs(t, p.Approve("CARD", testNow, "", "", testNow), apperror.ErrPaymentNotPending)
	})
}

func TestPayment_Refund(t *testing.T) {
	p := newPendingPayment(t)
	require.NoError(t, p.Approve("CARD", testNow, "", "", testNow))

	require.NoError(t, p.Refund("buyer request", testNow))
	assert.Equal(t, PaymentStatusCancelled, p.Status)
	require.NotNil(t, p.CanceledAt)
	assert.Equal(t, "buyer request", *p.CancelReason)

	err := p.Refund("again", testNow)
	assert.ErrorIs(t, err, apperror.ErrAlreadyCancelled)
	assert.Equal(t, "buyer request", *p.CancelReason)
}

func TestPayment_RefundRejectsUnpaid(t *testing.T) {
	pending := newPendingPayment(t)
	assert.ErrorIs(t, pending.Refund("x", testNow), apperror.ErrNotRefundable)

	failed := newPendingPayment(t)
	require.NoError(t, failed.Fail("mismatch", testNow))
	assert.ErrorIs(t, failed.Refund("x", testNow), apperror.ErrNotRefundable)
	assert.Equal(t, PaymentStatusFailed, failed.Status)
}

func TestPayment_CancelForCompensation(t *testing.T) {
	for _, setup := range []struct {
		name string
		prep func(p *Payment)
	}{
		{"from pending", func(p *Payment) {}},
		{"from failed", func(p *Payment) { _ = p.Fail("mismatch", testNow) }},
		{"from paid", func(p *Payment) { _ = p.Approve("CARD", testNow, "", "", testNow) }},
	} {
		t.Run(setup.name, func(t *testing.T) {
			p := newPendingPayment(t)
			setup.prep(p)

			p.CancelForCompensation("amount mismatch", testNow)

			assert.Equal(t, PaymentStatusCancelled, p.Status)
			assert.Equal(t, "amount mismatch", *p.CancelReason)
		})
	}
}

func TestPayment_CancelForCompensationKeepsFirstReason(t *testing.T) {
	p := newPendingPayment(t)
	p.CancelForCompensation("first", testNow)
	p.CancelForCompensation("second", testNow.Add(time.Minute))

	assert.Equal(t, "first", *p.CancelReason)
	assert.Equal(t, testNow, *p.CanceledAt)
}

func TestPayment_FailOnlyFromPending(t *testing.T) {
	p := newPendingPayment(t)
	require.NoError(t, p.Approve("CARD", testNow, "", "", testNow))

	err := p.Fail("late", testNow)
	assert.True(t, errors.Is(err, apperror.ErrPaymentNotPending))
}

func TestPendingPayment_Matches(t *testing.T) {
	claim := PendingPayment{PaymentKey: "payment123", Amount: 10000, Method: "CARD"}

	assert.True(t, claim.Matches("payment123", 10000, "CARD"))
	assert.False(t, claim.Matches("payment123", 15000, "CARD"))
	assert.False(t, claim.Matches("payment124", 10000, "CARD"))
	assert.False(t, claim.Matches("payment123", 10000, "TRANSFER"))

	open := PendingPayment{PaymentKey: "payment123", Amount: 10000, Method: PaymentMethodUnknown}
	assert.True(t, open.Matches("payment123", 10000, "TRANSFER"))
}
