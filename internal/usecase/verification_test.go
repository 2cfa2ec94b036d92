package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/event"
	"ticket-booking/internal/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func paidCharge(buyerID uuid.UUID, amount int64) *gateway.Charge {
	return &gateway.Charge{
		PaymentKey: testPaymentKey,
		Status:     gateway.StatusPaid,
		Method:     "CARD",
		Amount:     amount,
		BuyerID:    buyerID.String(),
		ReceiptURL: "https://pg.example/receipt/payment123",
		PaidAt:     testNow,
	}
}

func claimCheck(amount int64) *entity.PendingPayment {
	return &entity.PendingPayment{
		PaymentKey: testPaymentKey,
		Amount:     amount,
		Method:     entity.PaymentMethodUnknown,
		ExpiresAt:  testNow.Add(25 * time.Minute),
	}
}

func outboxOf(topic string) any {
	return mock.MatchedBy(func(m *entity.OutboxMessage) bool { return m.EventType == topic })
}

// expectCompensation sets up the two local transactions and the gateway
// cancel that follow a rejected charge.
func expectCompensation(f *paymentFixture, payment *entity.Payment, code string) {
	f.repos.Payment.On("FindByPaymentKeyForUpdate", mock.Anything, testPaymentKey).Return(payment, nil)
	f.repos.Payment.On("Update", mock.Anything, payment).Return(nil)
	f.pg.On("CancelCharge", mock.Anything, testPaymentKey, "verification failed: "+code).Return(nil).Once()
	f.repos.Outbox.On("Create", mock.Anything, outboxOf(event.TopicPaymentCancelled)).Return(nil).Once()
}

func verify(f *paymentFixture, buyerID uuid.UUID) error {
	_, err := f.svc.VerifyPayment(context.Background(), buyerID, testClientIP, &request.VerifyPaymentRequest{PaymentKey: testPaymentKey})
	return err
}

func TestVerifyPayment_Approves(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := pendingPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(claimCheck(10000), nil)
	f.repos.Payment.On("FindByPaymentKeyForUpdate", mock.Anything, testPaymentKey).Return(payment, nil)
	f.repos.Reservation.On("FindLiveForUpdate", mock.Anything, buyer, testSeatID).Return(heldReservation(buyer), nil)
	f.repos.Payment.On("ExistsPaidForSeat", mock.Anything, testSeatID).Return(false, nil)
	f.repos.Payment.On("Update", mock.Anything, payment).Return(nil)
	f.repos.Outbox.On("Create", mock.Anything, outboxOf(event.TopicPaymentCompleted)).Return(nil)
	f.pending.On("Remove", mock.Anything, testPaymentKey).Return(true, nil)

	out, err := f.svc.VerifyPayment(context.Background(), buyer, testClientIP, &request.VerifyPaymentRequest{PaymentKey: testPaymentKey})

	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, out.Status)
	assert.Equal(t, int64(10000), out.Amount)
	assert.Equal(t, "CARD", out.Method)
	require.NotNil(t, out.ApprovedAt)
	assert.Equal(t, testNow, *out.ApprovedAt)
	require.NotNil(t, payment.ClientIP)
	assert.Equal(t, testClientIP, *payment.ClientIP)
	f.pg.AssertNotCalled(t, "CancelCharge", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_AmountMismatchCancelsCharge(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := pendingPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 15000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(claimCheck(10000), nil)
	expectCompensation(f, payment, "AMOUNT_MISMATCH")

	err := verify(f, buyer)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrAmountMismatch))
	assert.False(t, apperror.IsEscalated(err))
	assert.Equal(t, entity.PaymentStatusCancelled, payment.Status)
	require.NotNil(t, payment.CancelReason)
	assert.Equal(t, "verification failed: AMOUNT_MISMATCH", *payment.CancelReason)
	f.pending.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_RejectedChargesAreCancelled(t *testing.T) {
	buyer := uuid.New()

	withMethod := func(method string) func(*gateway.Charge) {
		return func(c *gateway.Charge) { c.Method = method }
	}

	tests := []struct {
		name    string
		charge  func(*gateway.Charge)
		claim   *entity.PendingPayment
		payment func() *entity.Payment
		want    *apperror.Error
	}{
		{
			name:   "not paid",
			charge: func(c *gateway.Charge) { c.Status = "WAITING_FOR_DEPOSIT" },
			want:   apperror.ErrChargeNotPaid,
		},
		{
			name:   "paid too far in the future",
			charge: func(c *gateway.Charge) { c.PaidAt = testNow.Add(6 * time.Minute) },
			want:   apperror.ErrPaidAtOutOfWindow,
		},
		{
			name:   "paid too long ago",
			charge: func(c *gateway.Charge) { c.PaidAt = testNow.Add(-61 * time.Minute) },
			want:   apperror.ErrPaidAtOutOfWindow,
		},
		{
			name:   "gateway reports another buyer",
			charge: func(c *gateway.Charge) { c.BuyerID = uuid.NewString() },
			want:   apperror.ErrBuyerMismatch,
		},
		{
			name:   "gateway reports no method",
			charge: withMethod(""),
			want:   apperror.ErrVerificationFailed,
		},
		{
			name:   "gateway reports blank method",
			charge: withMethod("  "),
			want:   apperror.ErrVerificationFailed,
		},
		{
			name: "claim matches but ledger amount differs",
			payment: func() *entity.Payment {
				return pendingPayment(buyer, 12000)
			},
			want: apperror.ErrAmountMismatch,
		},
		{
			name:   "claim registered another method",
			charge: withMethod("TRANSFER"),
			claim: func() *entity.PendingPayment {
				c := claimCheck(10000)
				c.Method = "CARD"
				return c
			}(),
			want: apperror.ErrMethodMismatch,
		},
		{
			name:   "ledger registered another method",
			charge: withMethod("TRANSFER"),
			payment: func() *entity.Payment {
				p := pendingPayment(buyer, 10000)
				p.Method = "CARD"
				return p
			},
			want: apperror.ErrMethodMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()

			payment := pendingPayment(buyer, 10000)
			if tt.payment != nil {
				payment = tt.payment()
			}
			claim := claimCheck(10000)
			if tt.claim != nil {
				claim = tt.claim
			}
			charge := paidCharge(buyer, 10000)
			if tt.charge != nil {
				tt.charge(charge)
			}

			f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(charge, nil)
			f.pending.On("Get", mock.Anything, testPaymentKey).Return(claim, nil)
			expectCompensation(f, payment, tt.want.Code)

			err := verify(f, buyer)

			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.False(t, apperror.IsEscalated(err))
			assert.Equal(t, entity.PaymentStatusCancelled, payment.Status)
			assert.Nil(t, payment.ApprovedAt)
			f.pending.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestVerifyPayment_ExpiredClaimCheckCancelsCharge(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := pendingPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(nil, nil)
	expectCompensation(f, payment, "VERIFICATION_EXPIRED")

	err := verify(f, buyer)

	assert.True(t, errors.Is(err, apperror.ErrVerificationExpired))
	assert.Equal(t, entity.PaymentStatusCancelled, payment.Status)
	f.assertExpectations(t)
}

func TestVerifyPayment_ReplayAfterApprovalKeepsCharge(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := paidPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(nil, nil)
	f.repos.Payment.On("FindByPaymentKeyForUpdate", mock.Anything, testPaymentKey).Return(payment, nil)

	err := verify(f, buyer)

	assert.True(t, errors.Is(err, apperror.ErrVerificationExpired))
	assert.Equal(t, entity.PaymentStatusPaid, payment.Status)
	f.pg.AssertNotCalled(t, "CancelCharge", mock.Anything, mock.Anything, mock.Anything)
	f.repos.Payment.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_OtherBuyerCannotTriggerCancel(t *testing.T) {
	f := newPaymentFixture()
	owner := uuid.New()
	caller := uuid.New()
	payment := pendingPayment(owner, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(owner, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(claimCheck(10000), nil)
	f.repos.Payment.On("FindByPaymentKeyForUpdate", mock.Anything, testPaymentKey).Return(payment, nil)

	err := verify(f, caller)

	assert.True(t, errors.Is(err, apperror.ErrNotPaymentOwner))
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	f.pg.AssertNotCalled(t, "CancelCharge", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_HoldReleasedCancelsCharge(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := pendingPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(claimCheck(10000), nil)
	f.repos.Reservation.On("FindLiveForUpdate", mock.Anything, buyer, testSeatID).Return(nil, nil)
	expectCompensation(f, payment, "RESERVATION_NOT_HELD")

	err := verify(f, buyer)

	assert.True(t, errors.Is(err, apperror.ErrReservationNotHeld))
	assert.Equal(t, entity.PaymentStatusCancelled, payment.Status)
	f.assertExpectations(t)
}

func TestVerifyPayment_GatewayCancelFailureEscalates(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()
	payment := pendingPayment(buyer, 10000)

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 15000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(claimCheck(10000), nil)
	f.repos.Payment.On("FindByPaymentKeyForUpdate", mock.Anything, testPaymentKey).Return(payment, nil)
	f.repos.Payment.On("Update", mock.Anything, payment).Return(nil)
	f.pg.On("CancelCharge", mock.Anything, testPaymentKey, mock.Anything).
		Return(apperror.ErrGatewayUnavailable.Wrap(errors.New("503")))

	err := verify(f, buyer)

	require.Error(t, err)
	assert.True(t, apperror.IsEscalated(err))
	assert.True(t, errors.Is(err, apperror.ErrAmountMismatch))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ActionContactSupport, appErr.Action())

	// claimed as FAILED so a later retry of the cancel picks it up
	assert.Equal(t, entity.PaymentStatusFailed, payment.Status)
	f.repos.Outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_ChargeLookupFailures(t *testing.T) {
	buyer := uuid.New()

	t.Run("gateway down is not compensated", func(t *testing.T) {
		f := newPaymentFixture()
		f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(nil, apperror.ErrGatewayUnavailable)

		err := verify(f, buyer)

		assert.True(t, errors.Is(err, apperror.ErrVerificationFailed))
		assert.True(t, errors.Is(err, apperror.ErrGatewayUnavailable))
		f.pending.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("unknown charge", func(t *testing.T) {
		f := newPaymentFixture()
		f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(nil, apperror.ErrChargeNotFound)

		err := verify(f, buyer)

		assert.True(t, errors.Is(err, apperror.ErrChargeNotFound))
		f.pg.AssertNotCalled(t, "CancelCharge", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestVerifyPayment_CacheOutageLeavesClaimForRetry(t *testing.T) {
	f := newPaymentFixture()
	buyer := uuid.New()

	f.pg.On("GetCharge", mock.Anything, testPaymentKey).Return(paidCharge(buyer, 10000), nil)
	f.pending.On("Get", mock.Anything, testPaymentKey).Return(nil, apperror.ErrCacheUnavailable)

	err := verify(f, buyer)

	assert.True(t, errors.Is(err, apperror.ErrCacheUnavailable))
	f.pg.AssertNotCalled(t, "CancelCharge", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestVerifyPayment_RejectsBadInput(t *testing.T) {
	buyer := uuid.New()

	t.Run("private client ip", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.VerifyPayment(context.Background(), buyer, "10.0.0.7", &request.VerifyPaymentRequest{PaymentKey: testPaymentKey})
		assert.True(t, errors.Is(err, apperror.ErrInvalidClientIP))
		f.pg.AssertNotCalled(t, "GetCharge", mock.Anything, mock.Anything)
	})

	t.Run("forwarded chain", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.VerifyPayment(context.Background(), buyer, "203.0.113.10, 198.51.100.2", &request.VerifyPaymentRequest{PaymentKey: testPaymentKey})
		assert.True(t, errors.Is(err, apperror.ErrInvalidClientIP))
	})

	t.Run("missing key", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.VerifyPayment(context.Background(), buyer, testClientIP, &request.VerifyPaymentRequest{})
		assert.True(t, errors.Is(err, apperror.ErrInvalidRequest))
	})
}

func TestPaidAtPlausible(t *testing.T) {
	f := newPaymentFixture()

	tests := []struct {
		name   string
		paidAt time.Time
		want   bool
	}{
		{"now", testNow, true},
		{"edge of future skew", testNow.Add(5 * time.Minute), true},
		{"past future skew", testNow.Add(5*time.Minute + time.Second), false},
		{"edge of max age", testNow.Add(-time.Hour), true},
		{"older than max age", testNow.Add(-time.Hour - time.Second), false},
		{"zero", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.svc.paidAtPlausible(tt.paidAt, testNow))
		})
	}
}
