package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/internal/event"
	"ticket-booking/internal/mocks"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingAck captures what the listener did with each delivery.
type recordingAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue []bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(t *testing.T, ack amqp.Acknowledger, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, MessageId: uuid.NewString(), Body: raw}
}

func newTestListener(svc *mocks.ReservationService) *ConfirmationListener {
	return NewConfirmationListener(nil, svc, "reservation.confirmation", zap.NewNop())
}

func TestConfirmationListener_Handle(t *testing.T) {
	evt := event.PaymentCompletedEvent{
		PaymentID:  7,
		PaymentKey: "payment123",
		BuyerID:    uuid.New(),
		SeatID:     42,
		Amount:     10000,
		Method:     "CARD",
		ApprovedAt: testNow,
	}

	tests := []struct {
		name        string
		body        any
		confirmErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{name: "confirmed", body: evt, wantAck: true},
		{name: "transient failure requeues", body: evt, confirmErr: errors.New("lock timeout"), wantRequeue: true},
		{name: "missing reservation is dropped", body: evt, confirmErr: apperror.ErrReservationNotFound},
		{name: "malformed body is dropped", body: []byte("{not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.ReservationService)
			svc.On("ConfirmReservation", mock.Anything, mock.MatchedBy(func(e event.PaymentCompletedEvent) bool {
				return e.PaymentKey == evt.PaymentKey && e.BuyerID == evt.BuyerID && e.SeatID == evt.SeatID
			})).Return(tt.confirmErr)
			ack := &recordingAck{}

			newTestListener(svc).handle(context.Background(), delivery(t, ack, tt.body))

			if tt.wantAck {
				assert.Equal(t, 1, ack.acked)
				assert.Zero(t, ack.nacked)
				return
			}
			assert.Zero(t, ack.acked)
			require.Len(t, ack.requeue, 1)
			assert.Equal(t, tt.wantRequeue, ack.requeue[0])
		})
	}
}

func TestConfirmationListener_ServeStopsWhenStreamCloses(t *testing.T) {
	svc := new(mocks.ReservationService)
	svc.On("ConfirmReservation", mock.Anything, mock.Anything).Return(nil)
	ack := &recordingAck{}

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- delivery(t, ack, event.PaymentCompletedEvent{PaymentKey: "a", BuyerID: uuid.New(), SeatID: 1})
	deliveries <- delivery(t, ack, event.PaymentCompletedEvent{PaymentKey: "b", BuyerID: uuid.New(), SeatID: 2})
	close(deliveries)

	done := make(chan struct{})
	go func() {
		newTestListener(svc).serve(context.Background(), deliveries)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return")
	}
	assert.Equal(t, 2, ack.acked)
	svc.AssertNumberOfCalls(t, "ConfirmReservation", 2)
}
