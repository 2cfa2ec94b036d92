package event

import (
	"encoding/json"
	"testing"
	"time"

	"ticket-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentCompletedMessage(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	p, err := entity.NewPayment("payment123", uuid.New(), 7, "", "Seat A-7", 10000, now)
	require.NoError(t, err)
	p.ID = 42
	require.NoError(t, p.Approve("CARD", now, "", "", now))

	msg, err := NewPaymentCompletedMessage(p, now)
	require.NoError(t, err)

	assert.Equal(t, TopicPaymentCompleted, msg.EventType)
	assert.Equal(t, "payment", msg.AggregateType)
	assert.Equal(t, "42", msg.AggregateID)
	assert.Equal(t, entity.OutboxStatusPending, msg.Status)

	var evt PaymentCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, p.BuyerID, evt.BuyerID)
	assert.Equal(t, int64(7), evt.SeatID)
	assert.Equal(t, int64(10000), evt.Amount)
	assert.Equal(t, "CARD", evt.Method)
}

func TestNewPaymentCancelledMessage(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	p, err := entity.NewPayment("payment123", uuid.New(), 7, "", "Seat A-7", 10000, now)
	require.NoError(t, err)
	p.CancelForCompensation("AMOUNT_MISMATCH", now)

	msg, err := NewPaymentCancelledMessage(p, CancelKindCompensation, now)
	require.NoError(t, err)

	var evt PaymentCancelledEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, TopicPaymentCancelled, msg.EventType)
	assert.Equal(t, CancelKindCompensation, evt.Kind)
	assert.Equal(t, "AMOUNT_MISMATCH", evt.Reason)
}
