package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPClient(utils.GatewayConfig{
		BaseURL:   srv.URL,
		SecretKey: "test_sk",
		Timeout:   200 * time.Millisecond,
	}, zap.NewNop())
}

func TestHTTPClient_GetCharge(t *testing.T) {
	paidAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/payment123", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test_sk", user)

		json.NewEncoder(w).Encode(map[string]any{
			"paymentKey":  "payment123",
			"status":      "PAID",
			"method":      "CARD",
			"totalAmount": 10000,
			"customerKey": "buyer-1",
			"receiptUrl":  "https://pg.example/r/1",
			"requestedAt": paidAt.Add(-time.Minute),
			"approvedAt":  paidAt,
		})
	})

	charge, err := client.GetCharge(context.Background(), "payment123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, charge.Status)
	assert.Equal(t, int64(10000), charge.Amount)
	assert.Equal(t, "CARD", charge.Method)
	assert.Equal(t, "buyer-1", charge.BuyerID)
	assert.True(t, paidAt.Equal(charge.PaidAt))
}

func TestHTTPClient_GetChargeNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetCharge(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrChargeNotFound)
}

func TestHTTPClient_GetChargeServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"PROVIDER_ERROR","message":"boom"}`))
	})

	_, err := client.GetCharge(context.Background(), "payment123")
	assert.ErrorIs(t, err, apperror.ErrGatewayUnavailable)
}

func TestHTTPClient_GetChargeTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	_, err := client.GetCharge(context.Background(), "payment123")
	assert.ErrorIs(t, err, apperror.ErrGatewayUnavailable)
}

func TestHTTPClient_CancelCharge(t *testing.T) {
	var got map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/payment123/cancel", r.URL.Path)
		assert.Equal(t, "cancel-payment123", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"paymentKey":"payment123","status":"CANCELED"}`))
	})

	err := client.CancelCharge(context.Background(), "payment123", "amount mismatch")
	require.NoError(t, err)
	assert.Equal(t, "amount mismatch", got["cancelReason"])
}

func TestHTTPClient_CancelChargeRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"ALREADY_CANCELED_PAYMENT"}`))
	})

	err := client.CancelCharge(context.Background(), "payment123", "x")
	assert.ErrorIs(t, err, apperror.ErrGatewayUnavailable)
}
