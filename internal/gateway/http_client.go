package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticket-booking/internal/apperror"
	"ticket-booking/pkg/telemetry"
	"ticket-booking/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HTTPClient calls the PG REST API, authenticating with the merchant
// secret key as the basic-auth user.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPClient(cfg utils.GatewayConfig, log *zap.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With(zap.String("client", "payment_gateway")),
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) GetCharge(ctx context.Context, paymentKey string) (charge *Charge, err error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.GetCharge", attribute.String("payment.key", paymentKey))
	defer func() { telemetry.EndSpan(span, err) }()

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.ErrChargeNotFound.WithMessage("payment gateway has no charge %s", paymentKey)
	case resp.StatusCode != http.StatusOK:
		return nil, c.unexpectedStatus(resp, "get charge", paymentKey)
	}

	var out Charge
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrGatewayUnavailable.Wrap(fmt.Errorf("decode charge %s: %w", paymentKey, err))
	}

	return &out, nil
}

func (c *HTTPClient) CancelCharge(ctx context.Context, paymentKey, reason string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.CancelCharge", attribute.String("payment.key", paymentKey))
	defer func() { telemetry.EndSpan(span, err) }()

	body, err := json.Marshal(map[string]string{"cancelReason": reason})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// lets the PG dedupe retried cancels
	req.Header.Set("Idempotency-Key", "cancel-"+paymentKey)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperror.ErrChargeNotFound.WithMessage("payment gateway has no charge %s", paymentKey)
	default:
		return c.unexpectedStatus(resp, "cancel charge", paymentKey)
	}
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("Payment gateway request failed",
			zap.Error(err),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, apperror.ErrGatewayUnavailable.Wrap(err)
	}

	c.log.Debug("Payment gateway request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (c *HTTPClient) unexpectedStatus(resp *http.Response, op, paymentKey string) error {
	var pgErr errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &pgErr)

	c.log.Warn("Payment gateway returned error",
		zap.String("op", op),
		zap.String("payment_key", paymentKey),
		zap.Int("status", resp.StatusCode),
		zap.String("pg_code", pgErr.Code),
		zap.String("pg_message", pgErr.Message),
	)

	return apperror.ErrGatewayUnavailable.Wrap(
		fmt.Errorf("%s %s: status %d %s", op, paymentKey, resp.StatusCode, pgErr.Code),
	)
}
