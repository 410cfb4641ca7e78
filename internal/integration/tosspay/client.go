package tosspay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tirelane/tirelane/internal/config"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
)

const (
	maxTransportRetries = 3
	initialRetryWait    = 500 * time.Millisecond
)

// GatewayClient defines the payment gateway operations the billing engine
// consumes.
type GatewayClient interface {
	// ChargeBillingKey charges a stored billing key. The returned result is
	// always non-nil; declines and transport failures are reported through
	// it, never as an error. The error return is reserved for defects such
	// as an unserializable request.
	ChargeBillingKey(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Client calls the gateway's billing-key charge API over HTTP.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new gateway client.
func NewClient(cfg *config.Configuration, log *logger.Logger) GatewayClient {
	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.Gateway.BaseURL,
		secretKey: cfg.Gateway.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *Client) ChargeBillingKey(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.BillingKeyRef == "" {
		return nil, ierr.NewError("billing key reference is required").
			Mark(ierr.ErrValidation)
	}
	if req.OrderKey == "" {
		return nil, ierr.NewError("order key is required").
			Mark(ierr.ErrValidation)
	}

	payload := chargePayload{
		Amount:    req.Amount.Round(0).IntPart(),
		Currency:  req.Currency,
		OrderID:   req.OrderKey,
		OrderName: req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode charge request").
			Mark(ierr.ErrInternal)
	}

	c.log.Infow("charging billing key",
		"order_key", req.OrderKey,
		"amount", req.Amount.String(),
		"currency", req.Currency)

	// Transport-level failures are retried with the same order key; the
	// gateway deduplicates on orderId so a retry of the same logical
	// attempt cannot double-bill.
	var result *ChargeResult
	operation := func() error {
		var opErr error
		result, opErr = c.doCharge(ctx, req.BillingKeyRef, body)
		return opErr
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(initialRetryWait),
		), maxTransportRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		// Exhausted retries or context done: normalize to a failed charge.
		c.log.Errorw("charge transport failure",
			"order_key", req.OrderKey,
			"error", err)
		return &ChargeResult{
			Success:       false,
			FailureReason: fmt.Sprintf("gateway unreachable: %v", err),
		}, nil
	}

	if result.Success {
		c.log.Infow("charge succeeded",
			"order_key", req.OrderKey,
			"gateway_payment_id", result.GatewayPaymentID)
	} else {
		c.log.Warnw("charge declined",
			"order_key", req.OrderKey,
			"reason", result.FailureReason)
	}
	return result, nil
}

// doCharge performs one HTTP exchange. It returns an error only for
// transport-level failures worth retrying; HTTP-level declines come back as
// a failed ChargeResult and are not retried.
func (c *Client) doCharge(ctx context.Context, billingKeyRef string, body []byte) (*ChargeResult, error) {
	url := fmt.Sprintf("%s/v1/billing/%s", c.baseURL, billingKeyRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+
		base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var charge chargeResponse
		if err := json.Unmarshal(respBody, &charge); err != nil {
			return &ChargeResult{
				Success:       false,
				FailureReason: "gateway returned an unreadable response",
			}, nil
		}
		if charge.Status != paymentStatusDone {
			return &ChargeResult{
				Success:       false,
				FailureReason: fmt.Sprintf("unexpected payment status: %s", charge.Status),
			}, nil
		}
		return &ChargeResult{
			Success:          true,
			GatewayPaymentID: charge.PaymentKey,
		}, nil
	}

	// Server errors are worth one more try; client errors are final
	// declines.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var gwErr gatewayError
	reason := fmt.Sprintf("gateway returned %d", resp.StatusCode)
	if err := json.Unmarshal(respBody, &gwErr); err == nil && gwErr.Message != "" {
		reason = gwErr.Message
	}
	return &ChargeResult{
		Success:       false,
		FailureReason: reason,
	}, nil
}
