package tosspay

import (
	"github.com/shopspring/decimal"
)

// ChargeRequest asks the gateway to charge a previously-authorized billing
// key. OrderKey must be unique per logical charge attempt; the gateway
// deduplicates retried requests carrying the same key.
type ChargeRequest struct {
	BillingKeyRef string
	Amount        decimal.Decimal
	Currency      string
	OrderKey      string
	Description   string
}

// ChargeResult is the normalized outcome of a charge attempt. Declines,
// timeouts and provider outages all land here as Success=false with a
// reason; the adapter is the failure-containment boundary and never lets a
// transport error escape to callers.
type ChargeResult struct {
	Success          bool
	GatewayPaymentID string
	FailureReason    string
}

// chargePayload is the wire request body.
type chargePayload struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	OrderID   string `json:"orderId"`
	OrderName string `json:"orderName"`
}

// chargeResponse is the wire response body for a successful HTTP exchange.
type chargeResponse struct {
	PaymentKey string `json:"paymentKey"`
	Status     string `json:"status"`
	OrderID    string `json:"orderId"`
}

// gatewayError is the wire error body.
type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const paymentStatusDone = "DONE"
