package payment

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/types"
)

// Payment is one charge attempt against a subscription. Scheduled attempts
// write a PENDING entry before contacting the gateway and resolve it to
// SUCCESS or FAILED afterwards; entries are never deleted, and the dunning
// policy reads them as the audit trail of recent outcomes.
type Payment struct {
	ID             string              `json:"id" gorm:"column:id;primaryKey"`
	OwnerID        string              `json:"owner_id" gorm:"column:owner_id;index"`
	SubscriptionID string              `json:"subscription_id" gorm:"column:subscription_id;index"`
	BillingKeyID   string              `json:"billing_key_id" gorm:"column:billing_key_id"`
	OrderKey       string              `json:"order_key" gorm:"column:order_key;uniqueIndex"`
	Amount         decimal.Decimal     `json:"amount" gorm:"column:amount;type:numeric(20,4)"`
	Currency       string              `json:"currency" gorm:"column:currency"`
	BillingCycle   types.BillingCycle  `json:"billing_cycle" gorm:"column:billing_cycle"`
	PaymentStatus  types.PaymentStatus `json:"payment_status" gorm:"column:payment_status"`
	FailureReason  string              `json:"failure_reason,omitempty" gorm:"column:failure_reason"`
	PaidAt         *time.Time          `json:"paid_at,omitempty" gorm:"column:paid_at"`
	NextRetryAt    *time.Time          `json:"next_retry_at,omitempty" gorm:"column:next_retry_at"`
	types.BaseModel
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) Validate() error {
	if p.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").Mark(ierr.ErrValidation)
	}
	if p.OrderKey == "" {
		return ierr.NewError("order_key is required").Mark(ierr.ErrValidation)
	}
	if p.Amount.IsNegative() {
		return ierr.NewError("amount must not be negative").
			WithReportableDetails(map[string]interface{}{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return p.PaymentStatus.Validate()
}
