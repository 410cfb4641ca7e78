package dto

import (
	"time"

	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	"github.com/tirelane/tirelane/internal/types"
	"github.com/tirelane/tirelane/internal/validator"
)

// CreateSubscriptionRequest selects or changes the caller's plan. The same
// request covers first subscription, upgrade and downgrade; the service
// updates in place when a subscription already exists.
type CreateSubscriptionRequest struct {
	Plan         string `json:"plan" validate:"required"`
	BillingCycle string `json:"billingCycle" validate:"required"`
	BillingKeyID string `json:"billingKeyId,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := types.PlanTier(r.Plan).Validate(); err != nil {
		return err
	}
	return types.BillingCycle(r.BillingCycle).Validate()
}

type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	Message        string `json:"message"`
}

type CancelSubscriptionResponse struct {
	Message string `json:"message"`
}

// SubscriptionResponse is the read shape of a subscription.
type SubscriptionResponse struct {
	ID                 string     `json:"id"`
	PlanTier           string     `json:"plan"`
	BillingCycle       string     `json:"billingCycle"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	NextBillingDate    time.Time  `json:"nextBillingDate"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
}

// NewSubscriptionResponse converts a domain subscription to its read shape.
func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                 sub.ID,
		PlanTier:           sub.PlanTier.String(),
		BillingCycle:       sub.BillingCycle.String(),
		Status:             sub.SubscriptionStatus.String(),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		NextBillingDate:    sub.NextBillingDate,
		CanceledAt:         sub.CanceledAt,
	}
}

// BillingKeyResponse is the read shape of a stored payment instrument. The
// gateway-side token never leaves the server.
type BillingKeyResponse struct {
	ID        string `json:"id"`
	CardBrand string `json:"cardBrand"`
	CardLast4 string `json:"cardLast4"`
	IsDefault bool   `json:"isDefault"`
}

type ListBillingKeysResponse struct {
	Items []*BillingKeyResponse `json:"items"`
}

// NewBillingKeyResponse converts a domain billing key to its read shape.
func NewBillingKeyResponse(key *billingkey.BillingKey) *BillingKeyResponse {
	if key == nil {
		return nil
	}
	return &BillingKeyResponse{
		ID:        key.ID,
		CardBrand: key.CardBrand,
		CardLast4: key.CardLast4,
		IsDefault: key.IsDefault,
	}
}
