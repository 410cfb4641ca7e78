package subscription

import (
	"time"

	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/types"
)

// Subscription is the billing relationship between one owner and one
// (plan, cycle) pair. CurrentPeriodEnd and NextBillingDate are kept equal
// while the subscription is active; NextBillingDate is the single source of
// truth for when the daily pass picks the subscription up.
type Subscription struct {
	ID                 string                   `json:"id" gorm:"column:id;primaryKey"`
	OwnerID            string                   `json:"owner_id" gorm:"column:owner_id;uniqueIndex:idx_subscriptions_owner_live,where:subscription_status = 'ACTIVE' OR subscription_status = 'INACTIVE'"`
	PlanTier           types.PlanTier           `json:"plan_tier" gorm:"column:plan_tier"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle" gorm:"column:billing_cycle"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status" gorm:"column:subscription_status;index"`
	BillingKeyID       string                   `json:"billing_key_id" gorm:"column:billing_key_id"`
	CurrentPeriodStart time.Time                `json:"current_period_start" gorm:"column:current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end" gorm:"column:current_period_end"`
	NextBillingDate    time.Time                `json:"next_billing_date" gorm:"column:next_billing_date;index"`
	CanceledAt         *time.Time               `json:"canceled_at,omitempty" gorm:"column:canceled_at"`
	types.BaseModel
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Validate() error {
	if s.OwnerID == "" {
		return ierr.NewError("owner_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.PlanTier.Validate(); err != nil {
		return err
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return err
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if !s.CurrentPeriodEnd.Equal(s.NextBillingDate) {
		return ierr.NewError("current_period_end must equal next_billing_date").
			WithReportableDetails(map[string]interface{}{
				"current_period_end": s.CurrentPeriodEnd,
				"next_billing_date":  s.NextBillingDate,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the subscription is billed by the daily pass.
func (s *Subscription) IsActive() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActive
}

// AdvancePeriod moves the billing period forward after a successful charge.
func (s *Subscription) AdvancePeriod(now time.Time) {
	s.CurrentPeriodStart = now
	s.CurrentPeriodEnd = types.NextBillingDate(now, s.BillingCycle)
	s.NextBillingDate = s.CurrentPeriodEnd
}

// Suspend marks the subscription terminal for the billing engine. Recovery
// requires an operator resetting the status out of band.
func (s *Subscription) Suspend() {
	s.SubscriptionStatus = types.SubscriptionStatusSuspended
}

// Cancel stamps an owner-initiated cancellation.
func (s *Subscription) Cancel(now time.Time) {
	s.SubscriptionStatus = types.SubscriptionStatusCanceled
	s.CanceledAt = &now
}
