package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/payment"
	"github.com/tirelane/tirelane/internal/domain/plan"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	"github.com/tirelane/tirelane/internal/testutil"
	"github.com/tirelane/tirelane/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   BillingService
	params    ServiceParams
	seedCount int
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		SubRepo:        s.GetStores().SubscriptionRepo,
		BillingKeyRepo: s.GetStores().BillingKeyRepo,
		PaymentRepo:    s.GetStores().PaymentRepo,
		PlanCatalog:    plan.NewCatalog(),
		GatewayClient:  s.GetGateway(),
	}
	s.service = NewBillingService(s.params)
	s.seedCount = 0
}

// seedDueSubscription stores an active subscription whose billing date fell
// yesterday, together with a usable billing key. Each seed gets its own
// owner; one owner holds at most one live subscription.
func (s *BillingServiceSuite) seedDueSubscription(tier types.PlanTier, cycle types.BillingCycle) *subscription.Subscription {
	s.seedCount++
	ownerID := fmt.Sprintf("%s_%d", testutil.TestOwnerID, s.seedCount)

	key := &billingkey.BillingKey{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_KEY),
		OwnerID:       ownerID,
		GatewayKeyRef: "billing_key_ref_" + string(tier),
		CardBrand:     "VISA",
		CardLast4:     "4242",
		IsDefault:     true,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().BillingKeyRepo.Add(s.GetContext(), key))

	dueAt := time.Now().UTC().Add(-24 * time.Hour)
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		OwnerID:            ownerID,
		PlanTier:           tier,
		BillingCycle:       cycle,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BillingKeyID:       key.ID,
		CurrentPeriodStart: dueAt.AddDate(0, -1, 0),
		CurrentPeriodEnd:   dueAt,
		NextBillingDate:    dueAt,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *BillingServiceSuite) paymentsFor(subscriptionID string) []*payment.Payment {
	entries, err := s.GetStores().PaymentRepo.ListRecentBySubscription(s.GetContext(), subscriptionID, 10)
	s.NoError(err)
	return entries
}

func (s *BillingServiceSuite) TestProcessSubscriptionSuccess() {
	sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
	before := time.Now().UTC()

	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeSuccess, outcome)

	// One SUCCESS entry with the monthly starter price.
	entries := s.paymentsFor(sub.ID)
	s.Len(entries, 1)
	s.Equal(types.PaymentStatusSuccess, entries[0].PaymentStatus)
	s.True(entries[0].Amount.Equal(decimal.NewFromInt(19900)))
	s.Equal(s.GetConfig().Billing.Currency, entries[0].Currency)
	s.NotNil(entries[0].PaidAt)
	s.Nil(entries[0].NextRetryAt)
	s.Contains(entries[0].OrderKey, sub.ID)

	// The period rolled forward: the subscription is no longer due and the
	// period-end invariant holds.
	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
	s.True(updated.NextBillingDate.After(before))
	s.True(updated.CurrentPeriodEnd.Equal(updated.NextBillingDate))
	s.True(updated.CurrentPeriodStart.After(sub.CurrentPeriodStart))
	s.Equal(1, s.GetGateway().CallCount())
}

func (s *BillingServiceSuite) TestResumesUnresolvedAttempt() {
	sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)

	// A previous pass died after contacting the gateway: its PENDING entry
	// is still on record.
	staleKey := fmt.Sprintf("%s-%d", sub.ID, time.Now().UTC().Add(-24*time.Hour).Unix())
	stale := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		OwnerID:        sub.OwnerID,
		SubscriptionID: sub.ID,
		BillingKeyID:   sub.BillingKeyID,
		OrderKey:       staleKey,
		Amount:         decimal.NewFromInt(19900),
		Currency:       s.GetConfig().Billing.Currency,
		BillingCycle:   sub.BillingCycle,
		PaymentStatus:  types.PaymentStatusPending,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), stale))

	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeSuccess, outcome)

	// The retry reuses the stale order key so the gateway can deduplicate a
	// charge the dead pass may have completed, and resolves the same entry
	// instead of writing a second one.
	s.Equal(1, s.GetGateway().CallCount())
	s.Equal(staleKey, s.GetGateway().LastRequest().OrderKey)

	entries := s.paymentsFor(sub.ID)
	s.Len(entries, 1)
	s.Equal(stale.ID, entries[0].ID)
	s.Equal(types.PaymentStatusSuccess, entries[0].PaymentStatus)
	s.NotNil(entries[0].PaidAt)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(updated.NextBillingDate.After(time.Now().UTC()))
}

func (s *BillingServiceSuite) TestProcessSubscriptionDeclined() {
	sub := s.seedDueSubscription(types.PlanTierPro, types.BillingCycleMonthly)
	s.GetGateway().DeclineWith = "INSUFFICIENT_FUNDS"
	before := time.Now().UTC()

	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeFailed, outcome)

	// A FAILED entry with the decline reason and an advisory retry stamp a
	// day out.
	entries := s.paymentsFor(sub.ID)
	s.Len(entries, 1)
	s.Equal(types.PaymentStatusFailed, entries[0].PaymentStatus)
	s.Equal("INSUFFICIENT_FUNDS", entries[0].FailureReason)
	s.Nil(entries[0].PaidAt)
	s.NotNil(entries[0].NextRetryAt)
	s.WithinDuration(before.Add(24*time.Hour), *entries[0].NextRetryAt, time.Minute)

	// A single decline neither suspends nor moves the billing date.
	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
	s.True(updated.NextBillingDate.Equal(sub.NextBillingDate))
}

func (s *BillingServiceSuite) TestProcessSubscriptionSuspendsAfterWindow() {
	sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)

	// Two earlier declines from previous daily passes.
	for i, daysAgo := range []int{2, 1} {
		base := types.GetDefaultBaseModel(s.GetContext())
		base.CreatedAt = time.Now().UTC().AddDate(0, 0, -daysAgo)
		entry := &payment.Payment{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			OwnerID:        sub.OwnerID,
			SubscriptionID: sub.ID,
			BillingKeyID:   sub.BillingKeyID,
			OrderKey:       sub.ID + "-prior-" + string(rune('a'+i)),
			Amount:         decimal.NewFromInt(19900),
			Currency:       s.GetConfig().Billing.Currency,
			BillingCycle:   sub.BillingCycle,
			PaymentStatus:  types.PaymentStatusFailed,
			FailureReason:  "INSUFFICIENT_FUNDS",
			NextRetryAt:    lo.ToPtr(base.CreatedAt.Add(24 * time.Hour)),
			BaseModel:      base,
		}
		s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), entry))
	}

	s.GetGateway().DeclineWith = "CARD_EXPIRED"
	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeFailed, outcome)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, updated.SubscriptionStatus)
	s.Len(s.paymentsFor(sub.ID), 3)

	// A suspended subscription drops out of the daily pass entirely.
	due, err := s.GetStores().SubscriptionRepo.ListDue(s.GetContext(), time.Now().UTC().AddDate(0, 0, 1))
	s.NoError(err)
	s.Empty(due)
}

func (s *BillingServiceSuite) TestInterveningSuccessResetsWindow() {
	sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)

	// History: a decline, then a recovery, from previous passes.
	statuses := []types.PaymentStatus{types.PaymentStatusFailed, types.PaymentStatusSuccess}
	for i, status := range statuses {
		base := types.GetDefaultBaseModel(s.GetContext())
		base.CreatedAt = time.Now().UTC().AddDate(0, 0, i-3)
		entry := &payment.Payment{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			OwnerID:        sub.OwnerID,
			SubscriptionID: sub.ID,
			BillingKeyID:   sub.BillingKeyID,
			OrderKey:       sub.ID + "-prior-" + string(rune('a'+i)),
			Amount:         decimal.NewFromInt(19900),
			Currency:       s.GetConfig().Billing.Currency,
			BillingCycle:   sub.BillingCycle,
			PaymentStatus:  status,
			BaseModel:      base,
		}
		s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), entry))
	}

	s.GetGateway().DeclineWith = "INSUFFICIENT_FUNDS"
	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeFailed, outcome)

	// Most recent window is FAILED, SUCCESS, FAILED: not consecutive, so
	// the subscription stays active.
	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
}

func (s *BillingServiceSuite) TestProcessSubscriptionSkips() {
	// Test case: billing key missing
	s.Run("Missing Billing Key", func() {
		sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
		sub.BillingKeyID = "bk_missing"
		s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

		outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
		s.Equal(BillingOutcomeSkipped, outcome)

		// A configuration defect must not consume a dunning-window slot.
		s.Empty(s.paymentsFor(sub.ID))
		s.Equal(0, s.GetGateway().CallCount())

		updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
	})

	// Test case: subscription canceled between due query and attempt
	s.Run("No Longer Active", func() {
		sub := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
		sub.Cancel(time.Now().UTC())
		s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

		outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
		s.Equal(BillingOutcomeSkipped, outcome)
		s.Empty(s.paymentsFor(sub.ID))
	})

	// Test case: unknown subscription id
	s.Run("Unknown Subscription", func() {
		outcome := s.service.ProcessSubscription(s.GetContext(), "sub_unknown")
		s.Equal(BillingOutcomeSkipped, outcome)
	})
}

func (s *BillingServiceSuite) TestFreePlanAdvancesWithoutCharge() {
	sub := s.seedDueSubscription(types.PlanTierFree, types.BillingCycleMonthly)

	outcome := s.service.ProcessSubscription(s.GetContext(), sub.ID)
	s.Equal(BillingOutcomeSuccess, outcome)

	s.Equal(0, s.GetGateway().CallCount())
	s.Empty(s.paymentsFor(sub.ID))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(updated.NextBillingDate.After(time.Now().UTC()))
	s.True(updated.CurrentPeriodEnd.Equal(updated.NextBillingDate))
}

func (s *BillingServiceSuite) TestProcessDueSubscriptions() {
	dueA := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
	dueB := s.seedDueSubscription(types.PlanTierPro, types.BillingCycleYearly)

	// Not due: billing date is still a week out.
	notDue := s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
	notDue.NextBillingDate = time.Now().UTC().AddDate(0, 0, 7)
	notDue.CurrentPeriodEnd = notDue.NextBillingDate
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), notDue))

	// Suspended subscriptions are excluded even when their date has passed.
	suspended := s.seedDueSubscription(types.PlanTierPro, types.BillingCycleMonthly)
	suspended.Suspend()
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), suspended))

	summary, err := s.service.ProcessDueSubscriptions(s.GetContext())
	s.NoError(err)
	s.Equal(2, summary.Processed)
	s.Equal(2, summary.Succeeded)
	s.Equal(0, summary.Failed)
	s.Equal(0, summary.Skipped)
	s.Equal(2, s.GetGateway().CallCount())

	for _, id := range []string{dueA.ID, dueB.ID} {
		s.Len(s.paymentsFor(id), 1)
	}

	// Re-running the pass the same day is harmless: the billed
	// subscriptions are no longer due.
	again, err := s.service.ProcessDueSubscriptions(s.GetContext())
	s.NoError(err)
	s.Equal(0, again.Processed)
	s.Equal(2, s.GetGateway().CallCount())
}

func (s *BillingServiceSuite) TestProcessDueSubscriptionsAllDeclined() {
	s.seedDueSubscription(types.PlanTierStarter, types.BillingCycleMonthly)
	s.seedDueSubscription(types.PlanTierPro, types.BillingCycleMonthly)
	s.GetGateway().DeclineWith = "INSUFFICIENT_FUNDS"

	summary, err := s.service.ProcessDueSubscriptions(s.GetContext())
	s.NoError(err)
	s.Equal(2, summary.Processed)
	s.Equal(0, summary.Succeeded)
	s.Equal(2, summary.Failed)

	// Declined subscriptions remain due for tomorrow's pass.
	due, err := s.GetStores().SubscriptionRepo.ListDue(s.GetContext(), time.Now().UTC().AddDate(0, 0, 1))
	s.NoError(err)
	s.Len(due, 2)
}
