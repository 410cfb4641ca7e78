package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/tirelane/tirelane/internal/api/dto"
	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/plan"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/testutil"
	"github.com/tirelane/tirelane/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	params  ServiceParams
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
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
	s.service = NewSubscriptionService(s.params)
}

func (s *SubscriptionServiceSuite) seedBillingKey(ownerID string) *billingkey.BillingKey {
	key := &billingkey.BillingKey{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_KEY),
		OwnerID:       ownerID,
		GatewayKeyRef: "billing_key_ref_" + ownerID,
		CardBrand:     "MASTERCARD",
		CardLast4:     "1881",
		IsDefault:     true,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().BillingKeyRepo.Add(s.GetContext(), key))
	return key
}

func (s *SubscriptionServiceSuite) TestCreatePaidSubscription() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	before := time.Now().UTC()

	resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)
	s.NotNil(resp)
	s.NotEmpty(resp.SubscriptionID)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Equal(testutil.TestOwnerID, sub.OwnerID)
	s.Equal(types.PlanTierStarter, sub.PlanTier)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.CurrentPeriodEnd.Equal(sub.NextBillingDate))
	s.True(sub.NextBillingDate.After(before))

	// The first charge was taken immediately with the replay-safe order key.
	s.Equal(1, s.GetGateway().CallCount())
	entry, err := s.GetStores().PaymentRepo.GetByOrderKey(s.GetContext(), sub.ID+"-INIT")
	s.NoError(err)
	s.Equal(types.PaymentStatusSuccess, entry.PaymentStatus)
	s.True(entry.Amount.Equal(decimal.NewFromInt(19900)))
	s.Equal(key.GatewayKeyRef, s.GetGateway().LastRequest().BillingKeyRef)
}

func (s *SubscriptionServiceSuite) TestCreateFreeSubscription() {
	resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "FREE",
		BillingCycle: "MONTHLY",
	})
	s.NoError(err)
	s.NotNil(resp)

	// No billing key, no gateway call, no payment entry.
	s.Equal(0, s.GetGateway().CallCount())

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Equal(types.PlanTierFree, sub.PlanTier)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestCreateValidation() {
	// Test case: unknown plan name
	s.Run("Unknown Plan", func() {
		_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			Plan:         "ENTERPRISE",
			BillingCycle: "MONTHLY",
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})

	// Test case: paid plan without a billing key
	s.Run("Paid Plan Without Billing Key", func() {
		_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			Plan:         "PRO",
			BillingCycle: "MONTHLY",
		})
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
		s.Equal(0, s.GetGateway().CallCount())
	})

	// Test case: billing key owned by someone else
	s.Run("Foreign Billing Key", func() {
		foreign := s.seedBillingKey("owner_other")
		_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			Plan:         "PRO",
			BillingCycle: "MONTHLY",
			BillingKeyID: foreign.ID,
		})
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
		s.Equal(0, s.GetGateway().CallCount())
	})

	// Test case: no caller identity on the context
	s.Run("Missing Caller Identity", func() {
		_, err := s.service.Create(context.Background(), &dto.CreateSubscriptionRequest{
			Plan:         "FREE",
			BillingCycle: "MONTHLY",
		})
		s.Error(err)
		s.True(ierr.IsPermissionDenied(err))
	})
}

func (s *SubscriptionServiceSuite) TestCreateRollsBackOnDeclinedFirstCharge() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	s.GetGateway().DeclineWith = "INSUFFICIENT_FUNDS"

	_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "PRO",
		BillingCycle: "YEARLY",
		BillingKeyID: key.ID,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// The caller is not left with a subscription that was never charged.
	_, err = s.GetStores().SubscriptionRepo.GetCurrentForOwner(s.GetContext(), testutil.TestOwnerID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	// The declined attempt stays on record for audit.
	orderKey := s.GetGateway().LastRequest().OrderKey
	entry, err := s.GetStores().PaymentRepo.GetByOrderKey(s.GetContext(), orderKey)
	s.NoError(err)
	s.Equal(types.PaymentStatusFailed, entry.PaymentStatus)
	s.Equal("INSUFFICIENT_FUNDS", entry.FailureReason)
}

func (s *SubscriptionServiceSuite) TestCreateTwiceConvergesOnOneRecord() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	req := &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	}

	first, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)

	// A rapid double-submit updates the same record, and the replay check on
	// the order key keeps the gateway from charging twice.
	s.Equal(first.SubscriptionID, second.SubscriptionID)
	s.Equal(1, s.GetGateway().CallCount())

	entries, err := s.GetStores().PaymentRepo.ListRecentBySubscription(s.GetContext(), first.SubscriptionID, 10)
	s.NoError(err)
	s.Len(entries, 1)
}

// staleOwnerLookupStore reports no current subscription for its first few
// lookups, the way two in-flight creates each read before either insert.
type staleOwnerLookupStore struct {
	subscription.Repository
	staleReads int
}

func (r *staleOwnerLookupStore) GetCurrentForOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	if r.staleReads > 0 {
		r.staleReads--
		return nil, ierr.NewErrorf("no current subscription for owner %s", ownerID).
			Mark(ierr.ErrNotFound)
	}
	return r.Repository.GetCurrentForOwner(ctx, ownerID)
}

func (s *SubscriptionServiceSuite) TestConcurrentCreateConvergesOnOneRecord() {
	// Both creates miss the existence check; the uniqueness guard rejects the
	// second insert and it retries as an update of the winner's record.
	params := s.params
	params.SubRepo = &staleOwnerLookupStore{
		Repository: s.GetStores().SubscriptionRepo,
		staleReads: 2,
	}
	svc := NewSubscriptionService(params)

	key := s.seedBillingKey(testutil.TestOwnerID)
	req := &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	}

	first, err := svc.Create(s.GetContext(), req)
	s.NoError(err)
	second, err := svc.Create(s.GetContext(), req)
	s.NoError(err)

	// One record, one charge: the replay check on the stable order key keeps
	// the converged retry from billing again.
	s.Equal(first.SubscriptionID, second.SubscriptionID)
	s.Equal(1, s.GetGateway().CallCount())

	live, err := s.GetStores().SubscriptionRepo.ListDue(s.GetContext(), time.Now().UTC().AddDate(0, 2, 0))
	s.NoError(err)
	s.Len(live, 1)
}

func (s *SubscriptionServiceSuite) TestCreateFallsBackToDefaultBillingKey() {
	key := s.seedBillingKey(testutil.TestOwnerID)

	resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "PRO",
		BillingCycle: "MONTHLY",
	})
	s.NoError(err)
	s.Equal(1, s.GetGateway().CallCount())

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Equal(key.ID, sub.BillingKeyID)
	s.Equal(key.GatewayKeyRef, s.GetGateway().LastRequest().BillingKeyRef)
}

func (s *SubscriptionServiceSuite) TestUpgradeUpdatesInPlace() {
	freeResp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "FREE",
		BillingCycle: "MONTHLY",
	})
	s.NoError(err)

	key := s.seedBillingKey(testutil.TestOwnerID)
	paidResp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "PRO",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)

	// Upgrading reuses the existing record and charges the new plan.
	s.Equal(freeResp.SubscriptionID, paidResp.SubscriptionID)
	s.Equal(1, s.GetGateway().CallCount())

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), paidResp.SubscriptionID)
	s.NoError(err)
	s.Equal(types.PlanTierPro, sub.PlanTier)
	s.Equal(key.ID, sub.BillingKeyID)

	entry, err := s.GetStores().PaymentRepo.GetByOrderKey(s.GetContext(), sub.ID+"-INIT")
	s.NoError(err)
	s.True(entry.Amount.Equal(decimal.NewFromInt(49900)))
}

func (s *SubscriptionServiceSuite) TestPaidUpgradeKeepsPaidPeriod() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)

	before, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.SubscriptionID)
	s.NoError(err)

	upgraded, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "PRO",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)
	s.Equal(created.SubscriptionID, upgraded.SubscriptionID)

	// The first charge is not repeated, so the owner keeps the period that
	// charge paid for; PRO pricing starts at the next roll.
	s.Equal(1, s.GetGateway().CallCount())

	after, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), upgraded.SubscriptionID)
	s.NoError(err)
	s.Equal(types.PlanTierPro, after.PlanTier)
	s.True(after.CurrentPeriodStart.Equal(before.CurrentPeriodStart))
	s.True(after.CurrentPeriodEnd.Equal(before.CurrentPeriodEnd))
	s.True(after.NextBillingDate.Equal(before.NextBillingDate))
}

func (s *SubscriptionServiceSuite) TestCancel() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "MONTHLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)

	resp, err := s.service.Cancel(s.GetContext())
	s.NoError(err)
	s.NotNil(resp)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.SubscriptionID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.SubscriptionStatus)
	s.NotNil(sub.CanceledAt)

	// Canceled subscriptions never reach the daily pass.
	due, err := s.GetStores().SubscriptionRepo.ListDue(s.GetContext(), time.Now().UTC().AddDate(0, 2, 0))
	s.NoError(err)
	s.Empty(due)

	// A second cancel has nothing to act on.
	_, err = s.service.Cancel(s.GetContext())
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCancelWithoutSubscription() {
	_, err := s.service.Cancel(s.GetContext())
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestGetCurrent() {
	key := s.seedBillingKey(testutil.TestOwnerID)
	created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		Plan:         "STARTER",
		BillingCycle: "YEARLY",
		BillingKeyID: key.ID,
	})
	s.NoError(err)

	resp, err := s.service.GetCurrent(s.GetContext())
	s.NoError(err)
	s.Equal(created.SubscriptionID, resp.ID)
	s.Equal("STARTER", resp.PlanTier)
	s.Equal("YEARLY", resp.BillingCycle)
	s.Equal("ACTIVE", resp.Status)
}

func (s *SubscriptionServiceSuite) TestListBillingKeys() {
	s.seedBillingKey(testutil.TestOwnerID)
	s.seedBillingKey("owner_other")

	resp, err := s.service.ListBillingKeys(s.GetContext())
	s.NoError(err)
	s.Len(resp.Items, 1)
	s.Equal("1881", resp.Items[0].CardLast4)
}
