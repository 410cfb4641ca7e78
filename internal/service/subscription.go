package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tirelane/tirelane/internal/api/dto"
	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/payment"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/integration/tosspay"
	"github.com/tirelane/tirelane/internal/types"
)

const initOrderKeySuffix = "-INIT"

// SubscriptionService is the synchronous lifecycle surface invoked by owner
// actions. The owner identity comes from the request context.
type SubscriptionService interface {
	// Create selects a plan for the owner: creates a subscription if none
	// exists, updates the existing one in place otherwise, and performs the
	// immediate first charge for paid plans with rollback on decline.
	Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error)

	// Cancel cancels the owner's active subscription.
	Cancel(ctx context.Context) (*dto.CancelSubscriptionResponse, error)

	// GetCurrent returns the owner's current subscription.
	GetCurrent(ctx context.Context) (*dto.SubscriptionResponse, error)

	// ListBillingKeys returns the owner's stored payment instruments.
	ListBillingKeys(ctx context.Context) (*dto.ListBillingKeysResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error) {
	ownerID := types.GetUserID(ctx)
	if ownerID == "" {
		return nil, ierr.NewError("caller identity is required").
			WithHint("Sign in to manage your subscription").
			Mark(ierr.ErrPermissionDenied)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tier := types.PlanTier(req.Plan)
	cycle := types.BillingCycle(req.BillingCycle)

	if !tier.IsFree() && req.BillingKeyID == "" {
		// Fall back to the owner's default payment method.
		key, err := s.BillingKeyRepo.GetDefaultForOwner(ctx, ownerID)
		if err != nil {
			return nil, ierr.NewError("billing key is required for paid plans").
				WithHint("Register a payment method before selecting a paid plan").
				Mark(ierr.ErrInvalidOperation)
		}
		req.BillingKeyID = key.ID
	}

	// Enum validation already passed, so a catalog miss is a configuration
	// defect rather than caller error.
	price, err := s.PlanCatalog.PriceOf(tier, cycle)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The selected plan is temporarily unavailable").
			Mark(ierr.ErrInternal)
	}

	if !tier.IsFree() {
		key, err := s.BillingKeyRepo.Get(ctx, req.BillingKeyID)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("The selected payment method was not found").
				Mark(ierr.ErrInvalidOperation)
		}
		if key.OwnerID != ownerID {
			return nil, ierr.NewError("billing key does not belong to caller").
				WithHint("The selected payment method was not found").
				Mark(ierr.ErrInvalidOperation)
		}
	}

	now := time.Now().UTC()

	// One subscription per owner: an existing ACTIVE or INACTIVE row is
	// updated in place, which also makes a rapid double-submit converge on
	// the same record instead of duplicating it.
	sub, err := s.SubRepo.GetCurrentForOwner(ctx, ownerID)
	isNew := false
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		isNew = true
		sub = &subscription.Subscription{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			OwnerID:   ownerID,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
	}

	// A paid plan change on a subscription whose first charge already went
	// through must not be charged again for this call; the order key is
	// stable per subscription so the earlier SUCCESS entry is the record of
	// that charge.
	alreadyCharged := false
	if !isNew && !tier.IsFree() && !price.IsZero() {
		existing, err := s.PaymentRepo.GetByOrderKey(ctx, sub.ID+initOrderKeySuffix)
		if err == nil && existing.PaymentStatus == types.PaymentStatusSuccess {
			alreadyCharged = true
		}
	}

	sub.PlanTier = tier
	sub.BillingCycle = cycle
	sub.BillingKeyID = req.BillingKeyID
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.CanceledAt = nil
	if !alreadyCharged {
		// When the charge is skipped the owner keeps the period they have
		// already paid for; the new price bills at the next roll.
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = types.NextBillingDate(now, cycle)
		sub.NextBillingDate = sub.CurrentPeriodEnd
	}

	if isNew {
		err = s.SubRepo.Create(ctx, sub)
		if err != nil && ierr.IsAlreadyExists(err) {
			// A concurrent create for the same owner won the insert;
			// converge on that record instead of duplicating it.
			existing, getErr := s.SubRepo.GetCurrentForOwner(ctx, ownerID)
			if getErr != nil {
				return nil, err
			}
			sub.ID = existing.ID
			sub.BaseModel = existing.BaseModel
			err = s.SubRepo.Update(ctx, sub)
		}
	} else {
		err = s.SubRepo.Update(ctx, sub)
	}
	if err != nil {
		return nil, err
	}

	if tier.IsFree() || price.IsZero() {
		s.Logger.Infow("subscription set to free plan",
			"subscription_id", sub.ID,
			"owner_id", ownerID)
		return &dto.CreateSubscriptionResponse{
			SubscriptionID: sub.ID,
			Message:        "subscription updated",
		}, nil
	}

	if alreadyCharged {
		s.Logger.Infow("first charge already recorded, skipping gateway call",
			"subscription_id", sub.ID,
			"owner_id", ownerID,
			"plan", tier)
		return &dto.CreateSubscriptionResponse{
			SubscriptionID: sub.ID,
			Message:        "subscription updated",
		}, nil
	}

	if err := s.chargeInitial(ctx, sub, price); err != nil {
		// The caller must not be left with an active paid subscription
		// that was never charged.
		if delErr := s.SubRepo.Delete(ctx, sub.ID); delErr != nil {
			s.Logger.Errorw("failed to roll back subscription after declined first charge",
				"subscription_id", sub.ID,
				"error", delErr)
		}
		return nil, err
	}

	s.Logger.Infow("subscription created with first charge",
		"subscription_id", sub.ID,
		"owner_id", ownerID,
		"plan", tier,
		"billing_cycle", cycle)

	return &dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		Message:        "subscription activated",
	}, nil
}

// chargeInitial performs the immediate first charge. The order key is
// derived from the subscription id alone, so replaying a crashed create
// finds the earlier successful charge instead of billing again.
func (s *subscriptionService) chargeInitial(ctx context.Context, sub *subscription.Subscription, price decimal.Decimal) error {
	orderKey := sub.ID + initOrderKeySuffix

	if existing, err := s.PaymentRepo.GetByOrderKey(ctx, orderKey); err == nil &&
		existing.PaymentStatus == types.PaymentStatusSuccess {
		s.Logger.Infow("first charge already recorded, skipping gateway call",
			"subscription_id", sub.ID,
			"order_key", orderKey)
		return nil
	}

	key, err := s.BillingKeyRepo.Get(ctx, sub.BillingKeyID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("The selected payment method was not found").
			Mark(ierr.ErrInvalidOperation)
	}

	result, err := s.GatewayClient.ChargeBillingKey(ctx, tosspay.ChargeRequest{
		BillingKeyRef: key.GatewayKeyRef,
		Amount:        price,
		Currency:      s.Config.Billing.Currency,
		OrderKey:      orderKey,
		Description:   string(sub.PlanTier) + " " + string(sub.BillingCycle) + " subscription",
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		OwnerID:        sub.OwnerID,
		SubscriptionID: sub.ID,
		BillingKeyID:   key.ID,
		OrderKey:       orderKey,
		Amount:         price,
		Currency:       s.Config.Billing.Currency,
		BillingCycle:   sub.BillingCycle,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	if !result.Success {
		entry.PaymentStatus = types.PaymentStatusFailed
		entry.FailureReason = result.FailureReason
		if createErr := s.PaymentRepo.Create(ctx, entry); createErr != nil {
			s.Logger.Errorw("failed to record declined first charge",
				"subscription_id", sub.ID,
				"error", createErr)
		}
		return ierr.NewErrorf("first charge declined: %s", result.FailureReason).
			WithHintf("Payment failed: %s", result.FailureReason).
			Mark(ierr.ErrInvalidOperation)
	}

	entry.PaymentStatus = types.PaymentStatusSuccess
	entry.PaidAt = lo.ToPtr(now)
	return s.PaymentRepo.Create(ctx, entry)
}

func (s *subscriptionService) Cancel(ctx context.Context) (*dto.CancelSubscriptionResponse, error) {
	ownerID := types.GetUserID(ctx)
	if ownerID == "" {
		return nil, ierr.NewError("caller identity is required").
			WithHint("Sign in to manage your subscription").
			Mark(ierr.ErrPermissionDenied)
	}

	sub, err := s.SubRepo.GetActiveForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sub.Cancel(time.Now().UTC())
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription canceled",
		"subscription_id", sub.ID,
		"owner_id", ownerID)

	return &dto.CancelSubscriptionResponse{
		Message: "subscription canceled",
	}, nil
}

func (s *subscriptionService) GetCurrent(ctx context.Context) (*dto.SubscriptionResponse, error) {
	ownerID := types.GetUserID(ctx)
	if ownerID == "" {
		return nil, ierr.NewError("caller identity is required").
			Mark(ierr.ErrPermissionDenied)
	}

	sub, err := s.SubRepo.GetCurrentForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListBillingKeys(ctx context.Context) (*dto.ListBillingKeysResponse, error) {
	ownerID := types.GetUserID(ctx)
	if ownerID == "" {
		return nil, ierr.NewError("caller identity is required").
			Mark(ierr.ErrPermissionDenied)
	}

	keys, err := s.BillingKeyRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &dto.ListBillingKeysResponse{
		Items: lo.Map(keys, func(key *billingkey.BillingKey, _ int) *dto.BillingKeyResponse {
			return dto.NewBillingKeyResponse(key)
		}),
	}, nil
}
