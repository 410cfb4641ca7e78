package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/tirelane/tirelane/internal/domain/dunning"
	"github.com/tirelane/tirelane/internal/domain/payment"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	"github.com/tirelane/tirelane/internal/integration/tosspay"
	"github.com/tirelane/tirelane/internal/types"
)

// BillingOutcome is the per-subscription result of one billing attempt.
type BillingOutcome string

const (
	// BillingOutcomeSuccess means the charge went through and the period
	// advanced.
	BillingOutcomeSuccess BillingOutcome = "SUCCESS"
	// BillingOutcomeFailed means the gateway declined; a FAILED history
	// entry was recorded and the dunning window evaluated.
	BillingOutcomeFailed BillingOutcome = "FAILED"
	// BillingOutcomeSkipped means the attempt could not be made at all
	// (missing billing key, missing price). No history entry is written:
	// a configuration defect must not consume a dunning-window slot.
	BillingOutcomeSkipped BillingOutcome = "SKIPPED"
)

// BillingRunSummary reports one daily pass for observability.
type BillingRunSummary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BillingService runs scheduled charges: the daily pass over all due
// subscriptions, and the single-subscription attempt it is built from.
type BillingService interface {
	ProcessDueSubscriptions(ctx context.Context) (*BillingRunSummary, error)
	ProcessSubscription(ctx context.Context, subscriptionID string) BillingOutcome
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

// ProcessDueSubscriptions bills every ACTIVE subscription whose next billing
// date has arrived. Attempts are independent and run on a bounded pool; one
// subscription's failure never aborts the rest of the batch. Re-invoking the
// pass on the same day is harmless: successfully billed subscriptions are no
// longer due.
func (s *billingService) ProcessDueSubscriptions(ctx context.Context) (*BillingRunSummary, error) {
	loc := s.Config.BillingLocation()
	boundary := types.StartOfNextDay(time.Now(), loc)

	due, err := s.SubRepo.ListDue(ctx, boundary)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("starting daily billing pass",
		"due_count", len(due),
		"boundary", boundary.Format(time.RFC3339))

	summary := &BillingRunSummary{Processed: len(due)}
	var mu sync.Mutex

	workers := pool.New().WithMaxGoroutines(s.Config.Billing.WorkerPoolSize)
	for _, sub := range due {
		subscriptionID := sub.ID
		workers.Go(func() {
			outcome := s.ProcessSubscription(ctx, subscriptionID)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case BillingOutcomeSuccess:
				summary.Succeeded++
			case BillingOutcomeFailed:
				summary.Failed++
			default:
				summary.Skipped++
			}
		})
	}
	workers.Wait()

	s.Logger.Infow("completed daily billing pass",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped)

	return summary, nil
}

// ProcessSubscription performs one full, self-contained billing attempt for
// a subscription. It never panics past its boundary.
func (s *billingService) ProcessSubscription(ctx context.Context, subscriptionID string) (outcome BillingOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Errorw("billing attempt panicked",
				"subscription_id", subscriptionID,
				"panic", r)
			outcome = BillingOutcomeSkipped
		}
	}()

	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		s.Logger.Errorw("failed to load subscription",
			"subscription_id", subscriptionID,
			"error", err)
		return BillingOutcomeSkipped
	}
	if !sub.IsActive() {
		// The status changed between the due query and this attempt.
		s.Logger.Infow("subscription no longer active, skipping",
			"subscription_id", sub.ID,
			"status", sub.SubscriptionStatus)
		return BillingOutcomeSkipped
	}

	price, err := s.PlanCatalog.PriceOf(sub.PlanTier, sub.BillingCycle)
	if err != nil {
		s.Logger.Errorw("no price configured for subscription plan",
			"subscription_id", sub.ID,
			"plan", sub.PlanTier,
			"billing_cycle", sub.BillingCycle,
			"error", err)
		return BillingOutcomeSkipped
	}

	now := time.Now().UTC()

	// Free-tier subscriptions roll their period forward without charging.
	if price.IsZero() {
		sub.AdvancePeriod(now)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			s.Logger.Errorw("failed to advance free subscription period",
				"subscription_id", sub.ID,
				"error", err)
			return BillingOutcomeSkipped
		}
		return BillingOutcomeSuccess
	}

	key, err := s.BillingKeyRepo.Get(ctx, sub.BillingKeyID)
	if err != nil {
		s.Logger.Errorw("billing key not found for subscription",
			"subscription_id", sub.ID,
			"billing_key_id", sub.BillingKeyID,
			"error", err)
		return BillingOutcomeSkipped
	}

	entry, err := s.openAttempt(ctx, sub, key.ID, price, now)
	if err != nil {
		s.Logger.Errorw("failed to record charge attempt",
			"subscription_id", sub.ID,
			"error", err)
		return BillingOutcomeSkipped
	}

	result, err := s.GatewayClient.ChargeBillingKey(ctx, tosspay.ChargeRequest{
		BillingKeyRef: key.GatewayKeyRef,
		Amount:        price,
		Currency:      s.Config.Billing.Currency,
		OrderKey:      entry.OrderKey,
		Description:   fmt.Sprintf("%s %s subscription", sub.PlanTier, sub.BillingCycle),
	})
	if err != nil {
		// Defect in the request itself, not a decline: the entry stays
		// PENDING and no dunning slot is consumed.
		s.Logger.Errorw("could not attempt charge",
			"subscription_id", sub.ID,
			"error", err)
		return BillingOutcomeSkipped
	}

	if result.Success {
		return s.recordSuccess(ctx, sub, entry, now)
	}
	return s.recordFailure(ctx, sub, entry, now, result.FailureReason)
}

// openAttempt returns the payment entry the gateway call runs under. A
// PENDING entry left by an attempt that died between the charge and its
// recording is adopted, so the retry carries the same order key and the
// gateway deduplicates the possibly-completed charge instead of billing the
// period twice. Otherwise a fresh PENDING entry is written before the
// gateway is contacted.
func (s *billingService) openAttempt(
	ctx context.Context,
	sub *subscription.Subscription,
	billingKeyID string,
	price decimal.Decimal,
	now time.Time,
) (*payment.Payment, error) {
	recent, err := s.PaymentRepo.ListRecentBySubscription(ctx, sub.ID, dunning.WindowSize)
	if err != nil {
		return nil, err
	}
	for _, p := range recent {
		if p.PaymentStatus == types.PaymentStatusPending {
			s.Logger.Warnw("resuming unresolved charge attempt",
				"subscription_id", sub.ID,
				"order_key", p.OrderKey)
			return p, nil
		}
	}

	entry := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		OwnerID:        sub.OwnerID,
		SubscriptionID: sub.ID,
		BillingKeyID:   billingKeyID,
		OrderKey:       fmt.Sprintf("%s-%d", sub.ID, now.Unix()),
		Amount:         price,
		Currency:       s.Config.Billing.Currency,
		BillingCycle:   sub.BillingCycle,
		PaymentStatus:  types.PaymentStatusPending,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := s.PaymentRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *billingService) recordSuccess(
	ctx context.Context,
	sub *subscription.Subscription,
	entry *payment.Payment,
	now time.Time,
) BillingOutcome {
	entry.PaymentStatus = types.PaymentStatusSuccess
	entry.FailureReason = ""
	entry.PaidAt = &now

	// History first, then the subscription, in one transaction: a reader
	// never sees an advanced period without its payment entry.
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.PaymentRepo.Update(txCtx, entry); err != nil {
			return err
		}
		sub.AdvancePeriod(now)
		return s.SubRepo.Update(txCtx, sub)
	})
	if err != nil {
		s.Logger.Errorw("failed to record successful charge",
			"subscription_id", sub.ID,
			"order_key", entry.OrderKey,
			"error", err)
		return BillingOutcomeSkipped
	}

	s.Logger.Infow("billed subscription",
		"subscription_id", sub.ID,
		"order_key", entry.OrderKey,
		"amount", entry.Amount.String(),
		"next_billing_date", sub.NextBillingDate.Format(time.RFC3339))
	return BillingOutcomeSuccess
}

func (s *billingService) recordFailure(
	ctx context.Context,
	sub *subscription.Subscription,
	entry *payment.Payment,
	now time.Time,
	reason string,
) BillingOutcome {
	nextRetry := dunning.NextRetryAt(now)
	entry.PaymentStatus = types.PaymentStatusFailed
	entry.FailureReason = reason
	entry.NextRetryAt = &nextRetry

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.PaymentRepo.Update(txCtx, entry); err != nil {
			return err
		}

		recent, err := s.PaymentRepo.ListRecentBySubscription(txCtx, sub.ID, dunning.WindowSize)
		if err != nil {
			return err
		}
		statuses := make([]types.PaymentStatus, 0, len(recent))
		for _, p := range recent {
			statuses = append(statuses, p.PaymentStatus)
		}

		if dunning.Decide(statuses) == dunning.DecisionSuspend {
			s.Logger.Warnw("dunning window exhausted, suspending subscription",
				"subscription_id", sub.ID,
				"window", dunning.WindowSize)
			sub.Suspend()
			return s.SubRepo.Update(txCtx, sub)
		}
		return nil
	})
	if err != nil {
		s.Logger.Errorw("failed to record declined charge",
			"subscription_id", sub.ID,
			"order_key", entry.OrderKey,
			"error", err)
		return BillingOutcomeSkipped
	}

	s.Logger.Warnw("subscription charge declined",
		"subscription_id", sub.ID,
		"order_key", entry.OrderKey,
		"reason", reason,
		"next_retry_at", nextRetry.Format(time.RFC3339))
	return BillingOutcomeFailed
}
