package testutil

import (
	"context"
	"time"

	"github.com/tirelane/tirelane/internal/domain/subscription"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

// Helper to copy subscription
func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	if sub.CanceledAt != nil {
		canceledAt := *sub.CanceledAt
		copied.CanceledAt = &canceledAt
	}
	return &copied
}

func isLive(sub *subscription.Subscription) bool {
	return sub.SubscriptionStatus == types.SubscriptionStatusActive ||
		sub.SubscriptionStatus == types.SubscriptionStatusInactive
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	// Mirrors the partial unique index on owner_id for live statuses.
	if isLive(sub) {
		live := s.InMemoryStore.List(ctx, func(existing *subscription.Subscription) bool {
			return existing.OwnerID == sub.OwnerID && isLive(existing)
		})
		if len(live) > 0 {
			return ierr.NewErrorf("live subscription already exists for owner %s", sub.OwnerID).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemorySubscriptionStore) GetCurrentForOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.OwnerID == ownerID &&
			(sub.SubscriptionStatus == types.SubscriptionStatusActive ||
				sub.SubscriptionStatus == types.SubscriptionStatusInactive)
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no current subscription for owner %s", ownerID).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(matches[0]), nil
}

func (s *InMemorySubscriptionStore) GetActiveForOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.OwnerID == ownerID &&
			sub.SubscriptionStatus == types.SubscriptionStatusActive
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no active subscription for owner %s", ownerID).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(matches[0]), nil
}

func (s *InMemorySubscriptionStore) ListDue(ctx context.Context, before time.Time) ([]*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.SubscriptionStatus == types.SubscriptionStatusActive &&
			sub.NextBillingDate.Before(before)
	})
	result := make([]*subscription.Subscription, 0, len(matches))
	for _, sub := range matches {
		result = append(result, copySubscription(sub))
	}
	return result, nil
}
