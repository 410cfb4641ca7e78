package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations
type Repository interface {
	// Create creates a new subscription
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by ID
	Get(ctx context.Context, id string) (*Subscription, error)

	// Update saves a subscription's mutable fields
	Update(ctx context.Context, sub *Subscription) error

	// Delete hard-deletes a subscription. Only the lifecycle service's
	// first-charge rollback uses this.
	Delete(ctx context.Context, id string) error

	// GetCurrentForOwner retrieves the owner's subscription with status in
	// {ACTIVE, INACTIVE}, or a not-found error. At most one such row exists
	// per owner.
	GetCurrentForOwner(ctx context.Context, ownerID string) (*Subscription, error)

	// GetActiveForOwner retrieves the owner's ACTIVE subscription
	GetActiveForOwner(ctx context.Context, ownerID string) (*Subscription, error)

	// ListDue retrieves all ACTIVE subscriptions whose next billing date is
	// before the given boundary
	ListDue(ctx context.Context, before time.Time) ([]*Subscription, error)
}
