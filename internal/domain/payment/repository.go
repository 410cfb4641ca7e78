package payment

import "context"

// Repository defines the interface for payment history persistence. Entries
// are created PENDING and resolved in place to SUCCESS or FAILED; they are
// never deleted.
type Repository interface {
	// Create appends a payment history entry
	Create(ctx context.Context, p *Payment) error

	// Update resolves an existing entry (status, failure reason, timestamps)
	Update(ctx context.Context, p *Payment) error

	// Get retrieves a payment by ID
	Get(ctx context.Context, id string) (*Payment, error)

	// GetByOrderKey retrieves a payment by its order key, or a not-found
	// error. Order keys are unique per logical charge attempt.
	GetByOrderKey(ctx context.Context, orderKey string) (*Payment, error)

	// ListRecentBySubscription retrieves up to limit entries for a
	// subscription, most recent first
	ListRecentBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*Payment, error)
}
