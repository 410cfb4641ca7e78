package billingkey

import "context"

// Repository defines read access to stored billing keys. Keys are created by
// the card-registration flow outside the billing engine, so there is no
// write surface here.
type Repository interface {
	// Get retrieves a billing key by ID
	Get(ctx context.Context, id string) (*BillingKey, error)

	// GetDefaultForOwner retrieves the owner's default billing key
	GetDefaultForOwner(ctx context.Context, ownerID string) (*BillingKey, error)

	// ListByOwner retrieves all billing keys for an owner
	ListByOwner(ctx context.Context, ownerID string) ([]*BillingKey, error)
}
