package testutil

import (
	"context"

	"github.com/tirelane/tirelane/internal/domain/billingkey"
	ierr "github.com/tirelane/tirelane/internal/errors"
)

// InMemoryBillingKeyStore implements billingkey.Repository with a test-only
// Add method, since the billing engine itself never writes keys.
type InMemoryBillingKeyStore struct {
	*InMemoryStore[*billingkey.BillingKey]
}

// NewInMemoryBillingKeyStore creates a new in-memory billing key store
func NewInMemoryBillingKeyStore() *InMemoryBillingKeyStore {
	return &InMemoryBillingKeyStore{
		InMemoryStore: NewInMemoryStore[*billingkey.BillingKey](),
	}
}

func copyBillingKey(key *billingkey.BillingKey) *billingkey.BillingKey {
	if key == nil {
		return nil
	}
	copied := *key
	return &copied
}

// Add seeds a billing key for tests.
func (s *InMemoryBillingKeyStore) Add(ctx context.Context, key *billingkey.BillingKey) error {
	if key == nil {
		return ierr.NewError("billing key cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, key.ID, copyBillingKey(key))
}

func (s *InMemoryBillingKeyStore) Get(ctx context.Context, id string) (*billingkey.BillingKey, error) {
	key, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment method not found").
			Mark(ierr.ErrNotFound)
	}
	return copyBillingKey(key), nil
}

func (s *InMemoryBillingKeyStore) GetDefaultForOwner(ctx context.Context, ownerID string) (*billingkey.BillingKey, error) {
	matches := s.InMemoryStore.List(ctx, func(key *billingkey.BillingKey) bool {
		return key.OwnerID == ownerID && key.IsDefault
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no default billing key for owner %s", ownerID).
			Mark(ierr.ErrNotFound)
	}
	return copyBillingKey(matches[0]), nil
}

func (s *InMemoryBillingKeyStore) ListByOwner(ctx context.Context, ownerID string) ([]*billingkey.BillingKey, error) {
	matches := s.InMemoryStore.List(ctx, func(key *billingkey.BillingKey) bool {
		return key.OwnerID == ownerID
	})
	result := make([]*billingkey.BillingKey, 0, len(matches))
	for _, key := range matches {
		result = append(result, copyBillingKey(key))
	}
	return result, nil
}
