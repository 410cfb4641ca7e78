package gorm

import (
	"context"

	"github.com/tirelane/tirelane/internal/cache"
	"github.com/tirelane/tirelane/internal/domain/billingkey"
)

// cachedBillingKeyRepository is a read-through cache over the billing key
// repository. Billing keys are immutable once created, so cached point reads
// never go stale; owner-scoped lookups skip the cache because the owner's
// set of keys can grow.
type cachedBillingKeyRepository struct {
	inner billingkey.Repository
	cache cache.Cache
}

// NewCachedBillingKeyRepository wraps repo with a read-through cache.
func NewCachedBillingKeyRepository(inner billingkey.Repository, c cache.Cache) billingkey.Repository {
	return &cachedBillingKeyRepository{inner: inner, cache: c}
}

func billingKeyCacheKey(id string) string {
	return "billing_key:" + id
}

func (r *cachedBillingKeyRepository) Get(ctx context.Context, id string) (*billingkey.BillingKey, error) {
	if value, ok := r.cache.Get(ctx, billingKeyCacheKey(id)); ok {
		if key, ok := value.(*billingkey.BillingKey); ok {
			return key, nil
		}
	}

	key, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, billingKeyCacheKey(id), key, cache.ExpiryDefaultInMemory)
	return key, nil
}

func (r *cachedBillingKeyRepository) GetDefaultForOwner(ctx context.Context, ownerID string) (*billingkey.BillingKey, error) {
	return r.inner.GetDefaultForOwner(ctx, ownerID)
}

func (r *cachedBillingKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*billingkey.BillingKey, error) {
	return r.inner.ListByOwner(ctx, ownerID)
}
