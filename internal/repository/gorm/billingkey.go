package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tirelane/tirelane/internal/domain/billingkey"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
)

type billingKeyRepository struct {
	client postgres.IClient
	log    *logger.Logger
}

// NewBillingKeyRepository creates a postgres-backed billing key repository.
func NewBillingKeyRepository(client postgres.IClient, log *logger.Logger) billingkey.Repository {
	return &billingKeyRepository{client: client, log: log}
}

func (r *billingKeyRepository) Get(ctx context.Context, id string) (*billingkey.BillingKey, error) {
	var key billingkey.BillingKey
	err := r.client.DB(ctx).Where("id = ?", id).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("billing key %s not found", id).
				WithHint("Payment method not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing key").
			Mark(ierr.ErrDatabase)
	}
	return &key, nil
}

func (r *billingKeyRepository) GetDefaultForOwner(ctx context.Context, ownerID string) (*billingkey.BillingKey, error) {
	var key billingkey.BillingKey
	err := r.client.DB(ctx).
		Where("owner_id = ? AND is_default = ?", ownerID, true).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("no default billing key for owner %s", ownerID).
				WithHint("No default payment method registered").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing key").
			Mark(ierr.ErrDatabase)
	}
	return &key, nil
}

func (r *billingKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*billingkey.BillingKey, error) {
	var keys []*billingkey.BillingKey
	err := r.client.DB(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&keys).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing keys").
			Mark(ierr.ErrDatabase)
	}
	return keys, nil
}
