package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tirelane/tirelane/internal/domain/subscription"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
	"github.com/tirelane/tirelane/internal/types"
)

type subscriptionRepository struct {
	client postgres.IClient
	log    *logger.Logger
}

// NewSubscriptionRepository creates a postgres-backed subscription repository.
func NewSubscriptionRepository(client postgres.IClient, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, log: log}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := r.client.DB(ctx).Create(sub).Error; err != nil {
		// The partial unique index on owner_id serializes concurrent creates
		// for the same owner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.WithError(err).
				WithHint("A subscription already exists for this owner").
				WithReportableDetails(map[string]interface{}{
					"owner_id": sub.OwnerID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.client.DB(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	sub.UpdatedAt = time.Now().UTC()
	result := r.client.DB(ctx).Model(&subscription.Subscription{}).
		Where("id = ?", sub.ID).
		Select("*").Omit("id", "created_at", "created_by").
		Updates(sub)
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewErrorf("subscription %s not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.DB(ctx).Where("id = ?", id).
		Delete(&subscription.Subscription{}).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetCurrentForOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.client.DB(ctx).
		Where("owner_id = ? AND subscription_status IN ?", ownerID, []types.SubscriptionStatus{
			types.SubscriptionStatusActive,
			types.SubscriptionStatusInactive,
		}).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("no current subscription for owner %s", ownerID).
				WithHint("No subscription found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetActiveForOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.client.DB(ctx).
		Where("owner_id = ? AND subscription_status = ?", ownerID, types.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("no active subscription for owner %s", ownerID).
				WithHint("No active subscription found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListDue(ctx context.Context, before time.Time) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	err := r.client.DB(ctx).
		Where("subscription_status = ? AND next_billing_date < ?", types.SubscriptionStatusActive, before).
		Order("next_billing_date asc").
		Find(&subs).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list due subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}
