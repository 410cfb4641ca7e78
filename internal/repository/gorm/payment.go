package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tirelane/tirelane/internal/domain/payment"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
)

type paymentRepository struct {
	client postgres.IClient
	log    *logger.Logger
}

// NewPaymentRepository creates a postgres-backed payment history repository.
func NewPaymentRepository(client postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.client.DB(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.WithError(err).
				WithHint("A payment with this order key already exists").
				WithReportableDetails(map[string]interface{}{
					"order_key": p.OrderKey,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	result := r.client.DB(ctx).Model(&payment.Payment{}).
		Where("id = ?", p.ID).
		Select("payment_status", "failure_reason", "paid_at", "next_retry_at", "updated_at", "updated_by").
		Updates(p)
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to update payment").
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewErrorf("payment %s not found", p.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.client.DB(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("payment %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) GetByOrderKey(ctx context.Context, orderKey string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.client.DB(ctx).Where("order_key = ?", orderKey).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("payment with order key %s not found", orderKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) ListRecentBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.client.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at desc").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}
