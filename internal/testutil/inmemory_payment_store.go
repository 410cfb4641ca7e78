package testutil

import (
	"context"
	"sort"

	"github.com/tirelane/tirelane/internal/domain/payment"
	ierr "github.com/tirelane/tirelane/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

// NewInMemoryPaymentStore creates a new in-memory payment store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	copied := *p
	if p.PaidAt != nil {
		paidAt := *p.PaidAt
		copied.PaidAt = &paidAt
	}
	if p.NextRetryAt != nil {
		nextRetryAt := *p.NextRetryAt
		copied.NextRetryAt = &nextRetryAt
	}
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	duplicates := s.InMemoryStore.List(ctx, func(existing *payment.Payment) bool {
		return existing.OrderKey == p.OrderKey
	})
	if len(duplicates) > 0 {
		return ierr.NewErrorf("payment with order key %s already exists", p.OrderKey).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) GetByOrderKey(ctx context.Context, orderKey string) (*payment.Payment, error) {
	matches := s.InMemoryStore.List(ctx, func(p *payment.Payment) bool {
		return p.OrderKey == orderKey
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("payment with order key %s not found", orderKey).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(matches[0]), nil
}

func (s *InMemoryPaymentStore) ListRecentBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*payment.Payment, error) {
	matches := s.InMemoryStore.List(ctx, func(p *payment.Payment) bool {
		return p.SubscriptionID == subscriptionID
	})

	// Most recent first; insertion order breaks same-timestamp ties.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return s.Seq(matches[i].ID) > s.Seq(matches[j].ID)
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	result := make([]*payment.Payment, 0, len(matches))
	for _, p := range matches {
		result = append(result, copyPayment(p))
	}
	return result, nil
}
