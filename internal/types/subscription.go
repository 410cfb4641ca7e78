package types

import (
	ierr "github.com/tirelane/tirelane/internal/errors"
)

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	// SubscriptionStatusActive means the subscription bills on its cadence.
	SubscriptionStatusActive SubscriptionStatus = "ACTIVE"
	// SubscriptionStatusInactive means the subscription exists but does not
	// bill (free tier parked state); it is still the owner's one subscription.
	SubscriptionStatusInactive SubscriptionStatus = "INACTIVE"
	// SubscriptionStatusCanceled is set by an explicit owner cancellation.
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	// SubscriptionStatusSuspended is set after the dunning window is
	// exhausted; the daily pass never picks suspended subscriptions up again.
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusInactive,
		SubscriptionStatusCanceled, SubscriptionStatusSuspended:
		return nil
	default:
		return ierr.NewErrorf("invalid subscription status: %s", s).
			WithHint("Subscription status must be one of ACTIVE, INACTIVE, CANCELED, SUSPENDED").
			Mark(ierr.ErrValidation)
	}
}

// PaymentStatus is the outcome recorded for one charge attempt.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusPending PaymentStatus = "PENDING"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusPending:
		return nil
	default:
		return ierr.NewErrorf("invalid payment status: %s", s).
			Mark(ierr.ErrValidation)
	}
}
