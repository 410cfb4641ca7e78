package types

import (
	ierr "github.com/tirelane/tirelane/internal/errors"
)

// PlanTier is the closed set of sellable plans.
type PlanTier string

const (
	PlanTierFree    PlanTier = "FREE"
	PlanTierStarter PlanTier = "STARTER"
	PlanTierPro     PlanTier = "PRO"
)

func (p PlanTier) String() string {
	return string(p)
}

func (p PlanTier) Validate() error {
	switch p {
	case PlanTierFree, PlanTierStarter, PlanTierPro:
		return nil
	default:
		return ierr.NewErrorf("invalid plan: %s", p).
			WithHint("Plan must be one of FREE, STARTER, PRO").
			WithReportableDetails(map[string]interface{}{
				"plan": string(p),
			}).
			Mark(ierr.ErrValidation)
	}
}

// IsFree reports whether the tier bypasses charging entirely.
func (p PlanTier) IsFree() bool {
	return p == PlanTierFree
}
