package billingkey

import (
	"github.com/tirelane/tirelane/internal/types"
)

// BillingKey is a stored payment instrument: an opaque gateway-side token
// usable to charge the owner without re-collecting card details. Records are
// immutable once created; replacing a card means adding a new key.
type BillingKey struct {
	ID            string `json:"id" gorm:"column:id;primaryKey"`
	OwnerID       string `json:"owner_id" gorm:"column:owner_id;index"`
	GatewayKeyRef string `json:"gateway_key_ref" gorm:"column:gateway_key_ref"`
	CardBrand     string `json:"card_brand" gorm:"column:card_brand"`
	CardLast4     string `json:"card_last4" gorm:"column:card_last4"`
	IsDefault     bool   `json:"is_default" gorm:"column:is_default"`
	types.BaseModel
}

func (BillingKey) TableName() string {
	return "billing_keys"
}
