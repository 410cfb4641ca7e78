package service

import (
	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/payment"
	"github.com/tirelane/tirelane/internal/domain/plan"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	"github.com/tirelane/tirelane/internal/integration/tosspay"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
)

// ServiceParams bundles the dependencies shared by all services. Services
// embed it and pick what they need.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	SubRepo        subscription.Repository
	BillingKeyRepo billingkey.Repository
	PaymentRepo    payment.Repository

	PlanCatalog   *plan.Catalog
	GatewayClient tosspay.GatewayClient
}
