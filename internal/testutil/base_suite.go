package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
	"github.com/tirelane/tirelane/internal/types"
)

// TestOwnerID is the caller identity used by service suites.
const TestOwnerID = "owner_test"

// Stores bundles the in-memory repositories backing a service suite.
type Stores struct {
	SubscriptionRepo *InMemorySubscriptionStore
	PaymentRepo      *InMemoryPaymentStore
	BillingKeyRepo   *InMemoryBillingKeyStore
}

// BaseServiceTestSuite provides common functionality for service tests:
// a caller context, logger, config and fresh in-memory stores per test.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	cfg     *config.Configuration
	log     *logger.Logger
	db      *MockDBClient
	stores  Stores
	gateway *StubGateway
}

// SetupTest sets up fresh state for each test.
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetUserID(context.Background(), TestOwnerID)
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.db = NewMockDBClient()
	s.stores = Stores{
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		BillingKeyRepo:   NewInMemoryBillingKeyStore(),
	}
	s.gateway = NewStubGateway()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.log
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetGateway() *StubGateway {
	return s.gateway
}
