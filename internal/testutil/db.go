package testutil

import (
	"context"

	"gorm.io/gorm"

	"github.com/tirelane/tirelane/internal/postgres"
)

// MockDBClient implements postgres.IClient for tests backed by in-memory
// stores. WithTx has no transactional semantics: the in-memory stores apply
// writes immediately, which is fine for the properties the suites assert.
type MockDBClient struct{}

var _ postgres.IClient = (*MockDBClient)(nil)

func NewMockDBClient() *MockDBClient {
	return &MockDBClient{}
}

func (c *MockDBClient) DB(_ context.Context) *gorm.DB {
	return nil
}

func (c *MockDBClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *MockDBClient) Ping(_ context.Context) error {
	return nil
}
