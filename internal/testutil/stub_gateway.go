package testutil

import (
	"context"
	"sync"

	"github.com/tirelane/tirelane/internal/integration/tosspay"
)

// StubGateway implements tosspay.GatewayClient with scriptable outcomes.
// By default every charge succeeds.
type StubGateway struct {
	mu sync.Mutex

	// DeclineWith makes all charges fail with this reason when non-empty.
	DeclineWith string

	// Requests records every charge request in order.
	Requests []tosspay.ChargeRequest
}

var _ tosspay.GatewayClient = (*StubGateway)(nil)

func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

func (g *StubGateway) ChargeBillingKey(_ context.Context, req tosspay.ChargeRequest) (*tosspay.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Requests = append(g.Requests, req)

	if g.DeclineWith != "" {
		return &tosspay.ChargeResult{
			Success:       false,
			FailureReason: g.DeclineWith,
		}, nil
	}
	return &tosspay.ChargeResult{
		Success:          true,
		GatewayPaymentID: "gw_" + req.OrderKey,
	}, nil
}

// CallCount returns how many charges were attempted.
func (g *StubGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// LastRequest returns the most recent charge request, or nil.
func (g *StubGateway) LastRequest() *tosspay.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return nil
	}
	req := g.Requests[len(g.Requests)-1]
	return &req
}
