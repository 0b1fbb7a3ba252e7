package payment

import (
	"context"
	"fmt"
	"sync"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/adapter"
)

var _ adapter.ChargeFetcher = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory charge source for tests and local demos.
// Charges are registered up front; fetches of unknown ids fail the way a
// gateway 404 would.
type NoopGateway struct {
	mu      sync.Mutex
	charges map[string]*model.Charge
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{charges: make(map[string]*model.Charge)}
}

func (g *NoopGateway) Name() string { return "noop" }

// Register makes a charge fetchable. A copy is stored so later mutation by
// the caller cannot change what "the gateway" reports.
func (g *NoopGateway) Register(c *model.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *c
	g.charges[c.ID] = &cp
}

func (g *NoopGateway) FetchCharge(ctx context.Context, chargeID string) (*model.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.charges[chargeID]
	if !ok {
		return nil, fmt.Errorf("noop: charge %s not found", chargeID)
	}
	cp := *c
	return &cp, nil
}
