// Package mock provides an in-memory ExchangeClient for tests.
package mock

import (
	"context"
	"sync"

	"trade-executor/pkg/exchanges/common"
)

// Client is a configurable fake exchange. Zero value is usable; set the
// fields a test cares about. All methods are safe for concurrent use.
type Client struct {
	mu sync.Mutex

	Balance   float64
	Spec      common.SymbolSpec
	Positions []common.Position
	Closed    []common.ClosedTrade

	// Errors returned by the corresponding calls, nil for success.
	BalanceErr  error
	SpecErr     error
	PositionErr error
	LeverageErr error
	PlaceErr    error
	ClosedErr   error

	// PlaceErrs, when non-empty, is consumed one error per PlaceOrder
	// call (nil entries mean success); after exhaustion PlaceErr applies.
	PlaceErrs []error

	// Recorded calls.
	Orders       []common.OrderRequest
	LeverageSets []int
	SpecCalls    int

	NextOrderID string
}

func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balance, c.BalanceErr
}

func (c *Client) GetSymbolSpec(ctx context.Context, symbol string) (common.SymbolSpec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpecCalls++
	return c.Spec, c.SpecErr
}

func (c *Client) GetPositions(ctx context.Context, symbol string) ([]common.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Position(nil), c.Positions...), c.PositionErr
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LeverageSets = append(c.LeverageSets, leverage)
	return c.LeverageErr
}

func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Orders = append(c.Orders, req)

	var err error
	if len(c.PlaceErrs) > 0 {
		err = c.PlaceErrs[0]
		c.PlaceErrs = c.PlaceErrs[1:]
	} else {
		err = c.PlaceErr
	}
	if err != nil {
		return common.OrderResult{}, err
	}

	id := c.NextOrderID
	if id == "" {
		id = "mock-order"
	}
	return common.OrderResult{OrderID: id, ClientID: req.ClientID}, nil
}

func (c *Client) GetClosedPnL(ctx context.Context, symbol string, limit int) ([]common.ClosedTrade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.ClosedTrade(nil), c.Closed...), c.ClosedErr
}

// PlacedOrders returns a copy of the recorded order requests.
func (c *Client) PlacedOrders() []common.OrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.OrderRequest(nil), c.Orders...)
}

// Provider wraps a Client as a common.ClientProvider and counts resets.
type Provider struct {
	mu         sync.Mutex
	C          *Client
	ResetCount int
	// OnReset, if set, is invoked on each Reset (e.g. to swap C for a
	// healthy client mid-test).
	OnReset func(p *Provider)
}

func NewProvider(c *Client) *Provider { return &Provider{C: c} }

func (p *Provider) Client() common.ExchangeClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.C
}

func (p *Provider) Reset() {
	p.mu.Lock()
	p.ResetCount++
	p.mu.Unlock()
	if p.OnReset != nil {
		p.OnReset(p)
	}
}

func (p *Provider) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ResetCount
}
