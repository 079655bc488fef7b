package bybit

import (
	"context"
	"log"
	"sync"

	"trade-executor/pkg/exchanges/common"
)

// Provider implements common.ClientProvider for Bybit. Reset replaces the
// session wholesale on the assumption that a persistently failing client
// may carry poisoned connection state; in-flight calls on the old client
// keep their reference and finish undisturbed.
type Provider struct {
	cfg Config

	mu      sync.RWMutex
	current *Client
	resets  int
	syncCtx context.Context
}

func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg, current: NewClient(cfg)}
}

// Client returns the current session.
func (p *Provider) Client() common.ExchangeClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// StartTimeSync enables background clock-offset correction on the current
// session and every session built by a later Reset, until ctx is done.
func (p *Provider) StartTimeSync(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncCtx = ctx
	p.current.StartTimeSync(ctx)
}

// Reset discards the current session and builds a fresh one.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.current = NewClient(p.cfg)
	if p.syncCtx != nil {
		p.current.StartTimeSync(p.syncCtx)
	}
	log.Printf("bybit: client reset (#%d)", p.resets)
}

// Resets returns how many times the session has been replaced.
func (p *Provider) Resets() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resets
}
