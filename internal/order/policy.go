package order

import (
	"trade-executor/pkg/exchanges/common"
)

// Policy shapes how entries are placed for one strategy. A single executor
// parameterized by Policy replaces per-variant order paths (market vs
// limit, with/without leverage, with/without forced reversal).
type Policy struct {
	OrderType   common.OrderType   `yaml:"orderType"`
	TimeInForce common.TimeInForce `yaml:"timeInForce"`
	// Leverage is applied once per signal before sizing; 0 leaves the
	// symbol's current leverage untouched.
	Leverage int `yaml:"leverage"`
	// RequireReversal forces a reduce-only close of opposing positions
	// before the entry.
	RequireReversal bool `yaml:"requireReversal"`
	// DefaultStopLossPct attaches a protective stop when the signal
	// carries none: price*(1-pct) for buys, price*(1+pct) for sells.
	// 0 disables.
	DefaultStopLossPct float64 `yaml:"defaultStopLossPct"`
}

// DefaultPolicy mirrors the behavior of the original webhook executor:
// market entries, IOC, forced reversal, 5% protective stop.
func DefaultPolicy() Policy {
	return Policy{
		OrderType:          common.OrderTypeMarket,
		TimeInForce:        common.TIFIOC,
		RequireReversal:    true,
		DefaultStopLossPct: 0.05,
	}
}

// Normalize fills zero values with defaults so a partially specified YAML
// policy stays usable.
func (p Policy) Normalize() Policy {
	if p.OrderType == "" {
		p.OrderType = common.OrderTypeMarket
	}
	if p.TimeInForce == "" {
		if p.OrderType == common.OrderTypeMarket {
			p.TimeInForce = common.TIFIOC
		} else {
			p.TimeInForce = common.TIFGTC
		}
	}
	return p
}
