// Package sizing computes order notional and quantity from account balance
// and the configured allocation mode. It never talks to the exchange:
// balance is supplied by the caller, which keeps the sizer pure.
package sizing

import (
	"errors"
	"fmt"
)

// Mode selects the notional allocation formula.
type Mode string

const (
	// ModeFixed allocates a fixed notional per order.
	ModeFixed Mode = "fixed"
	// ModeBalanceScaled allocates the fixed amount plus a percentage of
	// the balance above it.
	ModeBalanceScaled Mode = "balance-scaled"
	// ModeLeveragedFixed allocates the fixed amount multiplied by leverage.
	ModeLeveragedFixed Mode = "leveraged-fixed"
)

// ErrSizing indicates sizing could not be computed from the inputs.
var ErrSizing = errors.New("sizing: invalid input")

// Config holds the sizing parameters.
type Config struct {
	Mode           Mode
	FixedAmount    float64 // base notional in quote currency
	PercentRate    float64 // balance-scaled: rate applied to balance above FixedAmount
	Leverage       int     // leveraged-fixed: multiplier
	MaxOrderAmount float64 // hard notional cap; <= 0 means uncapped
}

// Sizer converts a reference price and balance into an order quantity.
type Sizer struct {
	cfg Config
}

func New(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Notional computes the order's quote-currency value for the configured
// mode. balance is only consulted in balance-scaled mode.
func (s *Sizer) Notional(balance float64) (float64, error) {
	cfg := s.cfg
	var notional float64

	switch cfg.Mode {
	case ModeFixed, "":
		notional = cfg.FixedAmount
	case ModeBalanceScaled:
		excess := balance - cfg.FixedAmount
		if excess < 0 {
			excess = 0
		}
		notional = cfg.FixedAmount + excess*cfg.PercentRate
	case ModeLeveragedFixed:
		lev := cfg.Leverage
		if lev < 1 {
			lev = 1
		}
		notional = cfg.FixedAmount * float64(lev)
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrSizing, cfg.Mode)
	}

	if cfg.MaxOrderAmount > 0 && notional > cfg.MaxOrderAmount {
		notional = cfg.MaxOrderAmount
	}
	return notional, nil
}

// Qty computes the raw (unquantized) order quantity at price.
func (s *Sizer) Qty(balance, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price %v", ErrSizing, price)
	}
	notional, err := s.Notional(balance)
	if err != nil {
		return 0, err
	}
	return notional / price, nil
}
