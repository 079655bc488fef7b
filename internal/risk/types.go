package risk

import (
	"errors"
	"fmt"
	"time"

	"trade-executor/pkg/exchanges/common"
)

// Rejection sentinels. Everything here is a pre-trade rejection: cheap,
// evaluated before any network call, and never retried.
var (
	ErrHalted     = errors.New("risk: daily-loss halt active")
	ErrCooldown   = errors.New("risk: cooldown active")
	ErrPriceDelta = errors.New("risk: price delta below threshold")
	ErrDirection  = errors.New("risk: stop/target inconsistent with direction")
	ErrInFlight   = errors.New("risk: execution already in flight")
)

// CooldownError carries the remaining cooldown for notification text.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("risk: cooldown active, %s remaining", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// Key identifies the state bucket for one strategy/symbol pair.
type Key struct {
	Strategy string
	Symbol   string
}

func (k Key) String() string { return k.Strategy + "/" + k.Symbol }

// Config holds the gate's thresholds.
type Config struct {
	// Cooldown is the minimum interval between committed placements for
	// the same key.
	Cooldown time.Duration
	// MinPriceDelta rejects signals whose price moved less than this from
	// the key's last committed price. Zero disables the filter.
	MinPriceDelta float64
	// MaxLossPerDay trips the global halt once cumulative realized loss
	// for the calendar day exceeds it. Zero disables the breaker.
	MaxLossPerDay float64
	// StrictDirection controls the stop/target consistency check: true
	// hard-rejects an inverted field, false drops the field and admits.
	StrictDirection bool
}

// Input is the slice of a signal the gate evaluates.
type Input struct {
	Side       common.Side
	Price      float64
	StopLoss   float64 // 0 = none
	TakeProfit float64 // 0 = none
}

// Admission is a successful gate decision. Stop/target may differ from the
// input when lenient direction checking cleared an inverted field.
type Admission struct {
	StopLoss      float64
	TakeProfit    float64
	ClearedStop   bool
	ClearedTarget bool
}
