package engine

import (
	"fmt"
	"strings"
	"time"

	"trade-executor/pkg/exchanges/common"
)

// Direction is the requested action of an inbound signal.
type Direction string

const (
	DirectionBuy   Direction = "buy"
	DirectionSell  Direction = "sell"
	DirectionClose Direction = "close"
)

// ParseDirection accepts the alert-message spellings ("buy", "SELL",
// "close") and normalizes them.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	case DirectionClose:
		return DirectionClose, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Side maps an entry direction to the order side. Close has no side.
func (d Direction) Side() (common.Side, bool) {
	switch d {
	case DirectionBuy:
		return common.SideBuy, true
	case DirectionSell:
		return common.SideSell, true
	default:
		return "", false
	}
}

// Signal is one normalized trade instruction, typically decoded from a
// TradingView alert webhook.
type Signal struct {
	Strategy  string
	Symbol    string
	Direction Direction
	Price     float64
	Interval  string
	// StopLoss and TakeProfit are optional; 0 means unset.
	StopLoss   float64
	TakeProfit float64
	At         time.Time
}

// Validate rejects signals the pipeline cannot act on. Close signals do
// not require a price.
func (s Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal: missing symbol")
	}
	switch s.Direction {
	case DirectionBuy, DirectionSell:
		if s.Price <= 0 {
			return fmt.Errorf("signal: non-positive price %v", s.Price)
		}
	case DirectionClose:
	default:
		return fmt.Errorf("signal: unknown direction %q", s.Direction)
	}
	return nil
}

// Status classifies the outcome of handling a signal.
type Status string

const (
	// StatusPlaced means an entry order was accepted by the exchange.
	StatusPlaced Status = "placed"
	// StatusClosed means a close signal flattened the symbol.
	StatusClosed Status = "closed"
	// StatusRejected means a pre-trade check refused the signal.
	StatusRejected Status = "rejected"
	// StatusFailed means execution was attempted and did not succeed.
	StatusFailed Status = "failed"
)

// Outcome reports what happened to a signal.
type Outcome struct {
	Status  Status
	Reason  string // set for rejected/failed
	OrderID string // set for placed
	Qty     float64
}
