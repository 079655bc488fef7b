package common

import "time"

// Side denotes order side, using the exchange's capitalization.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the closing side for a position held on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// SymbolSpec describes the exchange's trading grid for an instrument.
type SymbolSpec struct {
	Symbol   string
	TickSize float64 // minimum price increment
	QtyStep  float64 // minimum quantity increment
	MinQty   float64 // smallest accepted order size
}

// Position is one open position on a symbol. One-way accounts hold at most
// one per symbol; hedge-mode accounts may hold both sides, so position
// queries always return a list.
type Position struct {
	Symbol string
	Side   Side
	Size   float64
}

// OrderRequest captures an order intent to be sent to the exchange.
// Price and Qty must already be quantized to the symbol's grid.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Qty         float64
	Price       float64 // required for Limit
	StopLoss    float64 // 0 = none
	TakeProfit  float64 // 0 = none
	TimeInForce TimeInForce
	ReduceOnly  bool
	ClientID    string // optional client order id
}

// OrderResult returns the exchange ack.
type OrderResult struct {
	OrderID  string
	ClientID string
}

// ClosedTrade is one realized-PnL record from the exchange's closed-PnL
// history.
type ClosedTrade struct {
	Symbol      string
	Side        Side // side of the closing order
	Qty         float64
	ExitPrice   float64
	RealizedPnL float64
	ClosedAt    time.Time // UTC
}
