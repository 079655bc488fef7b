// Package quant rounds prices and quantities onto an instrument's trading
// grid. Exchanges reject values that are not exact multiples of the tick
// size (price) or qty step (quantity), so every outbound order passes
// through here last, after sizing.
package quant

import (
	"errors"

	"github.com/shopspring/decimal"

	"trade-executor/pkg/exchanges/common"
)

// ErrInvalidSpec indicates a symbol spec with a non-positive tick or step.
var ErrInvalidSpec = errors.New("quant: invalid symbol spec")

// Price rounds price to the nearest multiple of tickSize. Ties round half
// away from zero. The result is an exact grid multiple: the arithmetic is
// done in decimal, so no binary-float drift is introduced.
func Price(price, tickSize float64) (float64, error) {
	if tickSize <= 0 {
		return 0, ErrInvalidSpec
	}
	p := decimal.NewFromFloat(price)
	tick := decimal.NewFromFloat(tickSize)
	steps := p.Div(tick).Round(0)
	out, _ := steps.Mul(tick).Float64()
	return out, nil
}

// Qty rounds qty to the nearest multiple of qtyStep and floors the result
// at minQty. Same rounding rule as Price.
func Qty(qty, qtyStep, minQty float64) (float64, error) {
	if qtyStep <= 0 {
		return 0, ErrInvalidSpec
	}
	out, err := Price(qty, qtyStep)
	if err != nil {
		return 0, err
	}
	if out < minQty {
		out = minQty
	}
	return out, nil
}

// Order quantizes an order's price, stop, target, and quantity against the
// symbol spec in one pass.
func Order(req *common.OrderRequest, spec common.SymbolSpec) error {
	if spec.TickSize <= 0 || spec.QtyStep <= 0 {
		return ErrInvalidSpec
	}
	var err error
	if req.Price != 0 {
		if req.Price, err = Price(req.Price, spec.TickSize); err != nil {
			return err
		}
	}
	if req.StopLoss != 0 {
		if req.StopLoss, err = Price(req.StopLoss, spec.TickSize); err != nil {
			return err
		}
	}
	if req.TakeProfit != 0 {
		if req.TakeProfit, err = Price(req.TakeProfit, spec.TickSize); err != nil {
			return err
		}
	}
	req.Qty, err = Qty(req.Qty, spec.QtyStep, spec.MinQty)
	return err
}
