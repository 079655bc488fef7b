// Package position reconciles existing exposure with a signal's desired
// direction: on a direction flip the opposing position is closed with a
// reduce-only market order before the new entry is placed.
package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"trade-executor/internal/events"
	"trade-executor/pkg/exchanges/common"
)

// ErrClose marks a failed reduce-only close. Callers may proceed with the
// entry anyway; doing so risks unintended net exposure and is the caller's
// documented trade-off.
var ErrClose = errors.New("position: close failed")

// Result reports what reconciliation did.
type Result struct {
	Closed []common.Position
}

// Reconciler closes opposing positions ahead of a new entry.
type Reconciler struct {
	provider common.ClientProvider
	bus      *events.Bus
	// pacer spaces successive closes so the exchange's margin
	// recalculation and rate limits are not raced.
	pacer *rate.Limiter
}

// NewReconciler creates a reconciler. closeInterval is the minimum spacing
// between successive close orders.
func NewReconciler(provider common.ClientProvider, bus *events.Bus, closeInterval time.Duration) *Reconciler {
	if closeInterval <= 0 {
		closeInterval = 500 * time.Millisecond
	}
	return &Reconciler{
		provider: provider,
		bus:      bus,
		pacer:    rate.NewLimiter(rate.Every(closeInterval), 1),
	}
}

// Reconcile closes every open position on symbol whose side differs from
// desired. Close failures are collected, not fatal to remaining closes.
func (r *Reconciler) Reconcile(ctx context.Context, symbol string, desired common.Side) (Result, error) {
	return r.close(ctx, symbol, func(p common.Position) bool {
		return p.Side != desired
	})
}

// CloseAll closes every open position on symbol, regardless of side.
func (r *Reconciler) CloseAll(ctx context.Context, symbol string) (Result, error) {
	return r.close(ctx, symbol, func(common.Position) bool { return true })
}

func (r *Reconciler) close(ctx context.Context, symbol string, match func(common.Position) bool) (Result, error) {
	client := r.provider.Client()
	positions, err := client.GetPositions(ctx, symbol)
	if err != nil {
		return Result{}, fmt.Errorf("fetch positions for %s: %w", symbol, err)
	}

	var res Result
	var errs []error
	for _, p := range positions {
		if !match(p) {
			continue
		}
		if err := r.pacer.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}

		req := common.OrderRequest{
			Symbol:      p.Symbol,
			Side:        p.Side.Opposite(),
			Type:        common.OrderTypeMarket,
			Qty:         p.Size,
			TimeInForce: common.TIFIOC,
			ReduceOnly:  true,
		}
		if _, err := client.PlaceOrder(ctx, req); err != nil {
			log.Printf("reconciler: close %s %s size=%g failed: %v", p.Symbol, p.Side, p.Size, err)
			errs = append(errs, fmt.Errorf("%w: %s %s: %v", ErrClose, p.Symbol, p.Side, err))
			continue
		}

		log.Printf("reconciler: closed %s %s size=%g", p.Symbol, p.Side, p.Size)
		res.Closed = append(res.Closed, p)
		if r.bus != nil {
			r.bus.Publish(events.TopicPositionClosed, events.PositionClosedEvent{
				Symbol: p.Symbol,
				Side:   string(p.Side),
				Size:   p.Size,
			})
		}
	}

	return res, errors.Join(errs...)
}
