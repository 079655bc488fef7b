package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-executor/internal/events"
	"trade-executor/pkg/exchanges/common"
	"trade-executor/pkg/exchanges/mock"
)

func newReconciler(c *mock.Client) *Reconciler {
	return NewReconciler(mock.NewProvider(c), events.NewBus(), time.Millisecond)
}

func TestReconcileClosesOpposingPosition(t *testing.T) {
	c := &mock.Client{
		Positions: []common.Position{{Symbol: "ETHUSDT", Side: common.SideSell, Size: 0.5}},
	}

	res, err := newReconciler(c).Reconcile(context.Background(), "ETHUSDT", common.SideBuy)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(res.Closed) != 1 {
		t.Fatalf("closed %d positions, expected 1", len(res.Closed))
	}

	orders := c.PlacedOrders()
	if len(orders) != 1 {
		t.Fatalf("placed %d orders, expected 1", len(orders))
	}
	o := orders[0]
	if o.Side != common.SideBuy {
		t.Errorf("close side=%s, expected Buy (opposite of Sell)", o.Side)
	}
	if !o.ReduceOnly {
		t.Error("close order must be reduce-only")
	}
	if o.Type != common.OrderTypeMarket || o.TimeInForce != common.TIFIOC {
		t.Errorf("close order type/tif=%s/%s, expected Market/IOC", o.Type, o.TimeInForce)
	}
	if o.Qty != 0.5 {
		t.Errorf("close qty=%v, expected full size 0.5", o.Qty)
	}
}

func TestReconcileLeavesAlignedPosition(t *testing.T) {
	c := &mock.Client{
		Positions: []common.Position{{Symbol: "ETHUSDT", Side: common.SideBuy, Size: 0.5}},
	}

	res, err := newReconciler(c).Reconcile(context.Background(), "ETHUSDT", common.SideBuy)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(res.Closed) != 0 || len(c.PlacedOrders()) != 0 {
		t.Fatalf("aligned position was closed: %+v", res)
	}
}

func TestCloseAllClosesBothSides(t *testing.T) {
	// Hedge-mode account holding both sides.
	c := &mock.Client{
		Positions: []common.Position{
			{Symbol: "ETHUSDT", Side: common.SideBuy, Size: 0.3},
			{Symbol: "ETHUSDT", Side: common.SideSell, Size: 0.2},
		},
	}

	res, err := newReconciler(c).CloseAll(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("CloseAll failed: %v", err)
	}
	if len(res.Closed) != 2 {
		t.Fatalf("closed %d positions, expected 2", len(res.Closed))
	}
	for _, o := range c.PlacedOrders() {
		if !o.ReduceOnly {
			t.Errorf("close order not reduce-only: %+v", o)
		}
	}
}

func TestCloseFailureIsSurfacedNotFatal(t *testing.T) {
	c := &mock.Client{
		Positions: []common.Position{
			{Symbol: "ETHUSDT", Side: common.SideSell, Size: 0.2},
			{Symbol: "ETHUSDT", Side: common.SideSell, Size: 0.3},
		},
		PlaceErrs: []error{errors.New("insufficient margin"), nil},
	}

	res, err := newReconciler(c).Reconcile(context.Background(), "ETHUSDT", common.SideBuy)
	if !errors.Is(err, ErrClose) {
		t.Fatalf("expected ErrClose, got %v", err)
	}
	// Second close still attempted and succeeded.
	if len(res.Closed) != 1 {
		t.Fatalf("closed %d positions, expected 1 despite first failure", len(res.Closed))
	}
	if len(c.PlacedOrders()) != 2 {
		t.Fatalf("placed %d orders, expected 2", len(c.PlacedOrders()))
	}
}

func TestReconcileNoPositions(t *testing.T) {
	c := &mock.Client{}
	res, err := newReconciler(c).Reconcile(context.Background(), "ETHUSDT", common.SideBuy)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(res.Closed) != 0 {
		t.Fatalf("unexpected closes: %+v", res)
	}
}
