package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trade-executor/internal/api"
	"trade-executor/internal/engine"
	"trade-executor/internal/events"
	"trade-executor/internal/order"
	"trade-executor/internal/pnl"
	"trade-executor/internal/position"
	"trade-executor/internal/risk"
	"trade-executor/internal/sizing"
	"trade-executor/pkg/cache"
	"trade-executor/pkg/db"
	"trade-executor/pkg/exchanges/common"
	"trade-executor/pkg/exchanges/mock"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

// buildStack wires the full pipeline against a mock exchange and an
// in-memory ledger, mirroring the production wiring in main.
func buildStack(t *testing.T, client *mock.Client, riskCfg risk.Config) (*api.Server, *db.Ledger, *risk.Gate) {
	t.Helper()

	ledger, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	bus := events.NewBus()
	provider := mock.NewProvider(client)
	gate := risk.NewGate(riskCfg, bus)

	recorder := pnl.NewRecorder(provider, ledger, bus)
	recorder.OnRealized = func(realized float64) { gate.RecordRealized(realized) }

	eng := engine.New(engine.Config{
		Provider:   provider,
		Gate:       gate,
		Sizer:      sizing.New(sizing.Config{Mode: sizing.ModeFixed, FixedAmount: 100}),
		Reconciler: position.NewReconciler(provider, bus, time.Millisecond),
		Executor:   order.NewExecutor(provider, bus, order.Config{MaxAttempts: 2, RetryMin: time.Millisecond, RetryMax: time.Millisecond}),
		Recorder:   recorder,
		Bus:        bus,
		Specs:      cache.NewSpecCache(time.Minute),
	})
	return api.NewServer(eng, "", api.SystemMeta{Venue: "mock"}), ledger, gate
}

func postWebhook(t *testing.T, s *api.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestFullSignalWorkflow(t *testing.T) {
	now := time.Now()
	client := &mock.Client{
		Balance: 1000,
		Spec:    common.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.05, QtyStep: 0.01, MinQty: 0.01},
		Closed: []common.ClosedTrade{
			{Symbol: "ETHUSDT", Side: common.SideSell, Qty: 0.04, ExitPrice: 2450, RealizedPnL: 6.5, ClosedAt: now.Add(-time.Minute)},
		},
	}
	server, ledger, _ := buildStack(t, client, risk.Config{Cooldown: 10 * time.Minute})

	// First buy goes through: order on the exchange, trade in the ledger.
	w := postWebhook(t, server, `{"action":"buy","symbol":"ETHUSDT","price":2500,"strategy":"trend"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("buy: status %d, body %s", w.Code, w.Body.String())
	}
	orders := client.PlacedOrders()
	if len(orders) != 1 || orders[0].Qty != 0.04 {
		t.Fatalf("orders = %+v", orders)
	}
	totals, err := ledger.SumRealizedPnLBySymbol(context.Background())
	if err != nil || totals["ETHUSDT"] != 6.5 {
		t.Fatalf("ledger totals = %v, %v", totals, err)
	}

	// Second buy inside the cooldown is rejected and never reaches the
	// exchange.
	w = postWebhook(t, server, `{"action":"buy","symbol":"ETHUSDT","price":2520,"strategy":"trend"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("cooldown: status %d, body %s", w.Code, w.Body.String())
	}
	if len(client.PlacedOrders()) != 1 {
		t.Fatal("rejected signal reached the exchange")
	}
}

func TestCloseSignalFlattensAndHarvests(t *testing.T) {
	client := &mock.Client{
		Balance:   1000,
		Spec:      common.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.05, QtyStep: 0.01, MinQty: 0.01},
		Positions: []common.Position{{Symbol: "ETHUSDT", Side: common.SideBuy, Size: 0.04}},
		Closed: []common.ClosedTrade{
			{Symbol: "ETHUSDT", Side: common.SideBuy, Qty: 0.04, ExitPrice: 2550, RealizedPnL: 2, ClosedAt: time.Now()},
		},
	}
	server, ledger, _ := buildStack(t, client, risk.Config{})

	w := postWebhook(t, server, `{"action":"close","symbol":"ETHUSDT","strategy":"trend"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("close: status %d, body %s", w.Code, w.Body.String())
	}
	orders := client.PlacedOrders()
	if len(orders) != 1 || !orders[0].ReduceOnly || orders[0].Side != common.SideSell {
		t.Fatalf("close orders = %+v", orders)
	}
	rows, err := ledger.RecentBySymbol(context.Background(), "ETHUSDT", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ledger rows = %v, %v", rows, err)
	}
}

func TestDailyLossHaltEndToEnd(t *testing.T) {
	client := &mock.Client{
		Balance: 1000,
		Spec:    common.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.05, QtyStep: 0.01, MinQty: 0.01},
		Closed: []common.ClosedTrade{
			{Symbol: "ETHUSDT", Side: common.SideBuy, Qty: 0.04, ExitPrice: 2300, RealizedPnL: -60, ClosedAt: time.Now()},
		},
	}
	server, _, gate := buildStack(t, client, risk.Config{MaxLossPerDay: 50})

	// The fill's harvested loss exceeds the daily budget and trips the
	// breaker.
	if w := postWebhook(t, server, `{"action":"buy","symbol":"ETHUSDT","price":2500}`); w.Code != http.StatusOK {
		t.Fatalf("entry: status %d, body %s", w.Code, w.Body.String())
	}
	if !gate.Halted() {
		t.Fatal("breaker not tripped after harvested loss")
	}

	w := postWebhook(t, server, `{"action":"sell","symbol":"BTCUSDT","price":64000}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("halted: status %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "halt") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRetryRecoversFlakyExchange(t *testing.T) {
	client := &mock.Client{
		Balance:   1000,
		Spec:      common.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.05, QtyStep: 0.01, MinQty: 0.01},
		PlaceErrs: []error{context.DeadlineExceeded, nil},
	}
	server, _, _ := buildStack(t, client, risk.Config{})

	w := postWebhook(t, server, `{"action":"buy","symbol":"ETHUSDT","price":2500}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if got := len(client.PlacedOrders()); got != 2 {
		t.Errorf("place attempts = %d, want 2", got)
	}
}
