package pnl

import (
	"context"
	"testing"
	"time"

	"trade-executor/internal/events"
	"trade-executor/pkg/db"
	"trade-executor/pkg/exchanges/common"
	"trade-executor/pkg/exchanges/mock"
)

func newTestLedger(t *testing.T) *db.Ledger {
	t.Helper()
	ledger, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestHarvestRecordsNewTrades(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &mock.Client{Closed: []common.ClosedTrade{
		{Symbol: "ETHUSDT", Side: common.SideBuy, Qty: 0.5, ExitPrice: 2400, RealizedPnL: 12.5, ClosedAt: now.Add(-10 * time.Minute)},
		{Symbol: "ETHUSDT", Side: common.SideSell, Qty: 0.3, ExitPrice: 2350, RealizedPnL: -4, ClosedAt: now.Add(-30 * time.Minute)},
	}}
	ledger := newTestLedger(t)
	bus := events.NewBus()
	recorded, _ := bus.Subscribe(events.TopicPnLRecorded, 4)
	summary, _ := bus.Subscribe(events.TopicPnLSummary, 4)

	var realized float64
	r := NewRecorder(mock.NewProvider(client), ledger, bus)
	r.now = func() time.Time { return now }
	r.OnRealized = func(pnl float64) { realized = pnl }

	inserted, err := r.Harvest(context.Background(), "ETHUSDT", time.Hour)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("inserted = %d, want 2", len(inserted))
	}
	if realized != 8.5 {
		t.Errorf("OnRealized got %v, want 8.5", realized)
	}

	select {
	case p := <-recorded:
		ev := p.(events.PnLRecordedEvent)
		if ev.Symbol != "ETHUSDT" || ev.Inserted != 2 || ev.Realized != 8.5 {
			t.Errorf("recorded event = %+v", ev)
		}
	default:
		t.Fatal("no pnl.recorded event published")
	}
	select {
	case p := <-summary:
		ev := p.(events.PnLSummaryEvent)
		if ev.Totals["ETHUSDT"] != 8.5 {
			t.Errorf("summary totals = %v", ev.Totals)
		}
	default:
		t.Fatal("no pnl.summary event published")
	}
}

func TestHarvestSkipsDuplicatesAcrossRuns(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	trade := common.ClosedTrade{Symbol: "BTCUSDT", Side: common.SideBuy, Qty: 0.01, ExitPrice: 64000, RealizedPnL: 20, ClosedAt: now.Add(-5 * time.Minute)}
	client := &mock.Client{Closed: []common.ClosedTrade{trade}}
	r := NewRecorder(mock.NewProvider(client), newTestLedger(t), nil)
	r.now = func() time.Time { return now }

	if inserted, err := r.Harvest(context.Background(), "BTCUSDT", time.Hour); err != nil || len(inserted) != 1 {
		t.Fatalf("first harvest: inserted=%d err=%v", len(inserted), err)
	}
	inserted, err := r.Harvest(context.Background(), "BTCUSDT", time.Hour)
	if err != nil {
		t.Fatalf("second harvest: %v", err)
	}
	if len(inserted) != 0 {
		t.Errorf("second harvest inserted %d records, want 0", len(inserted))
	}
}

func TestHarvestRespectsLookbackWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &mock.Client{Closed: []common.ClosedTrade{
		{Symbol: "ETHUSDT", Side: common.SideBuy, Qty: 0.5, ExitPrice: 2400, RealizedPnL: 5, ClosedAt: now.Add(-10 * time.Minute)},
		{Symbol: "ETHUSDT", Side: common.SideBuy, Qty: 0.5, ExitPrice: 2300, RealizedPnL: 7, ClosedAt: now.Add(-3 * time.Hour)},
	}}
	r := NewRecorder(mock.NewProvider(client), newTestLedger(t), nil)
	r.now = func() time.Time { return now }

	inserted, err := r.Harvest(context.Background(), "ETHUSDT", time.Hour)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if len(inserted) != 1 || inserted[0].ExitPrice != 2400 {
		t.Fatalf("inserted = %+v, want only the recent trade", inserted)
	}
}

func TestHarvestFetchError(t *testing.T) {
	client := &mock.Client{ClosedErr: context.DeadlineExceeded}
	r := NewRecorder(mock.NewProvider(client), newTestLedger(t), nil)

	if _, err := r.Harvest(context.Background(), "ETHUSDT", time.Hour); err == nil {
		t.Fatal("expected error from failed closed-pnl fetch")
	}
}
