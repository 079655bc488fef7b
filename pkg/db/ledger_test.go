package db

import (
	"context"
	"math"
	"testing"
	"time"

	"trade-executor/pkg/exchanges/common"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func record(symbol string, pnl float64, closedAt time.Time) common.ClosedTrade {
	return common.ClosedTrade{
		Symbol:      symbol,
		Side:        common.SideSell,
		Qty:         0.12,
		ExitPrice:   2500,
		RealizedPnL: pnl,
		ClosedAt:    closedAt,
	}
}

func TestAppendIfAbsentDeduplicates(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	closedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	r := record("ETHUSDT", 12.5, closedAt)

	n, err := l.AppendIfAbsent(ctx, []common.ClosedTrade{r})
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("first append inserted %d, expected 1", n)
	}

	// Same identity key again: nothing inserted, totals unchanged.
	n, err = l.AppendIfAbsent(ctx, []common.ClosedTrade{r})
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("second append inserted %d, expected 0", n)
	}

	totals, err := l.SumRealizedPnLBySymbol(ctx)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if math.Abs(totals["ETHUSDT"]-12.5) > 1e-9 {
		t.Fatalf("total=%v, expected 12.5", totals["ETHUSDT"])
	}
}

func TestAppendIfAbsentMixedBatch(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	first := record("ETHUSDT", 10, base)
	if _, err := l.AppendIfAbsent(ctx, []common.ClosedTrade{first}); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}

	// Batch with one duplicate and two new rows.
	batch := []common.ClosedTrade{
		first,
		record("ETHUSDT", -4, base.Add(10*time.Minute)),
		record("BTCUSDT", 7, base.Add(20*time.Minute)),
	}
	n, err := l.AppendIfAbsent(ctx, batch)
	if err != nil {
		t.Fatalf("batch append failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("batch inserted %d, expected 2", n)
	}

	totals, err := l.SumRealizedPnLBySymbol(ctx)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if math.Abs(totals["ETHUSDT"]-6) > 1e-9 {
		t.Fatalf("ETHUSDT total=%v, expected 6", totals["ETHUSDT"])
	}
	if math.Abs(totals["BTCUSDT"]-7) > 1e-9 {
		t.Fatalf("BTCUSDT total=%v, expected 7", totals["BTCUSDT"])
	}
}

func TestAppendIfAbsentEmptyBatch(t *testing.T) {
	l := newTestLedger(t)
	n, err := l.AppendIfAbsent(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty append failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("empty append inserted %d", n)
	}
}

func TestRecentBySymbol(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	batch := []common.ClosedTrade{
		record("ETHUSDT", 1, base),
		record("ETHUSDT", 2, base.Add(time.Hour)),
		record("BTCUSDT", 3, base),
	}
	if _, err := l.AppendIfAbsent(ctx, batch); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	recent, err := l.RecentBySymbol(ctx, "ETHUSDT", 10)
	if err != nil {
		t.Fatalf("recent query failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, expected 2", len(recent))
	}
	if !recent[0].ClosedAt.After(recent[1].ClosedAt) {
		t.Fatalf("records not newest-first: %v, %v", recent[0].ClosedAt, recent[1].ClosedAt)
	}
}
