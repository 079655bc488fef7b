// Package pnl harvests realized profit and loss from the exchange's
// closed-position history, deduplicates it into the ledger, and reports
// per-symbol totals.
package pnl

import (
	"context"
	"fmt"
	"log"
	"time"

	"trade-executor/internal/events"
	"trade-executor/pkg/exchanges/common"
)

// Ledger is the append-only trade history store. Records are identified by
// (symbol, exitPrice, qty, side, closeTime); duplicates are skipped.
type Ledger interface {
	AppendIfAbsent(ctx context.Context, records []common.ClosedTrade) (int, error)
	SumRealizedPnLBySymbol(ctx context.Context) (map[string]float64, error)
}

const fetchLimit = 50

// Recorder pulls closed trades and persists the new ones.
type Recorder struct {
	provider common.ClientProvider
	ledger   Ledger
	bus      *events.Bus
	now      func() time.Time

	// OnRealized, if set, receives the summed realized PnL of each batch
	// of newly recorded trades. Wired to the risk gate's daily counter.
	OnRealized func(pnl float64)
}

func NewRecorder(provider common.ClientProvider, ledger Ledger, bus *events.Bus) *Recorder {
	return &Recorder{
		provider: provider,
		ledger:   ledger,
		bus:      bus,
		now:      time.Now,
	}
}

// Harvest fetches closed trades for symbol within the lookback window,
// appends the ones not yet recorded, publishes a per-symbol summary over
// the whole ledger, and returns only the newly appended records.
func (r *Recorder) Harvest(ctx context.Context, symbol string, lookback time.Duration) ([]common.ClosedTrade, error) {
	if lookback <= 0 {
		lookback = time.Hour
	}

	trades, err := r.provider.Client().GetClosedPnL(ctx, symbol, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch closed pnl for %s: %w", symbol, err)
	}

	cutoff := r.now().Add(-lookback)
	var inserted []common.ClosedTrade
	var realized float64

	// Records are appended one at a time so we know which of them were
	// actually new; the batch is small (bounded by fetchLimit).
	for _, tr := range trades {
		if tr.ClosedAt.Before(cutoff) {
			continue
		}
		n, err := r.ledger.AppendIfAbsent(ctx, []common.ClosedTrade{tr})
		if err != nil {
			return inserted, fmt.Errorf("append closed trade: %w", err)
		}
		if n == 0 {
			continue
		}
		inserted = append(inserted, tr)
		realized += tr.RealizedPnL
	}

	if len(inserted) > 0 {
		log.Printf("pnl: recorded %d closed trades for %s, realized %.2f", len(inserted), symbol, realized)
		if r.bus != nil {
			r.bus.Publish(events.TopicPnLRecorded, events.PnLRecordedEvent{
				Symbol:   symbol,
				Inserted: len(inserted),
				Realized: realized,
			})
		}
		if r.OnRealized != nil {
			r.OnRealized(realized)
		}

		totals, err := r.ledger.SumRealizedPnLBySymbol(ctx)
		if err != nil {
			return inserted, fmt.Errorf("sum ledger pnl: %w", err)
		}
		if r.bus != nil {
			r.bus.Publish(events.TopicPnLSummary, events.PnLSummaryEvent{Totals: totals})
		}
	}

	return inserted, nil
}

// RunPeriodic harvests the given symbols on a fixed interval until ctx is
// done. Errors are logged; the loop keeps running.
func (r *Recorder) RunPeriodic(ctx context.Context, symbols []string, interval, lookback time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, symbol := range symbols {
					if _, err := r.Harvest(ctx, symbol, lookback); err != nil {
						log.Printf("pnl: periodic harvest %s: %v", symbol, err)
					}
				}
			}
		}
	}()
}
