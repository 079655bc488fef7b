// Package risk implements stateful admission control for trade signals:
// per-key cooldown and price-delta suppression, stop/target direction
// consistency, and a global daily-loss circuit breaker. The gate owns all
// of this state; other components only reach it through Admit/Commit.
package risk

import (
	"log"
	"math"
	"sync"
	"time"

	"trade-executor/internal/events"
	"trade-executor/pkg/exchanges/common"
)

// Gate is the admission controller. Admit reserves a key, Commit records a
// confirmed placement and releases it, Release abandons the reservation on
// failure. The reservation is what keeps check-and-commit atomic per key
// without holding any lock across network calls.
type Gate struct {
	cfg Config
	bus *events.Bus
	now func() time.Time

	mu   sync.Mutex
	keys map[Key]*keyState

	// Global daily-loss breaker, guarded separately from per-key state.
	dayMu   sync.Mutex
	dayDate string
	dayPnL  float64
	halted  bool
}

type keyState struct {
	mu        sync.Mutex
	inFlight  bool
	hasTrade  bool
	lastTrade time.Time // monotonic
	lastPrice float64
}

// NewGate creates a gate. bus may be nil (halt events are then only logged).
func NewGate(cfg Config, bus *events.Bus) *Gate {
	return &Gate{
		cfg:  cfg,
		bus:  bus,
		now:  time.Now,
		keys: make(map[Key]*keyState),
	}
}

func (g *Gate) state(k Key) *keyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	ks, ok := g.keys[k]
	if !ok {
		ks = &keyState{}
		g.keys[k] = ks
	}
	return ks
}

// Admit evaluates every check for the key and, on success, reserves the key
// until Commit or Release. All checks are in-process; rejections are
// side-effect-free beyond the returned error.
func (g *Gate) Admit(k Key, in Input) (Admission, error) {
	if err := g.checkBreaker(); err != nil {
		return Admission{}, err
	}

	ks := g.state(k)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.inFlight {
		return Admission{}, ErrInFlight
	}

	now := g.now()
	if g.cfg.Cooldown > 0 && ks.hasTrade {
		if elapsed := now.Sub(ks.lastTrade); elapsed < g.cfg.Cooldown {
			return Admission{}, &CooldownError{Remaining: g.cfg.Cooldown - elapsed}
		}
	}

	if g.cfg.MinPriceDelta > 0 && ks.hasTrade {
		if diff := math.Abs(in.Price - ks.lastPrice); diff < g.cfg.MinPriceDelta {
			return Admission{}, ErrPriceDelta
		}
	}

	adm, err := g.checkDirection(in)
	if err != nil {
		return Admission{}, err
	}

	ks.inFlight = true
	return adm, nil
}

// checkDirection verifies stop/target sit on the correct side of the
// reference price: for a Buy the stop must be below and the target above,
// inverse for a Sell. Strict mode rejects; lenient mode clears the field.
func (g *Gate) checkDirection(in Input) (Admission, error) {
	adm := Admission{StopLoss: in.StopLoss, TakeProfit: in.TakeProfit}

	stopBad := in.StopLoss != 0 &&
		((in.Side == common.SideBuy && in.StopLoss >= in.Price) ||
			(in.Side == common.SideSell && in.StopLoss <= in.Price))
	targetBad := in.TakeProfit != 0 &&
		((in.Side == common.SideBuy && in.TakeProfit <= in.Price) ||
			(in.Side == common.SideSell && in.TakeProfit >= in.Price))

	if !stopBad && !targetBad {
		return adm, nil
	}
	if g.cfg.StrictDirection {
		return Admission{}, ErrDirection
	}
	if stopBad {
		adm.StopLoss = 0
		adm.ClearedStop = true
	}
	if targetBad {
		adm.TakeProfit = 0
		adm.ClearedTarget = true
	}
	return adm, nil
}

// Commit records a confirmed order placement for the key and releases the
// reservation. Called only after the exchange acknowledged the order.
func (g *Gate) Commit(k Key, price float64) {
	ks := g.state(k)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.lastTrade = g.now()
	ks.lastPrice = price
	ks.hasTrade = true
	ks.inFlight = false
}

// Release abandons the reservation without recording a trade. Called on
// every non-success path after an Admit.
func (g *Gate) Release(k Key) {
	ks := g.state(k)
	ks.mu.Lock()
	ks.inFlight = false
	ks.mu.Unlock()
}

// checkBreaker resets daily counters on date rollover and rejects when the
// halt is active.
func (g *Gate) checkBreaker() error {
	g.dayMu.Lock()
	defer g.dayMu.Unlock()

	today := g.now().Format("2006-01-02")
	if g.dayDate != today {
		if g.halted {
			log.Printf("risk: daily halt cleared on date rollover (%s -> %s)", g.dayDate, today)
		}
		g.dayDate = today
		g.dayPnL = 0
		g.halted = false
	}
	if g.halted {
		return ErrHalted
	}
	return nil
}

// RecordRealized folds freshly harvested realized PnL into the daily
// counter and trips the halt when the loss limit is crossed. Returns true
// if the gate is halted after the update.
func (g *Gate) RecordRealized(pnl float64) bool {
	g.dayMu.Lock()
	defer g.dayMu.Unlock()

	today := g.now().Format("2006-01-02")
	if g.dayDate != today {
		g.dayDate = today
		g.dayPnL = 0
		g.halted = false
	}

	g.dayPnL += pnl
	if !g.halted && g.cfg.MaxLossPerDay > 0 && g.dayPnL < -g.cfg.MaxLossPerDay {
		g.halted = true
		log.Printf("risk: daily loss halt tripped: pnl=%.2f limit=%.2f", g.dayPnL, g.cfg.MaxLossPerDay)
		if g.bus != nil {
			g.bus.Publish(events.TopicRiskHalted, events.HaltEvent{
				DailyRealizedPnL: g.dayPnL,
				MaxLossPerDay:    g.cfg.MaxLossPerDay,
				Date:             today,
			})
		}
	}
	return g.halted
}

// DailyRealized returns the current day's accumulated realized PnL.
func (g *Gate) DailyRealized() float64 {
	g.dayMu.Lock()
	defer g.dayMu.Unlock()
	return g.dayPnL
}

// Halted reports whether the daily-loss breaker is active.
func (g *Gate) Halted() bool {
	g.dayMu.Lock()
	defer g.dayMu.Unlock()
	return g.halted
}
