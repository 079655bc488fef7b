// Package engine runs the signal pipeline: risk admission, sizing,
// quantization, position reconciliation, and order execution.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"trade-executor/internal/events"
	"trade-executor/internal/order"
	"trade-executor/internal/position"
	"trade-executor/internal/quant"
	"trade-executor/internal/risk"
	"trade-executor/internal/sizing"
	"trade-executor/pkg/cache"
	"trade-executor/pkg/exchanges/common"
)

// harvester collects realized PnL after a position change. Nil-able; the
// pipeline works without one.
type harvester interface {
	Harvest(ctx context.Context, symbol string, lookback time.Duration) ([]common.ClosedTrade, error)
}

// Config ties the pipeline's collaborators together.
type Config struct {
	Provider   common.ClientProvider
	Gate       *risk.Gate
	Sizer      *sizing.Sizer
	Reconciler *position.Reconciler
	Executor   *order.Executor
	Recorder   harvester
	Bus        *events.Bus
	// Specs caches symbol trading rules between signals. Nil means every
	// signal fetches them from the exchange.
	Specs *cache.SpecCache
	// Policies maps strategy name to its order policy; strategies not
	// listed use DefaultPolicy.
	Policies map[string]order.Policy
	// HarvestLookback bounds the closed-PnL window pulled after each
	// position change. 0 means one hour.
	HarvestLookback time.Duration
}

// Engine is safe for concurrent use; per-key serialization is delegated
// to the risk gate's in-flight reservation.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) policy(strategy string) order.Policy {
	if p, ok := e.cfg.Policies[strategy]; ok {
		return p.Normalize()
	}
	return order.DefaultPolicy()
}

// HandleSignal runs one signal through the full pipeline and reports the
// outcome. The returned error is non-nil only for failed execution, never
// for pre-trade rejections.
func (e *Engine) HandleSignal(ctx context.Context, sig Signal) (Outcome, error) {
	if err := sig.Validate(); err != nil {
		return e.reject(sig, err), nil
	}
	e.publish(events.TopicSignalReceived, events.SignalEvent{
		Symbol:    sig.Symbol,
		Direction: string(sig.Direction),
		Price:     sig.Price,
		Strategy:  sig.Strategy,
		Interval:  sig.Interval,
		At:        sig.At,
	})

	key := risk.Key{Strategy: sig.Strategy, Symbol: sig.Symbol}
	side, _ := sig.Direction.Side()
	adm, err := e.cfg.Gate.Admit(key, risk.Input{
		Side:       side,
		Price:      sig.Price,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	})
	if err != nil {
		return e.reject(sig, err), nil
	}

	if sig.Direction == DirectionClose {
		return e.handleClose(ctx, sig, key)
	}
	return e.handleEntry(ctx, sig, key, side, adm)
}

func (e *Engine) handleClose(ctx context.Context, sig Signal, key risk.Key) (Outcome, error) {
	res, err := e.cfg.Reconciler.CloseAll(ctx, sig.Symbol)
	if err != nil {
		return e.fail(key, "close positions", err)
	}
	e.cfg.Gate.Commit(key, sig.Price)
	if len(res.Closed) > 0 {
		e.harvest(ctx, sig.Symbol)
	}
	log.Printf("engine: %s close signal flattened %d position(s)", sig.Symbol, len(res.Closed))
	return Outcome{Status: StatusClosed}, nil
}

func (e *Engine) handleEntry(ctx context.Context, sig Signal, key risk.Key, side common.Side, adm risk.Admission) (Outcome, error) {
	pol := e.policy(sig.Strategy)
	client := e.cfg.Provider.Client()

	spec, err := e.symbolSpec(ctx, client, sig.Symbol)
	if err != nil {
		return e.fail(key, "symbol spec", err)
	}
	balance, err := client.GetBalance(ctx)
	if err != nil {
		return e.fail(key, "balance", err)
	}
	qty, err := e.cfg.Sizer.Qty(balance, sig.Price)
	if err != nil {
		return e.fail(key, "sizing", err)
	}

	req := common.OrderRequest{
		Symbol:      sig.Symbol,
		Side:        side,
		Type:        pol.OrderType,
		Qty:         qty,
		StopLoss:    adm.StopLoss,
		TakeProfit:  adm.TakeProfit,
		TimeInForce: pol.TimeInForce,
	}
	if pol.OrderType == common.OrderTypeLimit {
		req.Price = sig.Price
	}
	if req.StopLoss == 0 && pol.DefaultStopLossPct > 0 {
		req.StopLoss = defaultStop(side, sig.Price, pol.DefaultStopLossPct)
	}
	if err := quant.Order(&req, spec); err != nil {
		return e.fail(key, "quantize", err)
	}

	if pol.RequireReversal {
		res, err := e.cfg.Reconciler.Reconcile(ctx, sig.Symbol, side)
		if err != nil {
			// The entry still goes out: skipping it would leave the
			// account positioned against the signal, which is worse
			// than the temporary net exposure of entering alongside
			// an unclosed opposite position.
			log.Printf("engine: %s reversal close failed, placing entry anyway: %v", sig.Symbol, err)
			e.publish(events.TopicCloseFailed, events.CloseFailedEvent{
				Symbol: sig.Symbol,
				Err:    err.Error(),
			})
		} else if len(res.Closed) > 0 {
			log.Printf("engine: %s reversed %d opposing position(s) before entry", sig.Symbol, len(res.Closed))
		}
	}

	if err := e.cfg.Executor.ApplyLeverage(ctx, sig.Symbol, pol.Leverage); err != nil {
		// Current leverage stays in effect; the entry still goes out.
		log.Printf("engine: %s leverage not applied: %v", sig.Symbol, err)
	}

	res, err := e.cfg.Executor.Execute(ctx, req, sig.Strategy)
	if err != nil {
		return e.fail(key, "execute", err)
	}
	e.cfg.Gate.Commit(key, sig.Price)
	e.harvest(ctx, sig.Symbol)
	return Outcome{Status: StatusPlaced, OrderID: res.OrderID, Qty: req.Qty}, nil
}

func (e *Engine) symbolSpec(ctx context.Context, client common.ExchangeClient, symbol string) (common.SymbolSpec, error) {
	if e.cfg.Specs != nil {
		if spec, ok := e.cfg.Specs.Get(symbol); ok {
			return spec, nil
		}
	}
	spec, err := client.GetSymbolSpec(ctx, symbol)
	if err != nil {
		return common.SymbolSpec{}, err
	}
	if e.cfg.Specs != nil {
		e.cfg.Specs.Set(symbol, spec)
	}
	return spec, nil
}

func (e *Engine) reject(sig Signal, err error) Outcome {
	ev := events.RejectionEvent{
		Symbol:   sig.Symbol,
		Strategy: sig.Strategy,
		Reason:   err.Error(),
	}
	var cd *risk.CooldownError
	if errors.As(err, &cd) {
		ev.RemainingCooldown = cd.Remaining
	}
	e.publish(events.TopicRiskRejected, ev)
	log.Printf("engine: %s signal rejected: %v", sig.Symbol, err)
	return Outcome{Status: StatusRejected, Reason: err.Error()}
}

func (e *Engine) fail(key risk.Key, stage string, err error) (Outcome, error) {
	e.cfg.Gate.Release(key)
	log.Printf("engine: %s: %s: %v", key, stage, err)
	// Placement exhaustion is already announced by the executor's own
	// terminal event; everything else notifies from here.
	if !errors.Is(err, order.ErrAttemptsExhausted) {
		e.publish(events.TopicSignalFailed, events.SignalFailedEvent{
			Symbol:   key.Symbol,
			Strategy: key.Strategy,
			Stage:    stage,
			Err:      err.Error(),
		})
	}
	return Outcome{Status: StatusFailed, Reason: stage + ": " + err.Error()}, err
}

func (e *Engine) harvest(ctx context.Context, symbol string) {
	if e.cfg.Recorder == nil {
		return
	}
	if _, err := e.cfg.Recorder.Harvest(ctx, symbol, e.cfg.HarvestLookback); err != nil {
		log.Printf("engine: %s pnl harvest: %v", symbol, err)
	}
}

func (e *Engine) publish(t events.Topic, payload any) {
	if e.cfg.Bus != nil {
		e.cfg.Bus.Publish(t, payload)
	}
}

func defaultStop(side common.Side, price, pct float64) float64 {
	if side == common.SideBuy {
		return price * (1 - pct)
	}
	return price * (1 + pct)
}
