// Package order places exchange orders with bounded retries. A failed
// attempt is assumed to leave the client session in an unknown state, so
// the session is recreated through the provider before the next try.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"trade-executor/internal/events"
	"trade-executor/pkg/exchanges/common"
)

// ErrAttemptsExhausted is terminal for one signal: every placement attempt
// failed. It never halts the process or other keys.
var ErrAttemptsExhausted = errors.New("order: all attempts failed")

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int           // default 3
	RetryMin    time.Duration // first backoff delay, default 1s
	RetryMax    time.Duration // backoff ceiling, default 10s
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryMin <= 0 {
		c.RetryMin = time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 10 * time.Second
	}
	return c
}

// Executor submits orders through the current exchange client.
type Executor struct {
	provider common.ClientProvider
	bus      *events.Bus
	cfg      Config
}

func NewExecutor(provider common.ClientProvider, bus *events.Bus, cfg Config) *Executor {
	return &Executor{provider: provider, bus: bus, cfg: cfg.withDefaults()}
}

// Execute places req with up to MaxAttempts tries. strategy is carried
// into the emitted events only. A context cancellation or timeout counts
// as a failed attempt like any other transport error.
func (e *Executor) Execute(ctx context.Context, req common.OrderRequest, strategy string) (common.OrderResult, error) {
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	b := &backoff.Backoff{
		Min:    e.cfg.RetryMin,
		Max:    e.cfg.RetryMax,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		client := e.provider.Client()
		res, err := client.PlaceOrder(ctx, req)
		if err == nil {
			log.Printf("executor: placed %s %s qty=%g id=%s (attempt %d)",
				req.Symbol, req.Side, req.Qty, res.OrderID, attempt)
			e.publish(events.TopicOrderPlaced, events.OrderPlacedEvent{
				Symbol:   req.Symbol,
				Side:     string(req.Side),
				Qty:      req.Qty,
				Price:    req.Price,
				OrderID:  res.OrderID,
				Strategy: strategy,
			})
			return res, nil
		}

		lastErr = err
		log.Printf("executor: attempt %d/%d failed for %s: %v", attempt, e.cfg.MaxAttempts, req.Symbol, err)
		e.publish(events.TopicOrderRetry, events.OrderRetryEvent{
			Symbol:  req.Symbol,
			Attempt: attempt,
			Max:     e.cfg.MaxAttempts,
			Err:     err.Error(),
		})

		// The failed session may be poisoned; start the next attempt on
		// a fresh client.
		e.provider.Reset()

		if attempt < e.cfg.MaxAttempts {
			if err := sleep(ctx, b.Duration()); err != nil {
				lastErr = err
				break
			}
		}
	}

	e.publish(events.TopicOrderFailed, events.OrderFailedEvent{
		Symbol:   req.Symbol,
		Attempts: e.cfg.MaxAttempts,
		Err:      lastErr.Error(),
	})
	return common.OrderResult{}, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, e.cfg.MaxAttempts, lastErr)
}

// ApplyLeverage sets the symbol's leverage, retrying once. Failure is
// non-fatal: the order proceeds on previously-set leverage, so the caller
// only logs the returned error.
func (e *Executor) ApplyLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return nil
	}
	var lastErr error
	for try := 0; try < 2; try++ {
		if err := e.provider.Client().SetLeverage(ctx, symbol, leverage); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("set leverage %dx on %s: %w", leverage, symbol, lastErr)
}

func (e *Executor) publish(t events.Topic, payload any) {
	if e.bus != nil {
		e.bus.Publish(t, payload)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
