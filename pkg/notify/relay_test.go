package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"trade-executor/internal/events"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Notify(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message)
}

func (c *captureNotifier) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func TestFormatKnownEvents(t *testing.T) {
	tests := []struct {
		name    string
		msg     events.Message
		contain []string
	}{
		{
			name: "signal",
			msg: events.Message{Topic: events.TopicSignalReceived, Payload: events.SignalEvent{
				Symbol: "ETHUSDT", Direction: "Buy", Price: 2500, Strategy: "s1", Interval: "15",
				At: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			}},
			contain: []string{"Trade signal", "BUY", "ETHUSDT", "2500", "s1"},
		},
		{
			name: "cooldown rejection includes remaining seconds",
			msg: events.Message{Topic: events.TopicRiskRejected, Payload: events.RejectionEvent{
				Symbol: "ETHUSDT", Strategy: "s1", Reason: "cooldown active",
				RemainingCooldown: 100 * time.Second,
			}},
			contain: []string{"skipped", "cooldown active", "100s"},
		},
		{
			name: "halt",
			msg: events.Message{Topic: events.TopicRiskHalted, Payload: events.HaltEvent{
				DailyRealizedPnL: -120.5, MaxLossPerDay: 100, Date: "2025-06-01",
			}},
			contain: []string{"Daily loss halt", "-120.50", "100.00"},
		},
		{
			name: "signal failed",
			msg: events.Message{Topic: events.TopicSignalFailed, Payload: events.SignalFailedEvent{
				Symbol: "ETHUSDT", Strategy: "s1", Stage: "balance", Err: "retCode 10002",
			}},
			contain: []string{"Signal failed", "ETHUSDT", "balance", "retCode 10002"},
		},
		{
			name: "reversal close failed",
			msg: events.Message{Topic: events.TopicCloseFailed, Payload: events.CloseFailedEvent{
				Symbol: "ETHUSDT", Err: "retCode 110007",
			}},
			contain: []string{"close opposing", "ETHUSDT", "retCode 110007"},
		},
		{
			name: "order placed",
			msg: events.Message{Topic: events.TopicOrderPlaced, Payload: events.OrderPlacedEvent{
				Symbol: "ETHUSDT", Side: "Sell", Qty: 0.12, Price: 2500, OrderID: "abc", Strategy: "s1",
			}},
			contain: []string{"Order placed", "SELL", "0.12", "abc"},
		},
		{
			name: "summary is sorted by symbol",
			msg: events.Message{Topic: events.TopicPnLSummary, Payload: events.PnLSummaryEvent{
				Totals: map[string]float64{"ETHUSDT": -3.5, "BTCUSDT": 12},
			}},
			contain: []string{"BTCUSDT: 12.00\nETHUSDT: -3.50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.msg)
			for _, want := range tt.contain {
				if !strings.Contains(got, want) {
					t.Errorf("formatted message missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatUnknownPayload(t *testing.T) {
	if got := Format(events.Message{Topic: "x", Payload: 42}); got != "" {
		t.Fatalf("expected empty string for unknown payload, got %q", got)
	}
}

func TestRelayForwardsBusEvents(t *testing.T) {
	bus := events.NewBus()
	sink := &captureNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewRelay(bus, sink).Start(ctx)

	// Give the subscriber goroutine time to register before publishing.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(events.TopicOrderFailed, events.OrderFailedEvent{
		Symbol: "ETHUSDT", Attempts: 3, Err: "timeout",
	})

	deadline := time.After(time.Second)
	for {
		if msgs := sink.all(); len(msgs) == 1 {
			if !strings.Contains(msgs[0], "3 attempts") {
				t.Fatalf("unexpected message: %q", msgs[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("relay did not forward event in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
