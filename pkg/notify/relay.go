package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"trade-executor/internal/events"
)

// Relay subscribes to every bus topic and forwards formatted messages to a
// Notifier. It runs on its own goroutine so slow delivery never backs up
// into publishers.
type Relay struct {
	bus *events.Bus
	n   Notifier
}

func NewRelay(bus *events.Bus, n Notifier) *Relay {
	return &Relay{bus: bus, n: n}
}

// Start consumes bus messages until ctx is done.
func (r *Relay) Start(ctx context.Context) {
	ch, unsub := r.bus.SubscribeAll(256)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if text := Format(msg); text != "" {
					r.n.Notify(text)
				}
			}
		}
	}()
}

func sideEmoji(direction string) string {
	if strings.EqualFold(direction, "Buy") {
		return "\U0001F7E2" // green circle
	}
	return "\U0001F534" // red circle
}

// Format renders one bus message as notification text. Unknown payloads
// produce an empty string and are skipped.
func Format(msg events.Message) string {
	switch e := msg.Payload.(type) {
	case events.SignalEvent:
		return strings.Join([]string{
			"\U0001F6A8 *Trade signal*",
			fmt.Sprintf("%s Action: %s", sideEmoji(e.Direction), strings.ToUpper(e.Direction)),
			fmt.Sprintf("Symbol: %s", e.Symbol),
			fmt.Sprintf("Price: %g", e.Price),
			fmt.Sprintf("Strategy: %s", e.Strategy),
			fmt.Sprintf("Interval: %s", e.Interval),
			fmt.Sprintf("Time: %s", e.At.Format("2006-01-02 15:04:05")),
		}, "\n")
	case events.RejectionEvent:
		lines := []string{
			"⏳ *Signal skipped*",
			fmt.Sprintf("Symbol: %s", e.Symbol),
			fmt.Sprintf("Strategy: %s", e.Strategy),
			fmt.Sprintf("Reason: %s", e.Reason),
		}
		if e.RemainingCooldown > 0 {
			lines = append(lines, fmt.Sprintf("Cooldown remaining: %ds", int(e.RemainingCooldown/time.Second)))
		}
		return strings.Join(lines, "\n")
	case events.HaltEvent:
		return strings.Join([]string{
			"\U0001F6D1 *Daily loss halt*",
			fmt.Sprintf("Realized today: %.2f", e.DailyRealizedPnL),
			fmt.Sprintf("Limit: %.2f", e.MaxLossPerDay),
			"Trading suspended until next day.",
		}, "\n")
	case events.SignalFailedEvent:
		return strings.Join([]string{
			"❌ *Signal failed*",
			fmt.Sprintf("Symbol: %s", e.Symbol),
			fmt.Sprintf("Strategy: %s", e.Strategy),
			fmt.Sprintf("Stage: %s", e.Stage),
			fmt.Sprintf("Error: %s", e.Err),
		}, "\n")
	case events.CloseFailedEvent:
		return fmt.Sprintf("⚠️ Could not close opposing %s position, entry proceeding: %s", e.Symbol, e.Err)
	case events.PositionClosedEvent:
		return fmt.Sprintf("\U0001F501 Closed %s %s position, size %g", e.Symbol, e.Side, e.Size)
	case events.OrderRetryEvent:
		return fmt.Sprintf("⚠️ Order attempt %d/%d failed for %s: %s", e.Attempt, e.Max, e.Symbol, e.Err)
	case events.OrderFailedEvent:
		return fmt.Sprintf("❌ Order failed for %s after %d attempts: %s", e.Symbol, e.Attempts, e.Err)
	case events.OrderPlacedEvent:
		return strings.Join([]string{
			"✅ *Order placed*",
			fmt.Sprintf("%s %s %s", sideEmoji(e.Side), strings.ToUpper(e.Side), e.Symbol),
			fmt.Sprintf("Qty: %g @ %g", e.Qty, e.Price),
			fmt.Sprintf("Strategy: %s", e.Strategy),
			fmt.Sprintf("Order ID: %s", e.OrderID),
		}, "\n")
	case events.PnLRecordedEvent:
		return fmt.Sprintf("\U0001F4D7 Recorded %d closed trades for %s, realized %.2f", e.Inserted, e.Symbol, e.Realized)
	case events.PnLSummaryEvent:
		symbols := make([]string, 0, len(e.Totals))
		for s := range e.Totals {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		lines := []string{"\U0001F4CA *Realized PnL totals*"}
		for _, s := range symbols {
			lines = append(lines, fmt.Sprintf("%s: %.2f", s, e.Totals[s]))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}
