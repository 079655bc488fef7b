package events

import "time"

// Topic enumerates high-level event topics inside the execution core.
type Topic string

const (
	TopicSignalReceived Topic = "signal.received"
	TopicSignalFailed   Topic = "signal.failed"
	TopicRiskRejected   Topic = "risk.rejected"
	TopicRiskHalted     Topic = "risk.halted"
	TopicPositionClosed Topic = "position.closed"
	TopicCloseFailed    Topic = "position.close_failed"
	TopicOrderRetry     Topic = "order.retry"
	TopicOrderFailed    Topic = "order.failed"
	TopicOrderPlaced    Topic = "order.placed"
	TopicPnLRecorded    Topic = "pnl.recorded"
	TopicPnLSummary     Topic = "pnl.summary"
)

// SignalEvent describes an inbound trade signal.
type SignalEvent struct {
	Symbol    string
	Direction string
	Price     float64
	Strategy  string
	Interval  string
	At        time.Time
}

// SignalFailedEvent is terminal for one signal: a pipeline stage before or
// after placement failed.
type SignalFailedEvent struct {
	Symbol   string
	Strategy string
	Stage    string
	Err      string
}

// RejectionEvent describes a risk-gate rejection.
type RejectionEvent struct {
	Symbol   string
	Strategy string
	Reason   string
	// RemainingCooldown is set for cooldown rejections.
	RemainingCooldown time.Duration
}

// HaltEvent announces the daily-loss circuit breaker tripping.
type HaltEvent struct {
	DailyRealizedPnL float64
	MaxLossPerDay    float64
	Date             string
}

// PositionClosedEvent describes a reduce-only close issued by reconciliation.
type PositionClosedEvent struct {
	Symbol string
	Side   string
	Size   float64
}

// CloseFailedEvent describes a reversal close that could not flatten the
// opposing exposure. The entry still proceeds, at net-exposure risk.
type CloseFailedEvent struct {
	Symbol string
	Err    string
}

// OrderRetryEvent describes one failed placement attempt.
type OrderRetryEvent struct {
	Symbol  string
	Attempt int
	Max     int
	Err     string
}

// OrderFailedEvent is terminal: every attempt failed.
type OrderFailedEvent struct {
	Symbol   string
	Attempts int
	Err      string
}

// OrderPlacedEvent describes a successful placement.
type OrderPlacedEvent struct {
	Symbol   string
	Side     string
	Qty      float64
	Price    float64
	OrderID  string
	Strategy string
}

// PnLRecordedEvent describes newly appended ledger rows.
type PnLRecordedEvent struct {
	Symbol   string
	Inserted int
	Realized float64
}

// PnLSummaryEvent carries aggregate realized PnL per symbol across the
// whole ledger.
type PnLSummaryEvent struct {
	Totals map[string]float64
}
