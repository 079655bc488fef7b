// Package notify delivers human-readable notifications for core events.
// Delivery is fire-and-forget: a failed send is logged and dropped, never
// surfaced to the trading path.
package notify

import "log"

// Notifier sends one formatted message. Implementations must not panic and
// should swallow their own delivery errors.
type Notifier interface {
	Notify(message string)
}

// LogNotifier writes notifications to the process log. Used when no
// Telegram credentials are configured, and as the fallback sink in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Printf("notify: %s", message)
}
