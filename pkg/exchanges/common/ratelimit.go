package common

import (
	"log"
	"strconv"
	"sync"
	"time"
)

// RateLimiter tracks API rate-limit usage reported by the exchange.
type RateLimiter struct {
	remaining     int
	limit         int
	lastReset     time.Time
	resetInterval time.Duration
	mu            sync.RWMutex
}

// NewRateLimiter creates a rate-limit tracker.
// limit: requests allowed per window; resetInterval: window length.
func NewRateLimiter(limit int, resetInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:         limit,
		remaining:     limit,
		resetInterval: resetInterval,
		lastReset:     time.Now(),
	}
}

// UpdateFromHeaders records the per-endpoint quota headers from an API
// response (Bybit: X-Bapi-Limit and X-Bapi-Limit-Status).
func (rl *RateLimiter) UpdateFromHeaders(limitHeader, remainingHeader string) {
	if remainingHeader == "" {
		return
	}

	remaining, err := strconv.Atoi(remainingHeader)
	if err != nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limit, err := strconv.Atoi(limitHeader); err == nil && limit > 0 {
		rl.limit = limit
	}

	if time.Since(rl.lastReset) >= rl.resetInterval {
		rl.remaining = rl.limit
		rl.lastReset = time.Now()
	}

	rl.remaining = remaining

	pct := float64(rl.limit-rl.remaining) / float64(rl.limit) * 100
	if pct >= 95 {
		log.Printf("rate limit critical: %d/%d used (%.1f%%)", rl.limit-rl.remaining, rl.limit, pct)
	} else if pct >= 80 {
		log.Printf("rate limit warning: %d/%d used (%.1f%%)", rl.limit-rl.remaining, rl.limit, pct)
	}
}

// GetUsage returns current usage information.
func (rl *RateLimiter) GetUsage() (used int, limit int, percentage float64) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if time.Since(rl.lastReset) >= rl.resetInterval {
		return 0, rl.limit, 0
	}

	used = rl.limit - rl.remaining
	return used, rl.limit, float64(used) / float64(rl.limit) * 100
}

// ShouldDelay reports whether the next request should be delayed.
func (rl *RateLimiter) ShouldDelay() bool {
	_, _, pct := rl.GetUsage()
	return pct >= 90
}
