// Package ratelimit provides sliding-window request admission control,
// keyed by logical operation. It is a cost/abuse control, not a
// correctness control: unknown keys always admit.
package ratelimit

import (
	"sync"
	"time"
)

// Default policy keys for the chat send operation. Both must pass for a
// send to proceed; the burst key is checked first so callers can present a
// "slow down" message distinct from "limit reached".
const (
	KeyChat      = "chat"
	KeyChatBurst = "chat-burst"
)

// Config bounds one admission window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter tracks request timestamps per key over a trailing window.
// All methods are safe for concurrent use; purge, check, and record happen
// atomically under one lock so no other check can interleave.
type Limiter struct {
	mu      sync.Mutex
	configs map[string]Config
	windows map[string][]time.Time

	now func() time.Time
}

// New creates a Limiter with the default chat policies: 20 requests per
// minute sustained, 5 requests per 10 seconds burst.
func New() *Limiter {
	l := &Limiter{
		configs: make(map[string]Config),
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
	l.configs[KeyChat] = Config{MaxRequests: 20, Window: time.Minute}
	l.configs[KeyChatBurst] = Config{MaxRequests: 5, Window: 10 * time.Second}
	return l
}

// NewWithClock creates a Limiter with an injected clock. Config maps start
// empty.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		configs: make(map[string]Config),
		windows: make(map[string][]time.Time),
		now:     now,
	}
}

// CanProceed checks admission for key: entries older than the window are
// purged, then the remaining count is compared to the limit. Admitted
// requests are recorded; rejected ones are not. Keys without a configured
// policy always admit.
func (l *Limiter) CanProceed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	config, ok := l.configs[key]
	if !ok {
		return true
	}

	now := l.now()
	window := l.purgeLocked(key, config, now)

	if len(window) >= config.MaxRequests {
		l.windows[key] = window
		return false
	}

	l.windows[key] = append(window, now)
	return true
}

// RemainingRequests returns how many requests are left in the current
// window. The second return is false for unconfigured keys.
func (l *Limiter) RemainingRequests(key string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	config, ok := l.configs[key]
	if !ok {
		return 0, false
	}

	window := l.purgeLocked(key, config, l.now())
	l.windows[key] = window

	remaining := config.MaxRequests - len(window)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// TimeUntilReset returns how long until the oldest recorded request falls
// out of the window. Zero when the key is unconfigured or idle.
func (l *Limiter) TimeUntilReset(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	config, ok := l.configs[key]
	if !ok {
		return 0
	}

	window := l.windows[key]
	if len(window) == 0 {
		return 0
	}

	oldest := window[0]
	for _, t := range window[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}

	reset := oldest.Add(config.Window).Sub(l.now())
	if reset < 0 {
		return 0
	}
	return reset
}

// SetConfig installs or replaces the policy for key and clears any
// recorded state, so a new window never mixes with the old config.
func (l *Limiter) SetConfig(key string, config Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[key] = config
	delete(l.windows, key)
}

// Reset clears the recorded state for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// purgeLocked drops timestamps older than the window. Callers must hold
// l.mu. The returned slice length never exceeds MaxRequests plus the
// current check, keeping state bounded.
func (l *Limiter) purgeLocked(key string, config Config, now time.Time) []time.Time {
	window := l.windows[key]
	// Compact in place, reusing window's backing array; safe because
	// l.mu serializes all access to the slice.
	kept := window[:0]
	for _, t := range window {
		if now.Sub(t) < config.Window {
			kept = append(kept, t)
		}
	}
	return kept
}
