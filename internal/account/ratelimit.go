// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package account

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default rate limiting values.
const (
	// DefaultRateLimitMax is the number of actions allowed per key per
	// window.
	DefaultRateLimitMax = 5

	// DefaultRateLimitWindow is the counting window duration.
	DefaultRateLimitWindow = 5 * time.Minute

	// reapThreshold is the map size past which Allow opportunistically
	// sweeps expired windows. Reclamation is otherwise lazy, per key, on
	// access; there is no background goroutine.
	reapThreshold = 1024
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Max is the number of actions allowed per key per window.
	// Defaults to DefaultRateLimitMax if zero or negative.
	Max int

	// Window is the counting window. Defaults to DefaultRateLimitWindow
	// if zero.
	Window time.Duration
}

// window tracks the count for a single (operation, origin) key.
type window struct {
	count   int
	startAt time.Time
}

// RateLimiter is a fixed-window request counter keyed by operation and
// origin address. It is safe for concurrent use: the test-and-increment
// in Allow is atomic under the limiter's mutex, so no more than Max
// calls succeed per key per window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time

	rejections *prometheus.CounterVec // nil if no registry provided
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, nil)
}

// NewRateLimiterWithRegistry creates a rate limiter and registers a
// rejection counter with the provided Prometheus registry.
func NewRateLimiterWithRegistry(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	return newRateLimiter(cfg, reg)
}

func newRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	max := cfg.Max
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	period := cfg.Window
	if period <= 0 {
		period = DefaultRateLimitWindow
	}

	rl := &RateLimiter{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}

	if reg != nil {
		rl.rejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emberlink_ratelimit_rejections_total",
				Help: "Total number of rate-limited account operations",
			},
			[]string{"operation"},
		)
		reg.MustRegister(rl.rejections)
	}

	return rl
}

// Allow atomically tests and increments the counter for the key formed
// from operation and origin. Returns false once the key has used up its
// budget for the current window.
func (rl *RateLimiter) Allow(operation, origin string) bool {
	key := operation + "\x00" + origin
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.windows) > reapThreshold {
		rl.reapLocked(now)
	}

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.startAt) >= rl.period {
		rl.windows[key] = &window{count: 1, startAt: now}
		return true
	}

	if w.count >= rl.max {
		if rl.rejections != nil {
			rl.rejections.WithLabelValues(operation).Inc()
		}
		return false
	}

	w.count++
	return true
}

// reapLocked drops every expired window. Caller must hold rl.mu.
func (rl *RateLimiter) reapLocked(now time.Time) {
	for key, w := range rl.windows {
		if now.Sub(w.startAt) >= rl.period {
			delete(rl.windows, key)
		}
	}
}
