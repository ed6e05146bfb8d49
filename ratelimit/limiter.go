// Package ratelimit implements the sliding-window request accounting and
// exponential backoff the market-data fetcher uses to stay under a
// provider's per-minute/per-hour ceilings (spec §4.1, C1).
//
// The shape is generalized from the teacher's reconnect/backoff idiom in
// auth.AuthManager and websocket.ConnectionManager: track consecutive
// failures, compute a capped exponential delay, and gate the next attempt
// on it. Here the gate additionally accounts for two sliding windows of
// request timestamps, all behind one mutex (spec §5: "mutation is
// serialized via an internal mutex").
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Config controls the limiter's ceilings and backoff curve.
type Config struct {
	RPMMax          int           // max requests in any trailing 60s window
	RPHMax          int           // max requests in any trailing 60m window
	MinInterval     time.Duration // minimum delay between any two requests
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	MaxRetries      int // should_retry() is true while consecutive errors <= this
}

// DefaultConfig returns sane defaults matching the spec's examples (S6 uses
// rpm_max=5 explicitly; callers override via Config).
func DefaultConfig() Config {
	return Config{
		RPMMax:         60,
		RPHMax:         1800,
		MinInterval:    200 * time.Millisecond,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     2 * time.Minute,
		BackoffFactor:  2.0,
		MaxRetries:     5,
	}
}

// Limiter enforces Config's ceilings for one outbound request stream.
// Safe for concurrent use by many fetch workers.
type Limiter struct {
	cfg Config

	mu              sync.Mutex
	minuteWindow    []time.Time
	hourWindow      []time.Time
	lastRequest     time.Time
	consecutiveErrs int
	backoffUntil    time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg}
}

// Acquire suspends the caller until a request slot is available, then
// atomically records the request and returns. It returns ctx.Err() if the
// context is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ready := l.nextWait(time.Now())
		if ready {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
			// loop and re-check; another goroutine may have taken the slot
			// we were waiting for.
		}
	}
}

// nextWait computes the longest of: minimum-interval-remaining,
// time-until-minute-slot-frees, time-until-hour-slot-frees, and current
// backoff. If none apply it records now as a request and returns ready.
func (l *Limiter) nextWait(now time.Time) (wait time.Duration, ready bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minuteWindow = purge(l.minuteWindow, now, time.Minute)
	l.hourWindow = purge(l.hourWindow, now, time.Hour)

	var longest time.Duration

	if !l.lastRequest.IsZero() {
		if d := l.cfg.MinInterval - now.Sub(l.lastRequest); d > longest {
			longest = d
		}
	}
	if l.cfg.RPMMax > 0 && len(l.minuteWindow) >= l.cfg.RPMMax {
		if d := time.Minute - now.Sub(l.minuteWindow[0]); d > longest {
			longest = d
		}
	}
	if l.cfg.RPHMax > 0 && len(l.hourWindow) >= l.cfg.RPHMax {
		if d := time.Hour - now.Sub(l.hourWindow[0]); d > longest {
			longest = d
		}
	}
	if now.Before(l.backoffUntil) {
		if d := l.backoffUntil.Sub(now); d > longest {
			longest = d
		}
	}

	if longest > 0 {
		return longest, false
	}

	l.lastRequest = now
	l.minuteWindow = append(l.minuteWindow, now)
	l.hourWindow = append(l.hourWindow, now)
	return 0, true
}

func purge(window []time.Time, now time.Time, span time.Duration) []time.Time {
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) >= span {
		cut++
	}
	if cut == 0 {
		return window
	}
	return append(window[:0:0], window[cut:]...)
}

// RecordSuccess clears backoff state and the consecutive-error counter.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrs = 0
	l.backoffUntil = time.Time{}
}

// RecordRateLimitError increments the consecutive-error counter and sets
// backoff to min(initial * factor^k, max); it returns the backoff applied.
func (l *Limiter) RecordRateLimitError() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrs++
	backoff := time.Duration(float64(l.cfg.InitialBackoff) * math.Pow(l.cfg.BackoffFactor, float64(l.consecutiveErrs-1)))
	if backoff > l.cfg.MaxBackoff {
		backoff = l.cfg.MaxBackoff
	}
	l.backoffUntil = time.Now().Add(backoff)
	return backoff
}

// ShouldRetry is true while the consecutive-error counter is within the
// configured retry budget.
func (l *Limiter) ShouldRetry() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveErrs <= l.cfg.MaxRetries
}
