package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestAcquire_RespectsRPMCeiling is S6: rpm_max=5, issue acquires at t=0;
// the first 5 should return quickly and a 6th suspend.
func TestAcquire_RespectsRPMCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPMMax = 5
	cfg.RPHMax = 0
	cfg.MinInterval = 0
	cfg.MaxBackoff = 0
	l := New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	immediate := 0
	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if time.Since(start) < 50*time.Millisecond {
			immediate++
		}
	}
	if immediate != 5 {
		t.Fatalf("expected all 5 initial acquires to be immediate, got %d", immediate)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()
	if err := l.Acquire(short); err == nil {
		t.Fatalf("expected a 6th acquire within the minute to suspend past its deadline")
	}

	l.mu.Lock()
	count := len(l.minuteWindow)
	l.mu.Unlock()
	if count != 5 {
		t.Fatalf("expected minute window to hold exactly 5 entries, got %d", count)
	}
}

func TestRecordRateLimitError_ExponentialBackoffCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.BackoffFactor = 2
	cfg.MaxBackoff = 30 * time.Millisecond
	l := New(cfg)

	d1 := l.RecordRateLimitError() // 10ms
	d2 := l.RecordRateLimitError() // 20ms
	d3 := l.RecordRateLimitError() // 40ms -> capped to 30ms

	if d1 != 10*time.Millisecond {
		t.Fatalf("d1 = %v, want 10ms", d1)
	}
	if d2 != 20*time.Millisecond {
		t.Fatalf("d2 = %v, want 20ms", d2)
	}
	if d3 != 30*time.Millisecond {
		t.Fatalf("d3 = %v, want capped to 30ms", d3)
	}
}

func TestShouldRetry_RespectsMaxRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	l := New(cfg)

	if !l.ShouldRetry() {
		t.Fatalf("expected ShouldRetry true before any errors")
	}
	l.RecordRateLimitError()
	l.RecordRateLimitError()
	if !l.ShouldRetry() {
		t.Fatalf("expected ShouldRetry true at exactly MaxRetries errors")
	}
	l.RecordRateLimitError()
	if l.ShouldRetry() {
		t.Fatalf("expected ShouldRetry false beyond MaxRetries")
	}
}

func TestRecordSuccess_ClearsBackoff(t *testing.T) {
	l := New(DefaultConfig())
	l.RecordRateLimitError()
	l.RecordSuccess()
	if !l.ShouldRetry() {
		t.Fatalf("expected ShouldRetry true after RecordSuccess")
	}
	l.mu.Lock()
	backoff := l.backoffUntil
	l.mu.Unlock()
	if !backoff.IsZero() {
		t.Fatalf("expected backoffUntil cleared")
	}
}
