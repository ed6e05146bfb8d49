// Package marketdata implements the rate-limited, cached retrieval layer
// (spec C2) in front of an arbitrary Provider. Fetcher owns the retry/
// backoff loop and the TTL+single-flight cache; Provider only has to know
// how to make one outbound call per operation.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signalengine/apperrors"
	"signalengine/cache"
	"signalengine/ratelimit"
)

// Config controls cache TTLs, batching, and retry behavior.
type Config struct {
	HistoryTTL    time.Duration // default 30 min
	InfoTTL       time.Duration // default 1h
	AggressiveTTL time.Duration // 15 min, used when Aggressive is set
	Aggressive    bool
	MaxRetries    int
	CallTimeout   time.Duration
	BatchChunkSize int
}

// DefaultConfig matches spec §4.2's stated defaults.
func DefaultConfig() Config {
	return Config{
		HistoryTTL:     30 * time.Minute,
		InfoTTL:        time.Hour,
		AggressiveTTL:  15 * time.Minute,
		MaxRetries:     3,
		CallTimeout:    10 * time.Second,
		BatchChunkSize: 50,
	}
}

func (c Config) historyTTL() time.Duration {
	if c.Aggressive {
		return c.AggressiveTTL
	}
	return c.HistoryTTL
}

// Fetcher wraps a Provider with rate limiting, TTL+single-flight caching,
// and bounded retry (spec §4.2).
type Fetcher struct {
	provider Provider
	limiter  *ratelimit.Limiter
	cache    *cache.TTLCache
	cfg      Config
}

// New builds a Fetcher. limiter and ttlCache are shared with the rest of
// the engine (spec §5: RateLimiter state is shared across fetch workers).
func New(provider Provider, limiter *ratelimit.Limiter, ttlCache *cache.TTLCache, cfg Config) *Fetcher {
	return &Fetcher{provider: provider, limiter: limiter, cache: ttlCache, cfg: cfg}
}

// GetOHLCV returns chronologically-sorted bars for symbol, or a NoData
// error if the provider returns zero bars.
func (f *Fetcher) GetOHLCV(ctx context.Context, symbol string, period Period) ([]OHLCVBar, error) {
	key := fmt.Sprintf("ohlcv:%s:%d:%d", symbol, period.Start.Unix(), period.End.Unix())
	var bars []OHLCVBar
	err := f.cache.Load(ctx, key, f.cfg.historyTTL(), &bars, func(ctx context.Context) (any, error) {
		return f.withRetry(ctx, func(ctx context.Context) (any, error) {
			return f.provider.FetchHistory(ctx, symbol, period)
		})
	})
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, apperrors.NewForSymbol(apperrors.ClassNoData, symbol, "no bars returned", nil)
	}
	return bars, nil
}

// GetBatchOHLCV issues a single batch request when the provider supports
// it, falling back to per-symbol fan-out otherwise. Symbols that fail are
// omitted from the result (not errored) and logged (spec §4.2 edge case).
func (f *Fetcher) GetBatchOHLCV(ctx context.Context, symbols []string, period Period) (map[string][]OHLCVBar, error) {
	result := make(map[string][]OHLCVBar, len(symbols))

	if bc, ok := f.provider.(batchCapable); ok && bc.SupportsBatch() {
		for _, chunk := range chunkSymbols(symbols, f.cfg.BatchChunkSize) {
			chunkResult, err := f.withRetry(ctx, func(ctx context.Context) (any, error) {
				return f.provider.FetchBatchHistory(ctx, chunk, period)
			})
			if err != nil {
				log.Printf("⚠️ batch ohlcv chunk failed (%d symbols), falling back to per-symbol: %v", len(chunk), err)
				f.fanOutOHLCV(ctx, chunk, period, result)
				continue
			}
			for sym, bars := range chunkResult.(map[string][]OHLCVBar) {
				result[sym] = bars
			}
		}
		return result, nil
	}

	f.fanOutOHLCV(ctx, symbols, period, result)
	return result, nil
}

func (f *Fetcher) fanOutOHLCV(ctx context.Context, symbols []string, period Period, result map[string][]OHLCVBar) {
	for _, sym := range symbols {
		bars, err := f.GetOHLCV(ctx, sym, period)
		if err != nil {
			log.Printf("⚠️ skipping %s in batch: %v", sym, err)
			continue
		}
		result[sym] = bars
	}
}

func chunkSymbols(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	var chunks [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[i:end])
	}
	return chunks
}

// GetOptionsChain returns the symbol's options chain.
func (f *Fetcher) GetOptionsChain(ctx context.Context, symbol string) ([]OptionsContract, error) {
	key := "options:" + symbol
	var contracts []OptionsContract
	err := f.cache.Load(ctx, key, f.cfg.historyTTL(), &contracts, func(ctx context.Context) (any, error) {
		return f.withRetry(ctx, func(ctx context.Context) (any, error) {
			return f.provider.FetchOptions(ctx, symbol)
		})
	})
	return contracts, err
}

// GetTickerInfo returns fundamental fields for symbol; a provider may
// return a zero-value TickerInfo on 404 rather than erroring.
func (f *Fetcher) GetTickerInfo(ctx context.Context, symbol string) (TickerInfo, error) {
	key := "info:" + symbol
	var info TickerInfo
	err := f.cache.Load(ctx, key, f.cfg.InfoTTL, &info, func(ctx context.Context) (any, error) {
		return f.withRetry(ctx, func(ctx context.Context) (any, error) {
			return f.provider.FetchInfo(ctx, symbol)
		})
	})
	return info, err
}

// ValidateSymbol is a cheap existence check, uncached (callers should
// cache at a higher level if they call it often for the same symbol).
func (f *Fetcher) ValidateSymbol(ctx context.Context, symbol string) (bool, error) {
	v, err := f.withRetry(ctx, func(ctx context.Context) (any, error) {
		return f.provider.ValidateSymbol(ctx, symbol)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// withRetry gates the call behind the rate limiter, applies a per-call
// timeout, and retries up to cfg.MaxRetries times using the limiter's
// backoff schedule. On exhaustion it returns an Upstream error wrapping
// the last cause.
func (f *Fetcher) withRetry(ctx context.Context, call func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, apperrors.New(apperrors.ClassCancelled, "acquire cancelled", err)
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if f.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, f.cfg.CallTimeout)
		}
		val, err := call(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			f.limiter.RecordSuccess()
			return val, nil
		}

		lastErr = err
		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = apperrors.New(apperrors.ClassTimeout, "provider call timed out", err)
		}
		f.limiter.RecordRateLimitError()
		if !f.limiter.ShouldRetry() {
			break
		}
	}
	return nil, apperrors.New(apperrors.ClassUpstream, "exhausted retries", lastErr)
}
