package marketdata

import "context"

// Provider is the external market-data collaborator shape (spec §6): any
// implementation satisfying this interface can back a Fetcher. The engine
// ships one reference implementation (httpProvider) and expects real
// deployments to supply their own.
type Provider interface {
	FetchHistory(ctx context.Context, symbol string, period Period) ([]OHLCVBar, error)
	FetchBatchHistory(ctx context.Context, symbols []string, period Period) (map[string][]OHLCVBar, error)
	FetchOptions(ctx context.Context, symbol string) ([]OptionsContract, error)
	FetchInfo(ctx context.Context, symbol string) (TickerInfo, error)
	ValidateSymbol(ctx context.Context, symbol string) (bool, error)
}

// batchCapable is implemented by providers that can answer a batch history
// request in a single outbound call. Providers that don't implement it get
// the Fetcher's per-symbol fan-out fallback.
type batchCapable interface {
	SupportsBatch() bool
}
