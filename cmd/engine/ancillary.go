package main

import (
	"context"

	"signalengine/detect"
	"signalengine/marketdata"
)

// RedditMentionSource is the reddit-mention collaborator the spec names
// as an ancillary input; no concrete scraper/API client ships here
// (out of scope), so fetcherAncillary degrades to "no mentions" when
// none is wired in.
type RedditMentionSource interface {
	Mentions(ctx context.Context, symbol string) ([]detect.RedditMention, error)
}

// noopRedditSource always reports no mentions.
type noopRedditSource struct{}

func (noopRedditSource) Mentions(_ context.Context, _ string) ([]detect.RedditMention, error) {
	return nil, nil
}

// fetcherAncillary implements orchestrator.AncillaryProvider over the
// shared *marketdata.Fetcher: benchmark bars and options chains reuse
// the same rate-limited, cached path as the primary symbol fetch.
type fetcherAncillary struct {
	fetcher        *marketdata.Fetcher
	benchmark      string
	redditMentions RedditMentionSource
}

func newFetcherAncillary(fetcher *marketdata.Fetcher, benchmarkSymbol string, reddit RedditMentionSource) *fetcherAncillary {
	if reddit == nil {
		reddit = noopRedditSource{}
	}
	return &fetcherAncillary{fetcher: fetcher, benchmark: benchmarkSymbol, redditMentions: reddit}
}

func (a *fetcherAncillary) BenchmarkBars(ctx context.Context, period marketdata.Period) ([]marketdata.OHLCVBar, error) {
	if a.benchmark == "" {
		return nil, nil
	}
	return a.fetcher.GetOHLCV(ctx, a.benchmark, period)
}

func (a *fetcherAncillary) OptionsChain(ctx context.Context, symbol string) ([]marketdata.OptionsContract, error) {
	return a.fetcher.GetOptionsChain(ctx, symbol)
}

func (a *fetcherAncillary) RedditMentions(ctx context.Context, symbol string) ([]detect.RedditMention, error) {
	return a.redditMentions.Mentions(ctx, symbol)
}
