package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// httpProvider is a minimal JSON/HTTP reference Provider, grounded on the
// pack's plain net/http market API client idiom (build a request, set auth
// headers, decode the JSON envelope). It is swappable per spec §6 — real
// deployments are expected to supply their own Provider.
type httpProvider struct {
	client  *http.Client
	apiKey  string
	apiSecret string
	baseURL string
}

// NewHTTPProvider builds a reference Provider against a REST market-data
// API shaped like {bars:[...]}/{chain:[...]}/{info:{...}} under baseURL.
func NewHTTPProvider(baseURL, apiKey, apiSecret string) Provider {
	return &httpProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
	}
}

func (p *httpProvider) SupportsBatch() bool { return true }

func (p *httpProvider) authedRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", p.apiKey)
	req.Header.Set("X-API-Secret", p.apiSecret)
	return req, nil
}

func (p *httpProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ market data provider error (%d): %s", resp.StatusCode, string(body))
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

type barWire struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (b barWire) toBar() OHLCVBar {
	ts, _ := time.Parse(time.RFC3339, b.Timestamp)
	return OHLCVBar{Timestamp: ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
}

func (p *httpProvider) FetchHistory(ctx context.Context, symbol string, period Period) ([]OHLCVBar, error) {
	path := fmt.Sprintf("/v1/bars/%s?start=%s&end=%s", symbol,
		period.Start.Format(time.RFC3339), period.End.Format(time.RFC3339))
	req, err := p.authedRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Bars []barWire `json:"bars"`
	}
	if err := p.do(req, &wire); err != nil {
		return nil, err
	}
	bars := make([]OHLCVBar, len(wire.Bars))
	for i, b := range wire.Bars {
		bars[i] = b.toBar()
	}
	return bars, nil
}

func (p *httpProvider) FetchBatchHistory(ctx context.Context, symbols []string, period Period) (map[string][]OHLCVBar, error) {
	path := fmt.Sprintf("/v1/bars/batch?symbols=%s&start=%s&end=%s",
		joinComma(symbols), period.Start.Format(time.RFC3339), period.End.Format(time.RFC3339))
	req, err := p.authedRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Bars map[string][]barWire `json:"bars"`
	}
	if err := p.do(req, &wire); err != nil {
		return nil, err
	}
	result := make(map[string][]OHLCVBar, len(wire.Bars))
	for sym, raw := range wire.Bars {
		bars := make([]OHLCVBar, len(raw))
		for i, b := range raw {
			bars[i] = b.toBar()
		}
		result[sym] = bars
	}
	return result, nil
}

func (p *httpProvider) FetchOptions(ctx context.Context, symbol string) ([]OptionsContract, error) {
	req, err := p.authedRequest(ctx, "/v1/options/"+symbol)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Chain []OptionsContract `json:"chain"`
	}
	if err := p.do(req, &wire); err != nil {
		return nil, err
	}
	return wire.Chain, nil
}

func (p *httpProvider) FetchInfo(ctx context.Context, symbol string) (TickerInfo, error) {
	req, err := p.authedRequest(ctx, "/v1/info/"+symbol)
	if err != nil {
		return TickerInfo{}, err
	}
	var info TickerInfo
	if err := p.do(req, &info); err != nil {
		return TickerInfo{}, err
	}
	return info, nil
}

func (p *httpProvider) ValidateSymbol(ctx context.Context, symbol string) (bool, error) {
	req, err := p.authedRequest(ctx, "/v1/info/"+symbol)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
