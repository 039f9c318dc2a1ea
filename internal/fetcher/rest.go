package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"AssetDash/internal/model"
)

// RESTFetcher implements Fetcher against a vstrader-style REST API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "vstrader" }

// restBar is the expected JSON shape from the API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Fetch asks for daily bars. The API answers 206 when it could only serve part
// of the range; those rows come back inside a PartialData error.
func (f *RESTFetcher) Fetch(ctx context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", rng.Start.Format(model.DateLayout))
	q.Set("end", rng.End.Format(model.DateLayout))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, unavailable(symbol, err)
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, unavailable(symbol, fmt.Errorf("fetch bars: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError(symbol, resp.StatusCode, string(body))
	}

	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, unavailable(symbol, fmt.Errorf("decode bars: %w", err))
	}
	rows := make([]model.PriceRow, len(bars))
	for i, b := range bars {
		rows[i] = model.PriceRow{
			Symbol: symbol,
			Date:   model.Day(time.Unix(b.Timestamp, 0).UTC()),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		}
	}
	// Ensure chronological order
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	if resp.StatusCode == http.StatusPartialContent {
		return rows, &Error{Kind: PartialData, Symbol: symbol, Err: fmt.Errorf("provider served %d rows", len(rows)), Rows: rows}
	}
	return rows, nil
}
