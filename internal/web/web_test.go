package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetDash/internal/cache"
	"AssetDash/internal/fetcher"
	"AssetDash/internal/model"
	"AssetDash/internal/store"
)

var testAssets = []model.Asset{
	{Name: "Gold", Symbol: "GC=F"},
	{Name: "Bitcoin", Symbol: "BTC-USD"},
}

// Wednesday 2024-01-10, midday.
var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, f fetcher.Fetcher) *Server {
	t.Helper()
	orch := cache.New(store.NewMemoryStore(), f, cache.WithClock(func() time.Time { return testNow }))
	srv, err := New(orch, testAssets)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodePrices(t *testing.T, rec *httptest.ResponseRecorder) pricesPayload {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p pricesPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e.Error.Code
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{})

	rec := do(t, srv, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestFavicon(t *testing.T) {
	rec := do(t, newTestServer(t, &fetcher.MockFetcher{}), "/favicon.ico")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestIndex(t *testing.T) {
	rec := do(t, newTestServer(t, &fetcher.MockFetcher{}), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Bitcoin")
	assert.Contains(t, rec.Body.String(), `data-period="1y"`)
}

func TestPrices_DefaultPeriod(t *testing.T) {
	mock := &fetcher.MockFetcher{Price: 100}
	srv := newTestServer(t, mock)

	p := decodePrices(t, do(t, srv, "/api/prices"))
	require.Len(t, p.Assets, 2)
	assert.Equal(t, "Gold", p.Assets[0].Name)
	assert.Equal(t, "GC=F", p.Assets[0].Ticker)
	// Jan 3..10 holds six weekdays
	assert.Equal(t, []string{"2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09", "2024-01-10"}, p.Assets[0].Dates)
	assert.Len(t, p.Assets[0].Close, 6)
	assert.Equal(t, p.Assets[0].Close[5], p.Assets[0].Current)
	require.NotNil(t, p.Assets[0].ChangePct)
	assert.Nil(t, p.Assets[0].MA)

	require.NotNil(t, p.Meta.Period)
	assert.Equal(t, "7d", *p.Meta.Period)
	assert.Nil(t, p.Meta.TradingDays)
	assert.Equal(t, "2024-01-03", p.Meta.Start)
	assert.Equal(t, "2024-01-10", p.Meta.End)
	assert.Equal(t, "live", p.Meta.Source)
	assert.False(t, p.Meta.Stale)
}

func TestPrices_AssetFilterAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{Price: 100})

	p := decodePrices(t, do(t, srv, "/api/prices?assets=BTC-USD&ma=3&bb=3&bb_std=1.5"))
	require.Len(t, p.Assets, 1)
	a := p.Assets[0]
	assert.Equal(t, "BTC-USD", a.Ticker)

	require.Len(t, a.MA, 6)
	assert.Nil(t, a.MA[0])
	assert.Nil(t, a.MA[1])
	require.NotNil(t, a.MA[2])
	assert.InDelta(t, (a.Close[0]+a.Close[1]+a.Close[2])/3, *a.MA[2], 1e-9)

	require.NotNil(t, a.BB)
	assert.Nil(t, a.BB.Upper[1])
	require.NotNil(t, a.BB.Upper[2])
	assert.GreaterOrEqual(t, *a.BB.Upper[2], *a.BB.Middle[2])
	assert.LessOrEqual(t, *a.BB.Lower[2], *a.BB.Middle[2])
}

func TestPrices_CustomRange(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{})
	p := decodePrices(t, do(t, srv, "/api/prices?start=2024-01-01&end=2024-01-02"))
	require.Len(t, p.Assets, 2)
	assert.Len(t, p.Assets[0].Dates, 2)
	assert.Nil(t, p.Meta.Period)
	assert.Equal(t, "custom range", p.Meta.RangeLabel)
}

func TestPrices_TradingDays(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{})
	p := decodePrices(t, do(t, srv, "/api/prices?trading_days=3"))
	require.Len(t, p.Assets, 2)
	assert.Equal(t, []string{"2024-01-08", "2024-01-09", "2024-01-10"}, p.Assets[1].Dates)
	require.NotNil(t, p.Meta.TradingDays)
	assert.Equal(t, 3, *p.Meta.TradingDays)
	assert.Equal(t, "last 3 trading days", p.Meta.RangeLabel)
	assert.Equal(t, "2024-01-08", p.Meta.Start)
	assert.Equal(t, "2024-01-10", p.Meta.End)
}

func TestPrices_SecondRequestServedFromCache(t *testing.T) {
	mock := &fetcher.MockFetcher{}
	srv := newTestServer(t, mock)
	target := "/api/prices?start=2024-01-01&end=2024-01-05"

	decodePrices(t, do(t, srv, target))
	assert.Len(t, mock.Calls(), 2)

	mock.Reset()
	p := decodePrices(t, do(t, srv, target))
	assert.Empty(t, mock.Calls())
	assert.Equal(t, "cache", p.Meta.Source)
}

func TestPrices_Stale(t *testing.T) {
	mock := &fetcher.MockFetcher{}
	srv := newTestServer(t, mock)

	p := decodePrices(t, do(t, srv, "/api/prices?stale=true"))
	assert.Empty(t, p.Assets)
	assert.Equal(t, "no cache", p.Meta.RangeLabel)
	assert.True(t, p.Meta.Stale)
	assert.Equal(t, "cache", p.Meta.Source)
	assert.Empty(t, mock.Calls(), "stale reads never fetch")

	decodePrices(t, do(t, srv, "/api/prices"))
	p = decodePrices(t, do(t, srv, "/api/prices?stale=true"))
	assert.Len(t, p.Assets, 2)
	assert.Equal(t, "7d", p.Meta.RangeLabel)
}

func TestPrices_BadParams(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{})
	for _, target := range []string{
		"/api/prices?period=2w",
		"/api/prices?start=2024-01-01",
		"/api/prices?start=2024-01-10&end=2024-01-01",
		"/api/prices?start=yesterday&end=2024-01-01",
		"/api/prices?trading_days=many",
		"/api/prices?ma=0",
		"/api/prices?bb=3&bb_std=-1",
	} {
		rec := do(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, CodeInvalidParam, errorCode(t, rec), target)
	}
}

func TestPrices_UnknownAsset(t *testing.T) {
	rec := do(t, newTestServer(t, &fetcher.MockFetcher{}), "/api/prices?assets=NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, errorCode(t, rec))
}

func TestPrices_ProviderNotFound(t *testing.T) {
	mock := &fetcher.MockFetcher{Err: &fetcher.Error{Kind: fetcher.NotFound, Symbol: "GC=F", Err: errors.New("delisted")}}
	rec := do(t, newTestServer(t, mock), "/api/prices?assets=GC=F")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, errorCode(t, rec))
}

func TestPrices_NoData(t *testing.T) {
	mock := &fetcher.MockFetcher{Err: &fetcher.Error{Kind: fetcher.Unavailable, Err: errors.New("timeout")}}
	rec := do(t, newTestServer(t, mock), "/api/prices")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNoData, errorCode(t, rec))
}

func TestPrices_FailingAssetIsSkipped(t *testing.T) {
	mock := &fetcher.MockFetcher{Errs: map[string]error{
		"BTC-USD": &fetcher.Error{Kind: fetcher.NotFound, Symbol: "BTC-USD", Err: errors.New("gone")},
	}}
	p := decodePrices(t, do(t, newTestServer(t, mock), "/api/prices"))
	require.Len(t, p.Assets, 1)
	assert.Equal(t, "GC=F", p.Assets[0].Ticker)
}

type failingService struct {
	Service
}

func (failingService) GetSeries(context.Context, string, model.DateRange, bool) (*model.SeriesResult, error) {
	return nil, &store.Error{Op: "get", Symbol: "GC=F", Err: errors.New("disk I/O error")}
}

func TestPrices_StoreErrorIs500(t *testing.T) {
	orch := cache.New(store.NewMemoryStore(), &fetcher.MockFetcher{}, cache.WithClock(func() time.Time { return testNow }))
	srv, err := New(failingService{orch}, testAssets)
	require.NoError(t, err)

	rec := do(t, srv, "/api/prices")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeDatabase, errorCode(t, rec))
}

func TestPricesCSV(t *testing.T) {
	rec := do(t, newTestServer(t, &fetcher.MockFetcher{}), "/api/prices.csv?assets=GC=F&start=2024-01-01&end=2024-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,ticker,date,open,high,low,close,volume", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Gold,GC=F,2024-01-01,"))
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, &fetcher.MockFetcher{})
	decodePrices(t, do(t, srv, "/api/prices"))

	rec := do(t, srv, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Symbols   []statsEntry `json:"symbols"`
		TotalRows int          `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 12, body.TotalRows)
	require.Len(t, body.Symbols, 2)
	assert.Equal(t, "2024-01-03", body.Symbols[0].MinDate)
	assert.Equal(t, "2024-01-10", body.Symbols[0].MaxDate)
}

func TestRecovery(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, errorCode(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(t, &fetcher.MockFetcher{}), "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
