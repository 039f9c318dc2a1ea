package fetcher

import (
	"context"
	"sync"
	"time"

	"AssetDash/internal/model"
)

// MockFetcher returns deterministic weekday bars and records every call. It
// is used in development and tests.
type MockFetcher struct {
	Price float64
	// Err, when set, is returned for every symbol; Errs overrides it per symbol.
	Err  error
	Errs map[string]error
	// Pad widens each answer by this many days on both sides, imitating a
	// provider that rounds to week boundaries.
	Pad int

	mu    sync.Mutex
	calls []Call
}

// Call is one recorded Fetch invocation.
type Call struct {
	Symbol string
	Range  model.DateRange
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Symbol: symbol, Range: rng})
	err := m.Err
	if e, ok := m.Errs[symbol]; ok {
		err = e
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	from := rng.Start.AddDate(0, 0, -m.Pad)
	to := rng.End.AddDate(0, 0, m.Pad)
	return MockBars(symbol, m.Price, from, to), nil
}

// Calls returns a copy of the recorded calls.
func (m *MockFetcher) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Reset forgets recorded calls.
func (m *MockFetcher) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// MockBars generates one bar per weekday between from and to. The close drifts
// with the day of year so values are stable across calls.
func MockBars(symbol string, basePrice float64, from, to time.Time) []model.PriceRow {
	if basePrice == 0 {
		basePrice = 100
	}
	var bars []model.PriceRow
	for d := model.Day(from); !d.After(model.Day(to)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(d.YearDay()%30-15)*0.001)
		bars = append(bars, model.PriceRow{
			Symbol: symbol,
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
	}
	return bars
}
