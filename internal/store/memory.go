package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"AssetDash/internal/model"
)

// MemoryStore keeps everything in process memory. Used by tests and when no
// cache file is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[string]map[time.Time]model.PriceRow
	coverage map[string][]model.DateRange
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string]map[time.Time]model.PriceRow),
		coverage: make(map[string][]model.DateRange),
	}
}

func (m *MemoryStore) Get(_ context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.PriceRow{}
	for d, r := range m.rows[symbol] {
		if rng.Contains(d) {
			out = append(out, r)
		}
	}
	sortRows(out)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, symbol string, rows []model.PriceRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate, ok := m.rows[symbol]
	if !ok {
		byDate = make(map[time.Time]model.PriceRow)
		m.rows[symbol] = byDate
	}
	for _, r := range rows {
		r.Symbol = symbol
		r.Date = model.Day(r.Date)
		byDate[r.Date] = r
	}
	return nil
}

func (m *MemoryStore) MarkCovered(_ context.Context, symbol string, rng model.DateRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coverage[symbol] = model.Coalesce(append(m.coverage[symbol], rng))
	return nil
}

func (m *MemoryStore) CoveredRanges(_ context.Context, symbol string) ([]model.DateRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dates := make([]time.Time, 0, len(m.rows[symbol]))
	for d := range m.rows[symbol] {
		dates = append(dates, d)
	}
	return covered(m.coverage[symbol], dates), nil
}

func (m *MemoryStore) Last(_ context.Context, symbol string, n int) ([]model.PriceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.PriceRow{}
	for _, r := range m.rows[symbol] {
		out = append(out, r)
	}
	sortRows(out)
	if n < 0 {
		n = 0
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context) ([]SymbolStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats []SymbolStats
	for symbol, byDate := range m.rows {
		if len(byDate) == 0 {
			continue
		}
		st := SymbolStats{Symbol: symbol, Rows: len(byDate)}
		for d := range byDate {
			if st.MinDate.IsZero() || d.Before(st.MinDate) {
				st.MinDate = d
			}
			if d.After(st.MaxDate) {
				st.MaxDate = d
			}
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Symbol < stats[j].Symbol })
	return stats, nil
}

func (m *MemoryStore) Reset(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, symbol)
	delete(m.coverage, symbol)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func sortRows(rows []model.PriceRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
}
