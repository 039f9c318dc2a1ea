package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetDash/internal/cache"
	"AssetDash/internal/config"
	"AssetDash/internal/fetcher"
	"AssetDash/internal/model"
	"AssetDash/internal/store"
)

func testOrchestrator(f fetcher.Fetcher) *cache.Orchestrator {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	return cache.New(store.NewMemoryStore(), f, cache.WithClock(func() time.Time { return now }))
}

func TestSelectAssets(t *testing.T) {
	cfg := &config.Config{Assets: config.DefaultAssets}

	all, err := selectAssets(cfg, "")
	require.NoError(t, err)
	assert.Len(t, all, len(config.DefaultAssets))

	some, err := selectAssets(cfg, "GC=F, BTC-USD")
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "GC=F", some[0].Symbol)

	_, err = selectAssets(cfg, "NOPE")
	assert.Error(t, err)
}

func TestPrintTable_SkipsFailingAssets(t *testing.T) {
	mock := &fetcher.MockFetcher{Errs: map[string]error{
		"RKLB": &fetcher.Error{Kind: fetcher.NotFound, Symbol: "RKLB", Err: errors.New("delisted")},
	}}
	assets := []model.Asset{{Name: "Gold", Symbol: "GC=F"}, {Name: "Rocket Lab", Symbol: "RKLB"}}

	var out bytes.Buffer
	items, err := printTable(context.Background(), testOrchestrator(mock), assets, "7d", false, &out)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, out.String(), "GC=F")
	assert.NotContains(t, out.String(), "RKLB")
	assert.Contains(t, out.String(), "Assets: 1")
}

func TestPrintTable_BadPeriod(t *testing.T) {
	_, err := printTable(context.Background(), testOrchestrator(&fetcher.MockFetcher{}), nil, "2w", false, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSaveCSV(t *testing.T) {
	orch := testOrchestrator(&fetcher.MockFetcher{})
	items, err := printTable(context.Background(), orch, []model.Asset{{Name: "Gold", Symbol: "GC=F"}}, "7d", false, &bytes.Buffer{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := saveCSV(dir, time.Date(2024, 1, 10, 9, 30, 5, 0, time.UTC), items)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prices_20240110_093005.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "name,ticker,date,open,high,low,close,volume", lines[0])
	assert.Len(t, lines, 7) // header + Jan 3..10 weekdays
	assert.True(t, strings.HasPrefix(lines[6], "Gold,GC=F,2024-01-10,"))
}

func TestPrintStats(t *testing.T) {
	orch := testOrchestrator(&fetcher.MockFetcher{})

	var out bytes.Buffer
	require.NoError(t, printStats(context.Background(), orch, &out))
	assert.Equal(t, "The cache is empty.\n", out.String())

	_, err := orch.GetSeries(context.Background(), "GC=F", model.MustRange(model.Date(2024, 1, 1), model.Date(2024, 1, 5)), false)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, printStats(context.Background(), orch, &out))
	assert.Contains(t, out.String(), "- GC=F: 5 rows (2024-01-01 ~ 2024-01-05)")
}
