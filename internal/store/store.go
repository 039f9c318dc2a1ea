package store

import (
	"context"
	"fmt"
	"time"

	"AssetDash/internal/model"
)

// PriceStore persists historical price rows keyed by (symbol, date).
type PriceStore interface {
	// Get returns the cached rows within rng in ascending date order. An empty
	// result is not an error.
	Get(ctx context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error)
	// Put upserts rows; a row for an existing date overwrites it.
	Put(ctx context.Context, symbol string, rows []model.PriceRow) error
	// MarkCovered records that the provider was successfully asked for rng.
	MarkCovered(ctx context.Context, symbol string, rng model.DateRange) error
	// CoveredRanges returns the coalesced ranges known to be cached.
	CoveredRanges(ctx context.Context, symbol string) ([]model.DateRange, error)
	// Last returns the n most recent rows in ascending date order.
	Last(ctx context.Context, symbol string, n int) ([]model.PriceRow, error)
	// Stats summarizes the cache per symbol.
	Stats(ctx context.Context) ([]SymbolStats, error)
	// Reset drops every row and coverage record of symbol.
	Reset(ctx context.Context, symbol string) error
	Close() error
}

// SymbolStats is one line of the cache summary.
type SymbolStats struct {
	Symbol  string
	Rows    int
	MinDate time.Time
	MaxDate time.Time
}

// Error wraps a persistence failure. It is always fatal to the request that
// hit it.
type Error struct {
	Op     string
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Symbol: symbol, Err: err}
}

// covered merges explicit coverage with the runs of stored dates.
func covered(ranges []model.DateRange, dates []time.Time) []model.DateRange {
	all := append([]model.DateRange{}, ranges...)
	all = append(all, model.Runs(dates)...)
	return model.Coalesce(all)
}

// Open returns a SQLite store at path, or a memory store when path is empty.
func Open(path string) (PriceStore, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}
