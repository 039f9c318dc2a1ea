package model

import "time"

// PriceRow is a single day's observation for one symbol.
type PriceRow struct {
	Symbol string
	Date   time.Time // midnight UTC, see Day
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Asset pairs a display name with the provider symbol.
type Asset struct {
	Name   string `yaml:"name" json:"name"`
	Symbol string `yaml:"symbol" json:"ticker"`
}

// Source tells where a series was served from.
type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
)

// SeriesResult is an ordered, gap-free (as far as the provider allows) run of
// rows for one symbol over a requested range.
type SeriesResult struct {
	Symbol  string
	Range   DateRange
	Rows    []PriceRow
	Source  Source
	Fetched int  // gaps fetched from the provider
	Partial bool // at least one gap fetch failed non-fatally
}

// Closes returns the close prices of the series in date order.
func (s *SeriesResult) Closes() []float64 {
	closes := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		closes[i] = r.Close
	}
	return closes
}

// Empty reports whether the series holds no rows.
func (s *SeriesResult) Empty() bool {
	return s == nil || len(s.Rows) == 0
}
