// Package cache serves price series out of the local store, filling missing
// date ranges from the remote provider first. Reads may write: a GetSeries call
// on a cold cache fetches and persists before it returns.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"AssetDash/internal/fetcher"
	"AssetDash/internal/model"
	"AssetDash/internal/reconciler"
	"AssetDash/internal/store"
)

var (
	// ErrNoData means nothing was cached and nothing could be fetched.
	ErrNoData = errors.New("no data available")
	// ErrNotFound means the provider does not know the symbol and nothing is cached.
	ErrNotFound = errors.New("symbol not found")
)

// Orchestrator combines the store, the reconciler and the fetcher.
type Orchestrator struct {
	store        store.PriceStore
	fetcher      fetcher.Fetcher
	now          func() time.Time
	refreshToday bool
	group        singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithTodayRefresh re-fetches today on every request whose range includes it,
// so the still-moving intraday bar stays current. Off by default, in which
// case today is cached like any other day once fetched.
func WithTodayRefresh(on bool) Option {
	return func(o *Orchestrator) { o.refreshToday = on }
}

// New creates an Orchestrator over s and f.
func New(s store.PriceStore, f fetcher.Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: s, fetcher: f, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Today is the current calendar date as seen by the orchestrator.
func (o *Orchestrator) Today() time.Time {
	return model.Day(o.now())
}

// GetSeries returns the rows of symbol over rng in ascending date order,
// fetching and storing whatever the store is missing. With refresh set the
// whole range is fetched again and overwrites cached rows. Days after today
// are never fetched.
//
// Unavailable or partial gap fetches are logged and skipped. Store failures
// abort the call. An empty result is an error only when every gap fetch
// failed: ErrNotFound if the provider rejected the symbol, ErrNoData otherwise.
func (o *Orchestrator) GetSeries(ctx context.Context, symbol string, rng model.DateRange, refresh bool) (*model.SeriesResult, error) {
	today := o.Today()
	var gaps []model.Gap
	if upToToday, ok := rng.Clip(model.DateRange{Start: rng.Start, End: today}); ok {
		gaps = []model.Gap{upToToday}
		if !refresh {
			var err error
			if gaps, err = reconciler.Missing(ctx, symbol, upToToday, o.store); err != nil {
				return nil, fmt.Errorf("reconcile %s: %w", symbol, err)
			}
			if o.refreshToday {
				gaps = withToday(gaps, upToToday, today)
			}
		}
	}

	res := &model.SeriesResult{Symbol: symbol, Range: rng, Source: model.SourceCache}
	var failed int
	var notFound error
	for _, gap := range gaps {
		res.Fetched++
		err := o.fill(ctx, symbol, gap)
		if err == nil {
			continue
		}

		var se *store.Error
		switch {
		case errors.As(err, &se):
			return nil, err
		case fetcher.IsPartial(err):
			res.Partial = true
			log.Warn().Err(err).Str("symbol", symbol).Stringer("gap", gap).Msg("partial data for gap")
		case fetcher.IsNotFound(err):
			failed++
			notFound = err
			log.Warn().Err(err).Str("symbol", symbol).Stringer("gap", gap).Msg("symbol not found by provider")
		default:
			failed++
			res.Partial = true
			log.Warn().Err(err).Str("symbol", symbol).Stringer("gap", gap).Msg("gap fetch failed, continuing")
		}
	}
	if res.Fetched > 0 {
		res.Source = model.SourceLive
	}

	rows, err := o.store.Get(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && failed > 0 && failed == len(gaps) {
		if notFound != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, symbol, notFound)
		}
		return nil, fmt.Errorf("%w for %s in %s", ErrNoData, symbol, rng)
	}
	res.Rows = rows
	return res, nil
}

// fill fetches one gap and persists it. Concurrent callers asking for the same
// (symbol, gap) share a single provider call.
func (o *Orchestrator) fill(ctx context.Context, symbol string, gap model.Gap) error {
	key := symbol + "|" + gap.String()
	_, err, shared := o.group.Do(key, func() (interface{}, error) {
		return nil, o.fetchAndStore(ctx, symbol, gap)
	})
	if shared {
		log.Debug().Str("symbol", symbol).Stringer("gap", gap).Msg("gap fetch shared with concurrent request")
	}
	return err
}

func (o *Orchestrator) fetchAndStore(ctx context.Context, symbol string, gap model.Gap) error {
	start := time.Now()
	rows, err := o.fetcher.Fetch(ctx, symbol, gap)
	if err != nil {
		var fe *fetcher.Error
		if !errors.As(err, &fe) || fe.Kind != fetcher.PartialData {
			return err
		}
		// keep what came back, leave the gap uncovered so it is asked for again
		if perr := o.store.Put(ctx, symbol, clip(fe.Rows, gap)); perr != nil {
			return perr
		}
		return err
	}

	kept := clip(rows, gap)
	if err := o.store.Put(ctx, symbol, kept); err != nil {
		return err
	}
	if settled, ok := o.settled(gap); ok {
		if err := o.store.MarkCovered(ctx, symbol, settled); err != nil {
			return err
		}
	}
	log.Info().
		Str("symbol", symbol).
		Str("source", o.fetcher.Name()).
		Stringer("gap", gap).
		Int("rows", len(kept)).
		Int("dropped", len(rows)-len(kept)).
		Dur("elapsed", time.Since(start)).
		Msg("gap fetched")
	return nil
}

// settled is the part of gap that may be recorded as covered: up to today, or
// up to yesterday when today is refreshed on every request.
func (o *Orchestrator) settled(gap model.Gap) (model.DateRange, bool) {
	last := o.Today()
	if o.refreshToday {
		last = last.AddDate(0, 0, -1)
	}
	if gap.Start.After(last) {
		return model.DateRange{}, false
	}
	if gap.End.After(last) {
		gap.End = last
	}
	return gap, true
}

// withToday makes sure today is fetched again when rng includes it, even if
// a row for today is already stored.
func withToday(gaps []model.Gap, rng model.DateRange, today time.Time) []model.Gap {
	if !rng.Contains(today) {
		return gaps
	}
	for _, g := range gaps {
		if g.Contains(today) {
			return gaps
		}
	}
	if n := len(gaps); n > 0 && gaps[n-1].End.AddDate(0, 0, 1).Equal(today) {
		gaps[n-1].End = today
		return gaps
	}
	gaps = append(gaps, model.SingleDay(today))
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Start.Before(gaps[j].Start) })
	return gaps
}

// clip drops rows outside rng, normalizing dates and symbols on the way.
func clip(rows []model.PriceRow, rng model.DateRange) []model.PriceRow {
	kept := make([]model.PriceRow, 0, len(rows))
	for _, r := range rows {
		if rng.Contains(r.Date) {
			r.Date = model.Day(r.Date)
			kept = append(kept, r)
		}
	}
	return kept
}
