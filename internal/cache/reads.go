package cache

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"AssetDash/internal/model"
	"AssetDash/internal/store"
)

// Cached returns whatever the store holds for rng without contacting the
// provider. An empty series is not an error.
func (o *Orchestrator) Cached(ctx context.Context, symbol string, rng model.DateRange) (*model.SeriesResult, error) {
	rows, err := o.store.Get(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	return &model.SeriesResult{Symbol: symbol, Range: rng, Rows: rows, Source: model.SourceCache}, nil
}

// recentSpan is the number of calendar days fetched to find n trading days,
// leaving room for weekends and holidays.
func recentSpan(n int) int {
	return n*7/5 + 10
}

// Recent returns the last n trading rows of symbol up to today, filling the
// cache first the same way GetSeries does.
func (o *Orchestrator) Recent(ctx context.Context, symbol string, n int, refresh bool) (*model.SeriesResult, error) {
	if n < 1 {
		n = 1
	}
	today := o.Today()
	rng := model.DateRange{Start: today.AddDate(0, 0, -recentSpan(n)), End: today}
	res, err := o.GetSeries(ctx, symbol, rng, refresh)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) > n {
		res.Rows = res.Rows[len(res.Rows)-n:]
	}
	if len(res.Rows) > 0 {
		res.Range.Start = res.Rows[0].Date
	}
	return res, nil
}

// CachedRecent returns the last n cached rows without contacting the provider.
func (o *Orchestrator) CachedRecent(ctx context.Context, symbol string, n int) (*model.SeriesResult, error) {
	rows, err := o.store.Last(ctx, symbol, n)
	if err != nil {
		return nil, err
	}
	res := &model.SeriesResult{Symbol: symbol, Rows: rows, Source: model.SourceCache}
	if len(rows) > 0 {
		res.Range = model.DateRange{Start: rows[0].Date, End: rows[len(rows)-1].Date}
	}
	return res, nil
}

// Stats summarizes the cache per symbol. It never fetches.
func (o *Orchestrator) Stats(ctx context.Context) ([]store.SymbolStats, error) {
	return o.store.Stats(ctx)
}

// Warm fills the cache for every asset over rng. Per-asset fetch failures are
// logged; the first store failure stops the run.
func (o *Orchestrator) Warm(ctx context.Context, assets []model.Asset, rng model.DateRange) error {
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := o.GetSeries(ctx, a.Symbol, rng, false)
		if err != nil {
			var se *store.Error
			if errors.As(err, &se) {
				return err
			}
			log.Warn().Err(err).Str("symbol", a.Symbol).Msg("warm failed")
			continue
		}
		log.Debug().Str("symbol", a.Symbol).Int("rows", len(res.Rows)).Int("fetched", res.Fetched).Msg("warmed")
	}
	return nil
}
