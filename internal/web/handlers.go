package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"AssetDash/internal/cache"
	"AssetDash/internal/calculator"
	"AssetDash/internal/model"
	"AssetDash/internal/render"
	"AssetDash/internal/store"
)

// fetchConcurrency bounds how many assets are loaded at once.
const fetchConcurrency = 4

type assetPayload struct {
	Name          string       `json:"name"`
	Ticker        string       `json:"ticker"`
	Dates         []string     `json:"dates"`
	Close         []float64    `json:"close"`
	Current       float64      `json:"current"`
	ChangePct     *float64     `json:"change_pct"`
	RangePosition float64      `json:"range_position"`
	Partial       bool         `json:"partial,omitempty"`
	MA            []*float64   `json:"ma,omitempty"`
	BB            *bandPayload `json:"bb,omitempty"`
}

type bandPayload struct {
	Middle []*float64 `json:"middle"`
	Upper  []*float64 `json:"upper"`
	Lower  []*float64 `json:"lower"`
}

type metaPayload struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Period      *string `json:"period"`
	TradingDays *int    `json:"trading_days"`
	RangeLabel  string  `json:"range_label"`
	Stale       bool    `json:"stale"`
	Source      string  `json:"source"`
}

type pricesPayload struct {
	Assets []assetPayload `json:"assets"`
	Meta   metaPayload    `json:"meta"`
}

type statsEntry struct {
	Symbol  string `json:"symbol"`
	Rows    int    `json:"rows"`
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Assets        []model.Asset
		Periods       []string
		DefaultPeriod string
	}{s.assets, PeriodOrder, DefaultPeriod}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		log.Error().Err(err).Msg("render dashboard")
	}
}

// GET /api/prices
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return
	}
	items, err := s.collect(r.Context(), sel)
	if err != nil {
		s.writeSeriesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildPayload(sel, items))
}

// GET /api/prices.csv
func (s *Server) handlePricesCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return
	}
	items, err := s.collect(r.Context(), sel)
	if err != nil {
		s.writeSeriesError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="prices.csv"`)
	if err := render.CSV(w, items); err != nil {
		log.Error().Err(err).Msg("write csv")
	}
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeSeriesError(w, r, err)
		return
	}
	entries := make([]statsEntry, len(stats))
	total := 0
	for i, st := range stats {
		entries[i] = statsEntry{
			Symbol:  st.Symbol,
			Rows:    st.Rows,
			MinDate: st.MinDate.Format(model.DateLayout),
			MaxDate: st.MaxDate.Format(model.DateLayout),
		}
		total += st.Rows
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbols": entries, "total_rows": total})
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeSeriesError(w http.ResponseWriter, r *http.Request, err error) {
	var se *store.Error
	switch {
	case errors.As(err, &se):
		writeError(w, r, http.StatusInternalServerError, CodeDatabase, err.Error())
	case errors.Is(err, cache.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, cache.ErrNoData):
		writeError(w, r, http.StatusNotFound, CodeNoData, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

// collect loads every selected asset. Assets that fail or come back empty are
// left out. A store failure aborts the whole request; when nothing at all was
// served the first not-found or no-data error is returned instead.
func (s *Server) collect(ctx context.Context, sel selection) ([]render.AssetSeries, error) {
	assets := pick(s.assets, sel.Symbols)
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: %s is not a configured asset", cache.ErrNotFound, strings.Join(sel.Symbols, ","))
	}

	series := make([]*model.SeriesResult, len(assets))
	errs := make([]error, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, a := range assets {
		i, a := i, a
		g.Go(func() error {
			res, err := s.load(gctx, a.Symbol, sel)
			var se *store.Error
			if errors.As(err, &se) {
				return err
			}
			series[i], errs[i] = res, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]render.AssetSeries, 0, len(assets))
	for i, a := range assets {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("symbol", a.Symbol).Msg("asset skipped")
			continue
		}
		if series[i].Empty() {
			continue
		}
		items = append(items, render.AssetSeries{Asset: a, Series: series[i]})
	}
	if len(items) == 0 {
		if err := firstMatching(errs, cache.ErrNotFound); err != nil {
			return nil, err
		}
		if err := firstMatching(errs, cache.ErrNoData); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Server) load(ctx context.Context, symbol string, sel selection) (*model.SeriesResult, error) {
	switch {
	case sel.TradingDays > 0 && sel.Stale:
		return s.svc.CachedRecent(ctx, symbol, sel.TradingDays)
	case sel.TradingDays > 0:
		return s.svc.Recent(ctx, symbol, sel.TradingDays, sel.Refresh)
	case sel.Stale:
		return s.svc.Cached(ctx, symbol, sel.Range)
	default:
		return s.svc.GetSeries(ctx, symbol, sel.Range, sel.Refresh)
	}
}

func firstMatching(errs []error, target error) error {
	for _, err := range errs {
		if errors.Is(err, target) {
			return err
		}
	}
	return nil
}

func buildPayload(sel selection, items []render.AssetSeries) pricesPayload {
	out := pricesPayload{Assets: make([]assetPayload, 0, len(items))}
	var first, last time.Time
	live := false
	for _, it := range items {
		rows := it.Series.Rows
		if first.IsZero() || rows[0].Date.Before(first) {
			first = rows[0].Date
		}
		if rows[len(rows)-1].Date.After(last) {
			last = rows[len(rows)-1].Date
		}
		if it.Series.Source == model.SourceLive {
			live = true
		}
		out.Assets = append(out.Assets, assetPayloadFor(sel, it))
	}

	meta := metaPayload{
		Start:      sel.Range.Start.Format(model.DateLayout),
		End:        sel.Range.End.Format(model.DateLayout),
		RangeLabel: sel.rangeLabel(),
		Stale:      sel.Stale,
		Source:     string(model.SourceCache),
	}
	if sel.TradingDays > 0 {
		n := sel.TradingDays
		meta.TradingDays = &n
		if !first.IsZero() {
			meta.Start = first.Format(model.DateLayout)
			meta.End = last.Format(model.DateLayout)
		}
	} else if !sel.Custom {
		p := sel.Period
		meta.Period = &p
	}
	if live && !sel.Stale {
		meta.Source = string(model.SourceLive)
	}
	if sel.Stale && len(items) == 0 {
		meta.RangeLabel = "no cache"
	}
	out.Meta = meta
	return out
}

func assetPayloadFor(sel selection, it render.AssetSeries) assetPayload {
	rows := it.Series.Rows
	sum := calculator.Summarize(rows)
	ap := assetPayload{
		Name:          it.Asset.Name,
		Ticker:        it.Asset.Symbol,
		Dates:         make([]string, len(rows)),
		Close:         it.Series.Closes(),
		Current:       sum.Last,
		RangePosition: calculator.Position(sum.Last, sum.High, sum.Low),
		Partial:       it.Series.Partial,
	}
	for i, r := range rows {
		ap.Dates[i] = r.Date.Format(model.DateLayout)
	}
	if sum.HasChange {
		pct := sum.ChangePct
		ap.ChangePct = &pct
	}
	if sel.MA > 0 {
		if points, err := calculator.MovingAverage(rows, sel.MA); err == nil {
			ap.MA = make([]*float64, len(points))
			for i, p := range points {
				ap.MA[i] = optional(p.Value, p.Valid)
			}
		}
	}
	if sel.BB > 0 {
		if bands, err := calculator.BollingerBands(rows, sel.BB, sel.BBStd); err == nil {
			bp := &bandPayload{
				Middle: make([]*float64, len(bands)),
				Upper:  make([]*float64, len(bands)),
				Lower:  make([]*float64, len(bands)),
			}
			for i, b := range bands {
				bp.Middle[i] = optional(b.Middle, b.Valid)
				bp.Upper[i] = optional(b.Upper, b.Valid)
				bp.Lower[i] = optional(b.Lower, b.Valid)
			}
			ap.BB = bp
		}
	}
	return ap
}

// optional encodes absent values as JSON null.
func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
