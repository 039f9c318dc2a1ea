package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"AssetDash/internal/model"
)

// DefaultPeriod is used when a request names no range at all.
const DefaultPeriod = "7d"

// Periods maps the quick-select periods to a calendar span in days.
var Periods = map[string]int{
	"7d":  7,
	"1mo": 30,
	"3mo": 90,
	"6mo": 180,
	"1y":  365,
}

// PeriodOrder lists Periods in display order.
var PeriodOrder = []string{"7d", "1mo", "3mo", "6mo", "1y"}

// ResolvePeriod returns the range ending today that period names.
func ResolvePeriod(period string, today time.Time) (model.DateRange, error) {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := Periods[period]
	if !ok {
		return model.DateRange{}, fmt.Errorf("unknown period %q", period)
	}
	today = model.Day(today)
	return model.DateRange{Start: today.AddDate(0, 0, -days), End: today}, nil
}

// selection is a parsed /api/prices query. Exactly one of Period, a custom
// range or TradingDays decides which rows are served.
type selection struct {
	Range       model.DateRange
	Period      string // set in period mode
	Custom      bool   // start and end given
	TradingDays int    // > 0 in trading-days mode
	Symbols     []string
	Refresh     bool
	Stale       bool
	MA          int
	BB          int
	BBStd       float64
}

func (s selection) rangeLabel() string {
	switch {
	case s.TradingDays > 0:
		return fmt.Sprintf("last %d trading days", s.TradingDays)
	case s.Custom:
		return "custom range"
	default:
		return s.Period
	}
}

func parseSelection(q url.Values, today time.Time) (selection, error) {
	sel := selection{
		Refresh: q.Get("refresh") == "true",
		Stale:   q.Get("stale") == "true",
		BBStd:   2,
	}

	start, end := q.Get("start"), q.Get("end")
	switch {
	case q.Get("trading_days") != "":
		n, err := strconv.Atoi(q.Get("trading_days"))
		if err != nil {
			return sel, fmt.Errorf("trading_days: %w", err)
		}
		if n < 1 {
			n = 1
		}
		sel.TradingDays = n
		sel.Range = model.SingleDay(today)
	case start != "" || end != "":
		if start == "" || end == "" {
			return sel, fmt.Errorf("start and end must be given together")
		}
		from, err := model.ParseDate(start)
		if err != nil {
			return sel, fmt.Errorf("start: %w", err)
		}
		to, err := model.ParseDate(end)
		if err != nil {
			return sel, fmt.Errorf("end: %w", err)
		}
		if sel.Range, err = model.NewDateRange(from, to); err != nil {
			return sel, err
		}
		sel.Custom = true
	default:
		sel.Period = q.Get("period")
		if sel.Period == "" {
			sel.Period = DefaultPeriod
		}
		rng, err := ResolvePeriod(sel.Period, today)
		if err != nil {
			return sel, err
		}
		sel.Range = rng
	}

	for _, s := range strings.Split(q.Get("assets"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			sel.Symbols = append(sel.Symbols, s)
		}
	}

	var err error
	if sel.MA, err = positiveInt(q, "ma"); err != nil {
		return sel, err
	}
	if sel.BB, err = positiveInt(q, "bb"); err != nil {
		return sel, err
	}
	if v := q.Get("bb_std"); v != "" {
		if sel.BBStd, err = strconv.ParseFloat(v, 64); err != nil || sel.BBStd <= 0 {
			return sel, fmt.Errorf("bb_std must be a positive number, got %q", v)
		}
	}
	return sel, nil
}

// positiveInt reads an optional window parameter; absent means 0.
func positiveInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// pick returns the configured assets named by symbols, in configured order.
// No symbols selects every asset.
func pick(assets []model.Asset, symbols []string) []model.Asset {
	if len(symbols) == 0 {
		return assets
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []model.Asset
	for _, a := range assets {
		if want[a.Symbol] {
			out = append(out, a)
		}
	}
	return out
}
