package calculator

import (
	"math"

	"AssetDash/internal/model"
)

// Summary describes a series at a glance.
type Summary struct {
	First     float64 // first close
	Last      float64 // last close, the current price
	High      float64
	Low       float64
	ChangePct float64
	HasChange bool // false with fewer than two rows or a zero first close
}

// Summarize scans the series once. An empty series yields the zero Summary.
func Summarize(rows []model.PriceRow) Summary {
	if len(rows) == 0 {
		return Summary{}
	}
	s := Summary{
		First: rows[0].Close,
		Last:  rows[len(rows)-1].Close,
		High:  math.Inf(-1),
		Low:   math.Inf(1),
	}
	for _, r := range rows {
		if r.High > s.High {
			s.High = r.High
		}
		if r.Low < s.Low {
			s.Low = r.Low
		}
	}
	if len(rows) >= 2 && s.First != 0 {
		s.ChangePct = (s.Last - s.First) / s.First * 100
		s.HasChange = true
	}
	return s
}

// Position returns where price sits within [low, high], clamped to 0.0~1.0.
func Position(price, high, low float64) float64 {
	if high <= low {
		return 0.5
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
