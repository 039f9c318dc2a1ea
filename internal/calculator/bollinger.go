package calculator

import (
	"errors"
	"math"
	"time"

	"AssetDash/internal/model"
)

// Band is one Bollinger Bands observation.
type Band struct {
	Date   time.Time
	Middle float64
	Upper  float64
	Lower  float64
	Valid  bool
}

// BollingerBands returns middle (moving average) and middle ± numStd standard
// deviations over the same window. The deviation is the population one, as
// charting tools use.
func BollingerBands(rows []model.PriceRow, window int, numStd float64) ([]Band, error) {
	if numStd < 0 {
		return nil, errors.New("numStd must not be negative")
	}
	ma, err := MovingAverage(rows, window)
	if err != nil {
		return nil, err
	}
	closes := extractCloses(rows)
	bands := make([]Band, len(rows))
	for i, p := range ma {
		bands[i].Date = p.Date
		if !p.Valid {
			continue
		}
		var sq float64
		for _, c := range closes[i+1-window : i+1] {
			sq += (c - p.Value) * (c - p.Value)
		}
		sd := math.Sqrt(sq / float64(window))
		bands[i] = Band{
			Date:   p.Date,
			Middle: p.Value,
			Upper:  p.Value + numStd*sd,
			Lower:  p.Value - numStd*sd,
			Valid:  true,
		}
	}
	return bands, nil
}
