package calculator

import (
	"errors"
	"time"

	"AssetDash/internal/model"
)

// Point is one value of a derived series. Valid is false for positions that
// have fewer than window observations behind them.
type Point struct {
	Date  time.Time
	Value float64
	Valid bool
}

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the rolling mean of closes over window rows, the
// current row included.
func MovingAverage(rows []model.PriceRow, window int) ([]Point, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	closes := extractCloses(rows)
	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i].Date = r.Date
		if i+1 < window {
			continue
		}
		sma, err := CalculateSMA(closes[:i+1], window)
		if err != nil {
			return nil, err
		}
		points[i].Value = sma
		points[i].Valid = true
	}
	return points, nil
}

func extractCloses(rows []model.PriceRow) []float64 {
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}
	return closes
}
