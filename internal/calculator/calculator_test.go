package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetDash/internal/model"
)

func series(closes ...float64) []model.PriceRow {
	rows := make([]model.PriceRow, len(closes))
	for i, c := range closes {
		rows[i] = model.PriceRow{Date: model.Date(2024, 1, i+1), Close: c, High: c + 1, Low: c - 1}
	}
	return rows
}

func TestCalculateSMA(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, sma)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestMovingAverage_ShortSeriesAllAbsent(t *testing.T) {
	points, err := MovingAverage(series(1, 2, 3), 5)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.False(t, p.Valid)
		assert.Zero(t, p.Value)
	}
	assert.Equal(t, model.Date(2024, 1, 3), points[2].Date)
}

func TestMovingAverage_Rolling(t *testing.T) {
	points, err := MovingAverage(series(1, 2, 3, 4, 5), 3)
	require.NoError(t, err)
	assert.False(t, points[0].Valid)
	assert.False(t, points[1].Valid)
	assert.Equal(t, Point{Date: model.Date(2024, 1, 3), Value: 2, Valid: true}, points[2])
	assert.Equal(t, 3.0, points[3].Value)
	assert.Equal(t, 4.0, points[4].Value)
}

func TestMovingAverage_InvalidWindow(t *testing.T) {
	_, err := MovingAverage(series(1, 2), 0)
	assert.Error(t, err)
}

func TestBollingerBands(t *testing.T) {
	bands, err := BollingerBands(series(2, 4, 4, 4, 5, 5, 7, 9), 8, 2)
	require.NoError(t, err)
	require.Len(t, bands, 8)
	for _, b := range bands[:7] {
		assert.False(t, b.Valid)
	}
	last := bands[7]
	require.True(t, last.Valid)
	// mean 5, population sd 2
	assert.InDelta(t, 5.0, last.Middle, 1e-9)
	assert.InDelta(t, 9.0, last.Upper, 1e-9)
	assert.InDelta(t, 1.0, last.Lower, 1e-9)
}

func TestBollingerBands_FlatSeriesCollapses(t *testing.T) {
	bands, err := BollingerBands(series(3, 3, 3), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, bands[2].Middle, bands[2].Upper)
	assert.Equal(t, bands[2].Middle, bands[2].Lower)

	_, err = BollingerBands(series(3), 2, -1)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize(series(100, 90, 110))
	assert.Equal(t, 100.0, s.First)
	assert.Equal(t, 110.0, s.Last)
	assert.Equal(t, 111.0, s.High)
	assert.Equal(t, 89.0, s.Low)
	assert.True(t, s.HasChange)
	assert.InDelta(t, 10.0, s.ChangePct, 1e-9)

	one := Summarize(series(5))
	assert.False(t, one.HasChange)
	assert.Equal(t, 5.0, one.Last)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestPosition(t *testing.T) {
	assert.Equal(t, 0.5, Position(10, 10, 10))
	assert.Equal(t, 0.125, Position(5, 12, 4))
	assert.Equal(t, 0.25, Position(6, 12, 4))
	assert.Equal(t, 1.0, Position(20, 12, 4))
	assert.Equal(t, 0.0, Position(math.Inf(-1), 12, 4))
}
