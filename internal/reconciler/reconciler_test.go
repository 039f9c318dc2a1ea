package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetDash/internal/model"
)

type fakeCoverage struct {
	ranges []model.DateRange
	err    error
}

func (f fakeCoverage) CoveredRanges(context.Context, string) ([]model.DateRange, error) {
	return f.ranges, f.err
}

func jan(d int) model.DateRange { return model.SingleDay(model.Date(2024, 1, d)) }

func span(from, to int) model.DateRange {
	return model.MustRange(model.Date(2024, 1, from), model.Date(2024, 1, to))
}

func TestMissing_TwoSidedGaps(t *testing.T) {
	gaps, err := Missing(context.Background(), "IREN", span(1, 15), fakeCoverage{ranges: []model.DateRange{span(3, 10)}})
	require.NoError(t, err)
	assert.Equal(t, []model.Gap{span(1, 2), span(11, 15)}, gaps)
}

func TestMissing_FullyCovered(t *testing.T) {
	gaps, err := Missing(context.Background(), "IREN", span(5, 8), fakeCoverage{ranges: []model.DateRange{span(1, 31)}})
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestMissing_Uncached(t *testing.T) {
	gaps, err := Missing(context.Background(), "IREN", span(5, 8), fakeCoverage{})
	require.NoError(t, err)
	assert.Equal(t, []model.Gap{span(5, 8)}, gaps)
}

func TestMissing_PropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	_, err := Missing(context.Background(), "IREN", span(5, 8), fakeCoverage{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name      string
		requested model.DateRange
		covered   []model.DateRange
		want      []model.Gap
	}{
		{"interior holes", span(1, 20), []model.DateRange{span(3, 4), span(8, 9), jan(15)},
			[]model.Gap{span(1, 2), span(5, 7), span(10, 14), span(16, 20)}},
		{"unsorted overlapping coverage", span(1, 10), []model.DateRange{span(6, 12), span(2, 7)},
			[]model.Gap{jan(1)}},
		{"coverage outside request", span(10, 12), []model.DateRange{span(1, 5), span(20, 25)},
			[]model.Gap{span(10, 12)}},
		{"single day hit", jan(7), []model.DateRange{jan(7)}, []model.Gap{}},
		{"single day miss", jan(7), []model.DateRange{jan(8)}, []model.Gap{jan(7)}},
		{"adjacent coverage leaves nothing", span(1, 6), []model.DateRange{span(1, 3), span(4, 6)}, []model.Gap{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subtract(tt.requested, tt.covered))
		})
	}
}
