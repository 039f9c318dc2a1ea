// Package reconciler works out which parts of a requested date range are not
// yet cached.
package reconciler

import (
	"context"
	"fmt"

	"AssetDash/internal/model"
)

// CoverageSource is the part of the price store the reconciler reads.
type CoverageSource interface {
	CoveredRanges(ctx context.Context, symbol string) ([]model.DateRange, error)
}

// Missing returns the ordered, maximal gaps of requested that src does not
// cover. A fully covered request yields no gaps; an unknown symbol yields the
// whole request as a single gap.
func Missing(ctx context.Context, symbol string, requested model.DateRange, src CoverageSource) ([]model.Gap, error) {
	covered, err := src.CoveredRanges(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("covered ranges: %w", err)
	}
	return Subtract(requested, covered), nil
}

// Subtract computes requested minus the union of covered.
func Subtract(requested model.DateRange, covered []model.DateRange) []model.Gap {
	gaps := []model.Gap{}
	cursor := requested.Start
	for _, c := range model.Coalesce(covered) {
		c, ok := c.Clip(requested)
		if !ok {
			continue
		}
		if c.Start.After(cursor) {
			gaps = append(gaps, model.Gap{Start: cursor, End: c.Start.AddDate(0, 0, -1)})
		}
		if next := c.End.AddDate(0, 0, 1); next.After(cursor) {
			cursor = next
		}
	}
	if !cursor.After(requested.End) {
		gaps = append(gaps, model.Gap{Start: cursor, End: requested.End})
	}
	return gaps
}
