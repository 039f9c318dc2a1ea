package render

import (
	"encoding/csv"
	"io"
	"strconv"

	"AssetDash/internal/model"
)

var csvHeader = []string{"name", "ticker", "date", "open", "high", "low", "close", "volume"}

// CSV writes one line per row, assets in the given order.
func CSV(w io.Writer, items []AssetSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range items {
		if it.Series.Empty() {
			continue
		}
		for _, r := range it.Series.Rows {
			if err := cw.Write([]string{
				it.Asset.Name,
				it.Asset.Symbol,
				r.Date.Format(model.DateLayout),
				Price(r.Open),
				Price(r.High),
				Price(r.Low),
				Price(r.Close),
				strconv.FormatInt(r.Volume, 10),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
