package render

import (
	"fmt"
	"io"
	"sort"
	"time"

	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"AssetDash/internal/calculator"
	"AssetDash/internal/model"
)

// AssetSeries pairs a configured asset with the series served for it.
type AssetSeries struct {
	Asset  model.Asset
	Series *model.SeriesResult
}

// Price formats a price with two decimals.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Change formats the period change the way the table shows it.
func Change(s calculator.Summary) string {
	if !s.HasChange {
		return "N/A"
	}
	pct := decimal.NewFromFloat(s.ChangePct).Round(2)
	if pct.IsNegative() {
		return "▼" + pct.StringFixed(2) + "%"
	}
	return "▲+" + pct.StringFixed(2) + "%"
}

// Table writes a markdown table with one line per asset and one column per
// date seen in any series. Assets without rows are left out.
func Table(w io.Writer, title string, items []AssetSeries) error {
	dateSet := make(map[time.Time]bool)
	for _, it := range items {
		if it.Series.Empty() {
			continue
		}
		for _, r := range it.Series.Rows {
			dateSet[r.Date] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	header := []string{"Asset", "Ticker", "Current", "Change"}
	for _, d := range dates {
		header = append(header, d.Format("01-02"))
	}

	var rows [][]string
	for _, it := range items {
		if it.Series.Empty() {
			continue
		}
		sum := calculator.Summarize(it.Series.Rows)
		byDate := make(map[time.Time]float64, len(it.Series.Rows))
		for _, r := range it.Series.Rows {
			byDate[r.Date] = r.Close
		}
		line := []string{it.Asset.Name, it.Asset.Symbol, Price(sum.Last), Change(sum)}
		for _, d := range dates {
			if c, ok := byDate[d]; ok {
				line = append(line, Price(c))
			} else {
				line = append(line, "-")
			}
		}
		rows = append(rows, line)
	}

	doc := md.NewMarkdown(w).H2(title)
	if len(rows) == 0 {
		doc.PlainText("No data.")
		return doc.Build()
	}
	doc.Table(md.TableSet{Header: header, Rows: rows})
	doc.PlainText(fmt.Sprintf("Assets: %d", len(rows)))
	return doc.Build()
}
