package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"AssetDash/internal/model"
	"AssetDash/internal/store"
)

// Stats writes the cache summary, one symbol per line.
func Stats(w io.Writer, stats []store.SymbolStats) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "The cache is empty.")
		return err
	}
	var total int
	if _, err := fmt.Fprintln(w, "Cache contents"); err != nil {
		return err
	}
	for _, st := range stats {
		total += st.Rows
		if _, err := fmt.Fprintf(w, "- %s: %s rows (%s ~ %s)\n", st.Symbol, humanize.Comma(int64(st.Rows)),
			st.MinDate.Format(model.DateLayout), st.MaxDate.Format(model.DateLayout)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total: %s rows across %d symbols\n", humanize.Comma(int64(total)), len(stats))
	return err
}
