// Package marketdata provides read access to the market database: per-stock
// daily series, benchmark series and company reference data.
package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/capm/internal/domain"
)

// DateLayout is the storage format of every date column
const DateLayout = "2006-01-02"

// BenchmarkReturn is one benchmark observation. Key is the index id or
// sector id, empty for the consolidated series.
type BenchmarkReturn struct {
	Date   time.Time
	Return *float64
	Key    string
}

// FormatDate formats t the way dates are stored
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", raw, err)
	}
	return t, nil
}

func windowArgs(w domain.DateWindow) (string, string) {
	return FormatDate(w.Start), FormatDate(w.End)
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
