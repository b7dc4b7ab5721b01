package capm

import (
	"time"

	"github.com/aristath/capm/internal/domain"
)

// trailingPrices holds the midpoint price of each trailing window
type trailingPrices struct {
	week, month, twoMonths, threeMonths, sixMonths, year float64
}

// addMonths shifts t by months, clamping the day to the end of the target
// month (Mar 31 minus one month is Feb 28/29)
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// computeTrailingPrices derives the trailing window prices from trade
// records sorted by date descending. Each window reports
// (min low + max high) / 2 over the rows on or after its cutoff.
func computeTrailingPrices(trades []domain.TradeRecord) trailingPrices {
	if len(trades) == 0 {
		return trailingPrices{}
	}

	latest := domain.TruncateDay(trades[0].Date)
	return trailingPrices{
		week:        windowMidpoint(trades, latest.AddDate(0, 0, -7)),
		month:       windowMidpoint(trades, addMonths(latest, -1)),
		twoMonths:   windowMidpoint(trades, addMonths(latest, -2)),
		threeMonths: windowMidpoint(trades, addMonths(latest, -3)),
		sixMonths:   windowMidpoint(trades, addMonths(latest, -6)),
		year:        windowMidpoint(trades, addMonths(latest, -12)),
	}
}

// windowMidpoint returns 0 when the window lacks either a low or a high price
func windowMidpoint(trades []domain.TradeRecord, cutoff time.Time) float64 {
	var low, high *float64
	for _, tr := range trades {
		if domain.TruncateDay(tr.Date).Before(cutoff) {
			// sorted descending, nothing older qualifies
			break
		}
		if tr.LowPrice != nil && (low == nil || *tr.LowPrice < *low) {
			low = tr.LowPrice
		}
		if tr.HighPrice != nil && (high == nil || *tr.HighPrice > *high) {
			high = tr.HighPrice
		}
	}

	if low == nil || high == nil {
		return 0
	}
	return (*low + *high) / 2
}
