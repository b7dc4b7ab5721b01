package capm

import (
	"testing"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from     time.Time
		months   int
		expected time.Time
	}{
		{day(2024, 3, 31), -1, day(2024, 2, 29)},
		{day(2023, 3, 31), -1, day(2023, 2, 28)},
		{day(2024, 5, 31), -6, day(2023, 11, 30)},
		{day(2024, 2, 29), -12, day(2023, 2, 28)},
		{day(2024, 1, 15), -2, day(2023, 11, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.from.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tt.expected, addMonths(tt.from, tt.months))
		})
	}
}

func trade(d time.Time, low, high *float64) domain.TradeRecord {
	return domain.TradeRecord{Date: d, LowPrice: low, HighPrice: high, TradeStatus: 1}
}

func TestComputeTrailingPrices(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(day(2024, 6, 28), f(10), f(11)),
		trade(day(2024, 6, 24), f(9), f(12)),
		trade(day(2024, 6, 3), f(8), f(10)),
		trade(day(2024, 5, 10), f(7), f(9)),
		trade(day(2024, 3, 29), f(6), f(15)),
		trade(day(2023, 12, 29), f(5), f(9)),
		trade(day(2023, 6, 28), f(4), f(9)),
		trade(day(2023, 6, 27), f(1), f(30)),
	}

	p := computeTrailingPrices(trades)

	assert.Equal(t, (9.0+12.0)/2, p.week)
	assert.Equal(t, (8.0+12.0)/2, p.month)
	assert.Equal(t, (7.0+12.0)/2, p.twoMonths, "midpoint of low and high")
	assert.Equal(t, (6.0+15.0)/2, p.threeMonths)
	assert.Equal(t, (5.0+15.0)/2, p.sixMonths)
	assert.Equal(t, (4.0+15.0)/2, p.year, "cutoff day is inclusive")
}

func TestComputeTrailingPrices_NullsAndEmpty(t *testing.T) {
	assert.Equal(t, trailingPrices{}, computeTrailingPrices(nil))

	p := computeTrailingPrices([]domain.TradeRecord{
		trade(day(2024, 6, 28), nil, f(11)),
		trade(day(2024, 6, 27), nil, f(12)),
		trade(day(2024, 5, 1), f(8), nil),
	})

	assert.Equal(t, 0.0, p.week, "no low price inside the window")
	assert.Equal(t, (8.0+12.0)/2, p.twoMonths)
}
