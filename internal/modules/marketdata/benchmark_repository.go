package marketdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/capm/internal/domain"
	"github.com/rs/zerolog"
)

// BenchmarkRepository reads the three benchmark return series
type BenchmarkRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBenchmarkRepository creates a new benchmark series repository
func NewBenchmarkRepository(db *sql.DB, log zerolog.Logger) *BenchmarkRepository {
	return &BenchmarkRepository{
		db:  db,
		log: log.With().Str("component", "benchmark_repository").Logger(),
	}
}

// GetConsolidatedReturns returns the consolidated market return of the
// composite market type for every date in the window
func (r *BenchmarkRepository) GetConsolidatedReturns(ctx context.Context, window domain.DateWindow, marketType domain.CompositeMarketType) ([]BenchmarkReturn, error) {
	start, end := windowArgs(window)
	query := `
		SELECT trade_date, '', return_rate
		FROM consolidated_return_daily
		WHERE market_type = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date
	`
	return r.query(ctx, "consolidated returns", query, int(marketType), start, end)
}

// GetIndexReturns returns every index return in the window, in percent
func (r *BenchmarkRepository) GetIndexReturns(ctx context.Context, window domain.DateWindow) ([]BenchmarkReturn, error) {
	start, end := windowArgs(window)
	query := `
		SELECT trade_date, index_id, return_rate
		FROM index_daily
		WHERE trade_date BETWEEN ? AND ?
		ORDER BY trade_date, index_id
	`
	return r.query(ctx, "index returns", query, start, end)
}

// GetSectorReturns returns every sector return in the window
func (r *BenchmarkRepository) GetSectorReturns(ctx context.Context, window domain.DateWindow) ([]BenchmarkReturn, error) {
	start, end := windowArgs(window)
	query := `
		SELECT trade_date, sector_type_id, return_rate
		FROM sector_daily
		WHERE trade_date BETWEEN ? AND ?
		ORDER BY trade_date, sector_type_id
	`
	return r.query(ctx, "sector returns", query, start, end)
}

func (r *BenchmarkRepository) query(ctx context.Context, what string, query string, args ...interface{}) ([]BenchmarkReturn, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var returns []BenchmarkReturn
	for rows.Next() {
		var b BenchmarkReturn
		var date string
		var ret sql.NullFloat64

		if err := rows.Scan(&date, &b.Key, &ret); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		if b.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		b.Return = nullable(ret)

		returns = append(returns, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}

	r.log.Debug().Str("series", what).Int("rows", len(returns)).Msg("Loaded benchmark series")

	return returns, nil
}
