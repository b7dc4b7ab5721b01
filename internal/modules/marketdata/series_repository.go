package marketdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/capm/internal/domain"
	"github.com/rs/zerolog"
)

// SeriesRepository reads the per-stock daily series.
// All reads are restricted to a window and ordered by date descending.
type SeriesRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSeriesRepository creates a new per-stock series repository
func NewSeriesRepository(db *sql.DB, log zerolog.Logger) *SeriesRepository {
	return &SeriesRepository{
		db:  db,
		log: log.With().Str("component", "series_repository").Logger(),
	}
}

// GetTradeRecords returns the eligible (normal status) trading rows of a stock
func (r *SeriesRepository) GetTradeRecords(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.TradeRecord, error) {
	start, end := windowArgs(window)
	query := `
		SELECT stock_id, trade_date, return_rate, close_price, high_price, low_price, trade_status
		FROM trade_daily
		WHERE stock_id = ? AND trade_status = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, stockID, domain.TradeStatusNormal, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade records for %s: %w", stockID, err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var date string
		var ret, closePrice, high, low sql.NullFloat64

		if err := rows.Scan(&rec.StockID, &date, &ret, &closePrice, &high, &low, &rec.TradeStatus); err != nil {
			return nil, fmt.Errorf("failed to scan trade record: %w", err)
		}
		if rec.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		rec.ReturnRate = nullable(ret)
		rec.ClosePrice = nullable(closePrice)
		rec.HighPrice = nullable(high)
		rec.LowPrice = nullable(low)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade records: %w", err)
	}

	return records, nil
}

// GetRiskFactors returns the daily beta/risk rows of a stock
func (r *SeriesRepository) GetRiskFactors(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.RiskFactor, error) {
	start, end := windowArgs(window)
	query := `
		SELECT stock_id, trade_date, beta, sector_beta, non_systematic_risk, volatility
		FROM risk_factor_daily
		WHERE stock_id = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, stockID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk factors for %s: %w", stockID, err)
	}
	defer rows.Close()

	var factors []domain.RiskFactor
	for rows.Next() {
		var f domain.RiskFactor
		var date string
		var beta, sectorBeta, nonSys, vol sql.NullFloat64

		if err := rows.Scan(&f.StockID, &date, &beta, &sectorBeta, &nonSys, &vol); err != nil {
			return nil, fmt.Errorf("failed to scan risk factor: %w", err)
		}
		if f.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		f.Beta = nullable(beta)
		f.SectorBeta = nullable(sectorBeta)
		f.NonSystematicRisk = nullable(nonSys)
		f.Volatility = nullable(vol)

		factors = append(factors, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk factors: %w", err)
	}

	return factors, nil
}

// GetDerivatives returns the daily valuation rows of a stock
func (r *SeriesRepository) GetDerivatives(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.Derivative, error) {
	start, end := windowArgs(window)
	query := `
		SELECT stock_id, trade_date, pe, turnover, liquidity, circulated_market_value
		FROM derivative_daily
		WHERE stock_id = ? AND trade_date BETWEEN ? AND ?
		ORDER BY trade_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, stockID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query derivatives for %s: %w", stockID, err)
	}
	defer rows.Close()

	var derivatives []domain.Derivative
	for rows.Next() {
		var d domain.Derivative
		var date string
		var pe, turnover, liquidity, cmv sql.NullFloat64

		if err := rows.Scan(&d.StockID, &date, &pe, &turnover, &liquidity, &cmv); err != nil {
			return nil, fmt.Errorf("failed to scan derivative: %w", err)
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		d.PE = nullable(pe)
		d.Turnover = nullable(turnover)
		d.Liquidity = nullable(liquidity)
		d.CirculatedMarketValue = nullable(cmv)

		derivatives = append(derivatives, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating derivatives: %w", err)
	}

	return derivatives, nil
}
