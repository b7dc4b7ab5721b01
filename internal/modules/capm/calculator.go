// Package capm computes per-stock CAPM risk/return metrics.
package capm

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/internal/modules/benchmark"
	"github.com/aristath/capm/pkg/formulas"
	"github.com/rs/zerolog"
)

// SeriesSource provides the per-stock daily series, each restricted to the
// window and sorted by date descending
type SeriesSource interface {
	GetTradeRecords(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.TradeRecord, error)
	GetRiskFactors(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.RiskFactor, error)
	GetDerivatives(ctx context.Context, stockID string, window domain.DateWindow) ([]domain.Derivative, error)
}

// SectorResolver resolves the sector id of a stock
type SectorResolver interface {
	SectorOf(stockID string) (string, bool)
}

// Calculator computes StockIndex values for one run. It holds no mutable
// state, so Compute may be called concurrently.
type Calculator struct {
	source     SeriesSource
	benchmarks *benchmark.Series
	sectors    SectorResolver
	settings   domain.RunSettings
	log        zerolog.Logger
}

// NewCalculator creates a calculator bound to one run's settings and benchmarks
func NewCalculator(source SeriesSource, benchmarks *benchmark.Series, sectors SectorResolver, settings domain.RunSettings, log zerolog.Logger) *Calculator {
	return &Calculator{
		source:     source,
		benchmarks: benchmarks,
		sectors:    sectors,
		settings:   settings,
		log:        log.With().Str("component", "capm_calculator").Logger(),
	}
}

// Compute joins the stock's trade, risk-factor and benchmark series over the
// run window into excess/residual returns, risks and Sharpe ratios, and takes
// the valuation snapshot from the latest rows.
// Missing data only reduces the sample set; errors come from data retrieval
// or an unrecognized setting.
func (c *Calculator) Compute(ctx context.Context, stockID string, marketType int) (domain.StockIndex, error) {
	idx := domain.StockIndex{StockID: stockID}

	marketReturn, useSectorBeta, err := c.marketReturnFunc(stockID, marketType)
	if err != nil {
		return idx, err
	}

	factors, err := c.source.GetRiskFactors(ctx, stockID, c.settings.Window)
	if err != nil {
		return idx, fmt.Errorf("failed to get risk factors: %w", err)
	}
	trades, err := c.source.GetTradeRecords(ctx, stockID, c.settings.Window)
	if err != nil {
		return idx, fmt.Errorf("failed to get trade records: %w", err)
	}
	derivatives, err := c.source.GetDerivatives(ctx, stockID, c.settings.Window)
	if err != nil {
		return idx, fmt.Errorf("failed to get derivatives: %w", err)
	}

	prices := computeTrailingPrices(trades)
	idx.AvgPriceWeek = prices.week
	idx.AvgPriceMonth = prices.month
	idx.AvgPriceTwoMonths = prices.twoMonths
	idx.AvgPriceThreeMonths = prices.threeMonths
	idx.AvgPriceSixMonths = prices.sixMonths
	idx.AvgPriceYear = prices.year
	if len(trades) > 0 {
		idx.LatestClose = domain.ValueOr(trades[0].ClosePrice, 0)
	}

	returnsByDate := make(map[time.Time]*float64, len(trades))
	for _, tr := range trades {
		day := domain.TruncateDay(tr.Date)
		if _, seen := returnsByDate[day]; !seen {
			returnsByDate[day] = tr.ReturnRate
		}
	}

	var excess, residual []float64
	for _, f := range factors {
		market, ok := marketReturn(f.Date)
		if !ok {
			continue
		}
		ret, ok := returnsByDate[domain.TruncateDay(f.Date)]
		if !ok || ret == nil {
			continue
		}
		beta := f.Beta
		if useSectorBeta {
			beta = f.SectorBeta
		}
		if beta == nil {
			continue
		}

		excess = append(excess, *ret)
		residual = append(residual, *ret-*beta*market)
	}
	idx.Samples = len(excess)

	excessArith, excessGeo := formulas.Mean(excess), formulas.GeometricMean(excess)
	residualArith, residualGeo := formulas.Mean(residual), formulas.GeometricMean(residual)

	var excessMean, residualMean float64
	switch c.settings.AverageAlgorithm {
	case domain.AverageGeometric:
		excessMean, residualMean = excessGeo, residualGeo
	case domain.AverageArithmetic:
		excessMean, residualMean = excessArith, residualArith
	default:
		return idx, fmt.Errorf("average algorithm %q: %w", string(c.settings.AverageAlgorithm), domain.ErrUnrecognized)
	}

	excessRisk, excessSharpe, err := c.dispersion(excess, excessMean)
	if err != nil {
		return idx, err
	}
	residualRisk, residualSharpe, err := c.dispersion(residual, residualMean)
	if err != nil {
		return idx, err
	}

	idx.ExcessReturnArithmetic = excessArith * 100
	idx.ExcessReturnGeometric = excessGeo * 100
	idx.ResidualReturnArithmetic = residualArith * 100
	idx.ResidualReturnGeometric = residualGeo * 100
	idx.ExcessRisk = excessRisk * 100
	idx.ResidualRisk = residualRisk * 100
	idx.ExcessSharpe = scaleSharpe(excessSharpe)
	idx.ResidualSharpe = scaleSharpe(residualSharpe)

	// Latest snapshot over the period, not averaged
	if len(derivatives) > 0 {
		d := derivatives[0]
		idx.PE = domain.ValueOr(d.PE, 0)
		idx.Turnover = domain.ValueOr(d.Turnover, 0)
		idx.Liquidity = domain.ValueOr(d.Liquidity, 0)
		idx.CirculatedMarketValue = domain.ValueOr(d.CirculatedMarketValue, 0)
	}
	if len(factors) > 0 {
		idx.Volatility = domain.ValueOr(factors[0].Volatility, 0)
		idx.NonSystematicRisk = domain.ValueOr(factors[0].NonSystematicRisk, 0)
	}

	c.log.Debug().
		Str("stock_id", stockID).
		Int("samples", idx.Samples).
		Float64("excess_return", excessMean*100).
		Float64("residual_return", residualMean*100).
		Float64("excess_sharpe", idx.ExcessSharpe).
		Float64("residual_sharpe", idx.ResidualSharpe).
		Msg("Computed stock index")

	return idx, nil
}

// marketReturnFunc resolves how the market return of a date is looked up for
// this stock under the configured source, and whether the sector beta applies
func (c *Calculator) marketReturnFunc(stockID string, marketType int) (func(time.Time) (float64, bool), bool, error) {
	none := func(time.Time) (float64, bool) { return 0, false }

	switch c.settings.ReturnSource {
	case domain.SourceIndex:
		var indexID string
		if c.settings.FilterByBoard {
			indexID = c.settings.BoardType.IndexID()
		} else {
			id, ok := domain.MarketIndexID(marketType)
			if !ok {
				c.log.Debug().Str("stock_id", stockID).Int("market_type", marketType).Msg("No benchmark index for market type")
				return none, false, nil
			}
			indexID = id
		}
		return func(d time.Time) (float64, bool) { return c.benchmarks.Index(d, indexID) }, false, nil

	case domain.SourceConsolidated:
		return c.benchmarks.Consolidated, false, nil

	case domain.SourceSector:
		sectorID, ok := c.sectors.SectorOf(stockID)
		if !ok {
			c.log.Debug().Str("stock_id", stockID).Msg("Stock has no sector, no usable samples")
			return none, true, nil
		}
		return func(d time.Time) (float64, bool) { return c.benchmarks.Sector(d, sectorID) }, true, nil

	default:
		return nil, false, fmt.Errorf("market return source %q: %w", string(c.settings.ReturnSource), domain.ErrUnrecognized)
	}
}

// dispersion reduces samples around the official mean into risk and Sharpe.
// A zero mean leaves both at 0.
func (c *Calculator) dispersion(samples []float64, mean float64) (float64, float64, error) {
	var selected []float64
	switch c.settings.RiskType {
	case domain.RiskDownside:
		selected = formulas.Below(samples, mean)
	case domain.RiskBothside:
		selected = samples
	default:
		return 0, 0, fmt.Errorf("risk type %q: %w", string(c.settings.RiskType), domain.ErrUnrecognized)
	}

	if mean == 0 {
		return 0, 0, nil
	}

	risk, sharpe := formulas.RiskAdjusted(selected, mean)
	return risk, sharpe, nil
}

// scaleSharpe converts to percent; the unbounded sentinel is kept as is
func scaleSharpe(v float64) float64 {
	if v == formulas.SharpeUnbounded {
		return v
	}
	return v * 100
}
