package domain

import (
	"fmt"
	"time"
)

// TradeStatusNormal marks a trading day eligible for computation
const TradeStatusNormal = 1

// DateWindow is an inclusive range of trading dates. A zero End leaves the
// window open until the day a run resolves it with EndingOn.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsOpenEnded reports whether End is still unset
func (w DateWindow) IsOpenEnded() bool {
	return w.End.IsZero()
}

// EndingOn closes an open window on the day of now; a fixed End is kept
func (w DateWindow) EndingOn(now time.Time) DateWindow {
	if w.IsOpenEnded() {
		w.End = TruncateDay(now)
	}
	return w
}

// Contains reports whether d falls inside the window (date precision)
func (w DateWindow) Contains(d time.Time) bool {
	day := TruncateDay(d)
	return !day.Before(TruncateDay(w.Start)) && !day.After(TruncateDay(w.End))
}

// TruncateDay drops the time of day, keeping the date in UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TradeRecord is one daily trading row of a stock
type TradeRecord struct {
	Date        time.Time `json:"date"`
	ReturnRate  *float64  `json:"return_rate"` // Reinvested daily return
	ClosePrice  *float64  `json:"close_price"`
	HighPrice   *float64  `json:"high_price"`
	LowPrice    *float64  `json:"low_price"`
	StockID     string    `json:"stock_id"`
	TradeStatus int       `json:"trade_status"`
}

// RiskFactor is one daily beta/risk row of a stock
type RiskFactor struct {
	Date              time.Time `json:"date"`
	Beta              *float64  `json:"beta"`        // Beta against the market
	SectorBeta        *float64  `json:"sector_beta"` // Beta against the sector
	NonSystematicRisk *float64  `json:"non_systematic_risk"`
	Volatility        *float64  `json:"volatility"`
	StockID           string    `json:"stock_id"`
}

// Derivative holds daily valuation metrics of a stock
type Derivative struct {
	Date                  time.Time `json:"date"`
	PE                    *float64  `json:"pe"`
	Turnover              *float64  `json:"turnover"`
	Liquidity             *float64  `json:"liquidity"`
	CirculatedMarketValue *float64  `json:"circulated_market_value"`
	StockID               string    `json:"stock_id"`
}

// Company is the static reference data of a listed company
type Company struct {
	StockID       string `json:"stock_id"`
	IndustryCodeA string `json:"industry_code_a"`
	IndustryCodeB string `json:"industry_code_b"`
	IndustryCodeC string `json:"industry_code_c"`
	IndustryNameA string `json:"industry_name_a"`
	IndustryNameB string `json:"industry_name_b"`
	IndustryNameC string `json:"industry_name_c"`
	SectorTypeID  string `json:"sector_type_id"`
	ShortName     string `json:"short_name"`
	FullName      string `json:"full_name"`
	MarketType    int    `json:"market_type"`
}

// GroupingKey returns the company attribute selected by level.
// An empty key means the company has no value for that attribute.
func (c Company) GroupingKey(level IndustryLevel) (string, error) {
	switch level {
	case IndustryTopLevel:
		return c.IndustryCodeA, nil
	case Industry2ndLevel2001:
		return c.IndustryCodeB, nil
	case Industry2ndLevel2012:
		return c.IndustryCodeC, nil
	case IndustrySector:
		return c.SectorTypeID, nil
	default:
		return "", fmt.Errorf("industry level %q: %w", string(level), ErrUnrecognized)
	}
}

// Sector names a sector type
type Sector struct {
	SectorTypeID   string `json:"sector_type_id"`
	SectorTypeName string `json:"sector_type_name"`
}

// Fundamentals is one quarterly profitability row
type Fundamentals struct {
	ReportDate  time.Time `json:"report_date"`
	LongTermROE *float64  `json:"long_term_roe"`
	StockID     string    `json:"stock_id"`
}

// StockIndex holds the computed risk/return metrics of one stock.
// Returns, risks and Sharpe ratios are expressed in percent.
type StockIndex struct {
	StockID                  string  `json:"stock_id"`
	ExcessReturnArithmetic   float64 `json:"excess_return_arithmetic"`
	ExcessReturnGeometric    float64 `json:"excess_return_geometric"`
	ResidualReturnArithmetic float64 `json:"residual_return_arithmetic"`
	ResidualReturnGeometric  float64 `json:"residual_return_geometric"`
	ExcessRisk               float64 `json:"excess_risk"`
	ResidualRisk             float64 `json:"residual_risk"`
	ExcessSharpe             float64 `json:"excess_sharpe"`
	ResidualSharpe           float64 `json:"residual_sharpe"`
	PE                       float64 `json:"pe"`
	Turnover                 float64 `json:"turnover"`
	Liquidity                float64 `json:"liquidity"`
	CirculatedMarketValue    float64 `json:"circulated_market_value"`
	Volatility               float64 `json:"volatility"`
	NonSystematicRisk        float64 `json:"non_systematic_risk"`
	LatestClose              float64 `json:"latest_close"`
	AvgPriceWeek             float64 `json:"avg_price_week"`
	AvgPriceMonth            float64 `json:"avg_price_month"`
	AvgPriceTwoMonths        float64 `json:"avg_price_two_months"`
	AvgPriceThreeMonths      float64 `json:"avg_price_three_months"`
	AvgPriceSixMonths        float64 `json:"avg_price_six_months"`
	AvgPriceYear             float64 `json:"avg_price_year"`
	Samples                  int     `json:"samples"`
}

// Float returns a pointer to v, for building nullable fields
func Float(v float64) *float64 {
	return &v
}

// ValueOr dereferences p, returning def when p is nil
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
