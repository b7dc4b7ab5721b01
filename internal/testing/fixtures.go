package testing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/capm/internal/domain"
)

const dateLayout = "2006-01-02"

// Day returns the UTC midnight of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("Failed to insert fixture: %v", err)
	}
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// InsertCompany inserts a company reference row
func InsertCompany(t *testing.T, db *sql.DB, c domain.Company) {
	t.Helper()
	mustExec(t, db, `
		INSERT INTO companies (stock_id, market_type, industry_code_a, industry_code_b, industry_code_c,
			industry_name_a, industry_name_b, industry_name_c, sector_type_id, short_name, full_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.StockID, c.MarketType, c.IndustryCodeA, c.IndustryCodeB, c.IndustryCodeC,
		c.IndustryNameA, c.IndustryNameB, c.IndustryNameC, c.SectorTypeID, c.ShortName, c.FullName)
}

// InsertSector inserts a sector name row
func InsertSector(t *testing.T, db *sql.DB, s domain.Sector) {
	t.Helper()
	mustExec(t, db, `INSERT INTO sectors (sector_type_id, sector_type_name) VALUES (?, ?)`,
		s.SectorTypeID, s.SectorTypeName)
}

// InsertTrade inserts a daily trading row
func InsertTrade(t *testing.T, db *sql.DB, r domain.TradeRecord) {
	t.Helper()
	mustExec(t, db, `
		INSERT INTO trade_daily (stock_id, trade_date, return_rate, close_price, high_price, low_price, trade_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StockID, r.Date.Format(dateLayout), nullFloat(r.ReturnRate), nullFloat(r.ClosePrice),
		nullFloat(r.HighPrice), nullFloat(r.LowPrice), r.TradeStatus)
}

// InsertRiskFactor inserts a daily beta/risk row
func InsertRiskFactor(t *testing.T, db *sql.DB, f domain.RiskFactor) {
	t.Helper()
	mustExec(t, db, `
		INSERT INTO risk_factor_daily (stock_id, trade_date, beta, sector_beta, non_systematic_risk, volatility)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.StockID, f.Date.Format(dateLayout), nullFloat(f.Beta), nullFloat(f.SectorBeta),
		nullFloat(f.NonSystematicRisk), nullFloat(f.Volatility))
}

// InsertDerivative inserts a daily valuation row
func InsertDerivative(t *testing.T, db *sql.DB, d domain.Derivative) {
	t.Helper()
	mustExec(t, db, `
		INSERT INTO derivative_daily (stock_id, trade_date, pe, turnover, liquidity, circulated_market_value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.StockID, d.Date.Format(dateLayout), nullFloat(d.PE), nullFloat(d.Turnover),
		nullFloat(d.Liquidity), nullFloat(d.CirculatedMarketValue))
}

// InsertConsolidatedReturn inserts a consolidated market return
func InsertConsolidatedReturn(t *testing.T, db *sql.DB, marketType int, date time.Time, ret *float64) {
	t.Helper()
	mustExec(t, db, `INSERT INTO consolidated_return_daily (market_type, trade_date, return_rate) VALUES (?, ?, ?)`,
		marketType, date.Format(dateLayout), nullFloat(ret))
}

// InsertIndexReturn inserts an index return expressed in percent
func InsertIndexReturn(t *testing.T, db *sql.DB, indexID string, date time.Time, pct *float64) {
	t.Helper()
	mustExec(t, db, `INSERT INTO index_daily (index_id, trade_date, return_rate) VALUES (?, ?, ?)`,
		indexID, date.Format(dateLayout), nullFloat(pct))
}

// InsertSectorReturn inserts a sector return
func InsertSectorReturn(t *testing.T, db *sql.DB, sectorID string, date time.Time, ret *float64) {
	t.Helper()
	mustExec(t, db, `INSERT INTO sector_daily (sector_type_id, trade_date, return_rate) VALUES (?, ?, ?)`,
		sectorID, date.Format(dateLayout), nullFloat(ret))
}

// InsertFundamentals inserts a quarterly fundamentals row
func InsertFundamentals(t *testing.T, db *sql.DB, f domain.Fundamentals) {
	t.Helper()
	mustExec(t, db, `INSERT INTO fundamentals (stock_id, report_date, long_term_roe) VALUES (?, ?, ?)`,
		f.StockID, f.ReportDate.Format(dateLayout), nullFloat(f.LongTermROE))
}

// NewCompanyFixtures returns a small universe spanning several boards
func NewCompanyFixtures() []domain.Company {
	return []domain.Company{
		{
			StockID: "000001", MarketType: domain.MarketSZA,
			IndustryCodeA: "J", IndustryCodeB: "J66", IndustryCodeC: "J6620",
			IndustryNameA: "Finance", IndustryNameB: "Banking", IndustryNameC: "Commercial banks",
			SectorTypeID: "S01", ShortName: "PAB", FullName: "Ping An Bank Co., Ltd.",
		},
		{
			StockID: "300750", MarketType: domain.MarketGEMB,
			IndustryCodeA: "C", IndustryCodeB: "C38", IndustryCodeC: "C3840",
			IndustryNameA: "Manufacturing", IndustryNameB: "Electrical machinery", IndustryNameC: "Batteries",
			SectorTypeID: "S02", ShortName: "CATL", FullName: "Contemporary Amperex Technology Co., Ltd.",
		},
		{
			StockID: "600000", MarketType: domain.MarketSHA,
			IndustryCodeA: "J", IndustryCodeB: "J66", IndustryCodeC: "J6620",
			IndustryNameA: "Finance", IndustryNameB: "Banking", IndustryNameC: "Commercial banks",
			SectorTypeID: "S01", ShortName: "SPDB", FullName: "Shanghai Pudong Development Bank Co., Ltd.",
		},
		{
			StockID: "600519", MarketType: domain.MarketSHA,
			IndustryCodeA: "C", IndustryCodeB: "C15", IndustryCodeC: "C1512",
			IndustryNameA: "Manufacturing", IndustryNameB: "Beverages", IndustryNameC: "Liquor",
			ShortName: "Moutai", FullName: "Kweichow Moutai Co., Ltd.",
		},
	}
}
