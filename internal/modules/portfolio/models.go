// Package portfolio assembles selected stocks into portfolio records, writes
// the delimited report and persists run snapshots.
package portfolio

import (
	"time"

	"github.com/aristath/capm/internal/domain"
)

// HoldingDays is the holding period of every assembled portfolio
const HoldingDays = 7

// Record is one selected stock enriched with its reference data
type Record struct {
	GroupKey         string            `json:"group_key"`
	IndustryTopLevel string            `json:"industry_top_level"`
	Industry2ndLevel string            `json:"industry_2nd_level"`
	Industry3rdLevel string            `json:"industry_3rd_level"`
	IndustrySector   string            `json:"industry_sector"`
	ShortName        string            `json:"short_name"`
	FullName         string            `json:"full_name"`
	StockID          string            `json:"stock_id"`
	Index            domain.StockIndex `json:"index"`
	Determination    float64           `json:"determination"`
	LongTermROE      float64           `json:"long_term_roe"` // Latest trailing ROE, 0 when unknown
}

// Portfolio is the outcome of one selection run
type Portfolio struct {
	Hold        time.Time          `json:"hold"`
	Settings    domain.RunSettings `json:"settings"`
	Records     []Record           `json:"records"`
	HoldingDays int                `json:"holding_days"`
}
