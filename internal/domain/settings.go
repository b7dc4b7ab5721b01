package domain

import "strings"

// RunSettings are the selection options of one pipeline run
type RunSettings struct {
	Window            DateWindow          `json:"window" msgpack:"window"`
	IndustryLevel     IndustryLevel       `json:"industry_level" msgpack:"industry_level"`
	AverageAlgorithm  AverageAlgorithm    `json:"average_algorithm" msgpack:"average_algorithm"`
	PortfolioAlgo     PortfolioAlgo       `json:"portfolio_algo" msgpack:"portfolio_algo"`
	BoardType         BoardType           `json:"board_type" msgpack:"board_type"`
	RiskType          RiskType            `json:"risk_type" msgpack:"risk_type"`
	ReturnSource      ReturnSource        `json:"return_source" msgpack:"return_source"`
	InterestedSymbols []string            `json:"interested_symbols" msgpack:"interested_symbols"`
	MarketType        CompositeMarketType `json:"market_type" msgpack:"market_type"`
	PortfolioSize     int                 `json:"portfolio_size" msgpack:"portfolio_size"`
	TopN              int                 `json:"top_n" msgpack:"top_n"`
	FilterByBoard     bool                `json:"filter_by_board" msgpack:"filter_by_board"`
	FilterBySymbol    bool                `json:"filter_by_symbol" msgpack:"filter_by_symbol"`
}

// AllowedPrefixes returns the stock id prefixes a candidate must match.
// A single empty prefix matches every stock.
func (s RunSettings) AllowedPrefixes() []string {
	switch {
	case s.FilterByBoard:
		return []string{s.BoardType.Prefix()}
	case s.FilterBySymbol:
		out := make([]string, len(s.InterestedSymbols))
		copy(out, s.InterestedSymbols)
		return out
	default:
		return []string{""}
	}
}

// MatchesPrefix reports whether stockID starts with one of prefixes,
// ignoring case
func MatchesPrefix(stockID string, prefixes []string) bool {
	id := strings.ToLower(stockID)
	for _, p := range prefixes {
		if strings.HasPrefix(id, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
