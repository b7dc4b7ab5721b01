package domain

import (
	"fmt"
	"strings"
)

// IndustryLevel selects the company attribute used as grouping key
type IndustryLevel string

const (
	IndustryTopLevel     IndustryLevel = "IndustryTopLevel"
	Industry2ndLevel2001 IndustryLevel = "Industry2ndLevel2001"
	Industry2ndLevel2012 IndustryLevel = "Industry2ndLevel2012"
	IndustrySector       IndustryLevel = "IndustrySector"
)

// ParseIndustryLevel parses an industry level name
func ParseIndustryLevel(s string) (IndustryLevel, error) {
	switch l := IndustryLevel(strings.TrimSpace(s)); l {
	case IndustryTopLevel, Industry2ndLevel2001, Industry2ndLevel2012, IndustrySector:
		return l, nil
	}
	return "", fmt.Errorf("industry level %q: %w", s, ErrUnrecognized)
}

// AverageAlgorithm selects which mean becomes the official return
type AverageAlgorithm string

const (
	AverageArithmetic AverageAlgorithm = "Arithmetic"
	AverageGeometric  AverageAlgorithm = "Geometric"
)

// ParseAverageAlgorithm parses an averaging algorithm name
func ParseAverageAlgorithm(s string) (AverageAlgorithm, error) {
	switch a := AverageAlgorithm(strings.TrimSpace(s)); a {
	case AverageArithmetic, AverageGeometric:
		return a, nil
	}
	return "", fmt.Errorf("average algorithm %q: %w", s, ErrUnrecognized)
}

// PortfolioAlgo selects the score a group is ranked by
type PortfolioAlgo string

const (
	ExcessiveSharpeOptimal   PortfolioAlgo = "ExcessiveSharpeOptimal"
	ResidentialSharpeOptimal PortfolioAlgo = "ResidentialSharpeOptimal"
	ExcessiveReturnOptimal   PortfolioAlgo = "ExcessiveReturnOptimal"
	ResidentialReturnOptimal PortfolioAlgo = "ResidentialReturnOptimal"
)

// ParsePortfolioAlgo parses a scoring algorithm name
func ParsePortfolioAlgo(s string) (PortfolioAlgo, error) {
	switch a := PortfolioAlgo(strings.TrimSpace(s)); a {
	case ExcessiveSharpeOptimal, ResidentialSharpeOptimal, ExcessiveReturnOptimal, ResidentialReturnOptimal:
		return a, nil
	}
	return "", fmt.Errorf("portfolio algorithm %q: %w", s, ErrUnrecognized)
}

// Score returns the determination value of idx under this algorithm.
// Return-based algorithms rank by the geometric mean.
func (a PortfolioAlgo) Score(idx StockIndex) (float64, error) {
	switch a {
	case ExcessiveSharpeOptimal:
		return idx.ExcessSharpe, nil
	case ResidentialSharpeOptimal:
		return idx.ResidualSharpe, nil
	case ExcessiveReturnOptimal:
		return idx.ExcessReturnGeometric, nil
	case ResidentialReturnOptimal:
		return idx.ResidualReturnGeometric, nil
	default:
		return 0, fmt.Errorf("portfolio algorithm %q: %w", string(a), ErrUnrecognized)
	}
}

// BoardType identifies an exchange board
type BoardType string

const (
	BoardSZMBA BoardType = "SZMBA" // Shenzhen main board A
	BoardSZMBB BoardType = "SZMBB" // Shenzhen main board B
	BoardSHMBA BoardType = "SHMBA" // Shanghai main board A
	BoardSHMBB BoardType = "SHMBB" // Shanghai main board B
	BoardMSB   BoardType = "MSB"   // SME board
	BoardGEMB  BoardType = "GEMB"  // ChiNext
)

// ParseBoardType parses a board type code (case-insensitive)
func ParseBoardType(s string) (BoardType, error) {
	b := BoardType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := boardPrefixes[b]; ok {
		return b, nil
	}
	return "", fmt.Errorf("board type %q: %w", s, ErrUnrecognized)
}

// RiskType selects which samples contribute to the dispersion
type RiskType string

const (
	RiskDownside RiskType = "DOWNSIDE"
	RiskBothside RiskType = "BOTHSIDE"
)

// ParseRiskType parses a risk type (case-insensitive)
func ParseRiskType(s string) (RiskType, error) {
	switch r := RiskType(strings.ToUpper(strings.TrimSpace(s))); r {
	case RiskDownside, RiskBothside:
		return r, nil
	}
	return "", fmt.Errorf("risk type %q: %w", s, ErrUnrecognized)
}

// ReturnSource selects the benchmark series market returns come from
type ReturnSource string

const (
	SourceIndex        ReturnSource = "INDEX"
	SourceConsolidated ReturnSource = "CONSOLIDATED"
	SourceSector       ReturnSource = "SECTOR"
)

// ParseReturnSource parses a market return source (case-insensitive)
func ParseReturnSource(s string) (ReturnSource, error) {
	switch r := ReturnSource(strings.ToUpper(strings.TrimSpace(s))); r {
	case SourceIndex, SourceConsolidated, SourceSector:
		return r, nil
	}
	return "", fmt.Errorf("market return source %q: %w", s, ErrUnrecognized)
}

// CompositeMarketType is a bitmask of base market segments
type CompositeMarketType int

// ParseCompositeMarketType validates a composite market type code
func ParseCompositeMarketType(code int) (CompositeMarketType, error) {
	c := CompositeMarketType(code)
	if _, ok := compositeSegments[c]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("market type %d: %w", code, ErrUnrecognized)
}
