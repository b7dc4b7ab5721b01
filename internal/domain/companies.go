package domain

import "strings"

// CompanyIndex is a case-insensitive lookup of companies by stock id.
// It is built once per run and only read afterwards.
type CompanyIndex struct {
	byID map[string]Company
}

// NewCompanyIndex indexes companies; a later duplicate replaces an earlier one
func NewCompanyIndex(companies []Company) *CompanyIndex {
	idx := &CompanyIndex{byID: make(map[string]Company, len(companies))}
	for _, c := range companies {
		idx.byID[strings.ToLower(c.StockID)] = c
	}
	return idx
}

// Lookup returns the company with stockID
func (i *CompanyIndex) Lookup(stockID string) (Company, bool) {
	c, ok := i.byID[strings.ToLower(stockID)]
	return c, ok
}

// SectorOf returns the sector id of stockID; false when the company is
// unknown or has no sector
func (i *CompanyIndex) SectorOf(stockID string) (string, bool) {
	c, ok := i.Lookup(stockID)
	if !ok || c.SectorTypeID == "" {
		return "", false
	}
	return c.SectorTypeID, true
}

// Len returns the number of indexed companies
func (i *CompanyIndex) Len() int {
	return len(i.byID)
}
