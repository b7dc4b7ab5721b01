package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/capm/internal/domain"
	"github.com/rs/zerolog"
)

// ReferenceRepository reads company, sector and fundamentals reference data
type ReferenceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(db *sql.DB, log zerolog.Logger) *ReferenceRepository {
	return &ReferenceRepository{
		db:  db,
		log: log.With().Str("component", "reference_repository").Logger(),
	}
}

const companyColumns = `stock_id, market_type, industry_code_a, industry_code_b, industry_code_c,
	industry_name_a, industry_name_b, industry_name_c, sector_type_id, short_name, full_name`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCompany(s scanner) (domain.Company, error) {
	var c domain.Company
	err := s.Scan(&c.StockID, &c.MarketType, &c.IndustryCodeA, &c.IndustryCodeB, &c.IndustryCodeC,
		&c.IndustryNameA, &c.IndustryNameB, &c.IndustryNameC, &c.SectorTypeID, &c.ShortName, &c.FullName)
	return c, err
}

// GetCompanies returns every company ordered by stock id
func (r *ReferenceRepository) GetCompanies(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies ORDER BY stock_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

// GetCompany returns the company with stockID (case-insensitive), nil if absent
func (r *ReferenceRepository) GetCompany(ctx context.Context, stockID string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE stock_id = ? COLLATE NOCASE LIMIT 1`

	c, err := scanCompany(r.db.QueryRowContext(ctx, query, stockID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", stockID, err)
	}

	return &c, nil
}

// GetSector returns the sector with sectorTypeID (case-insensitive), nil if absent
func (r *ReferenceRepository) GetSector(ctx context.Context, sectorTypeID string) (*domain.Sector, error) {
	query := `
		SELECT sector_type_id, sector_type_name
		FROM sectors
		WHERE sector_type_id = ? COLLATE NOCASE
		LIMIT 1
	`

	var s domain.Sector
	err := r.db.QueryRowContext(ctx, query, sectorTypeID).Scan(&s.SectorTypeID, &s.SectorTypeName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector %s: %w", sectorTypeID, err)
	}

	return &s, nil
}

// GetLatestFundamentals returns the most recent fundamentals row of a stock,
// nil if none exists
func (r *ReferenceRepository) GetLatestFundamentals(ctx context.Context, stockID string) (*domain.Fundamentals, error) {
	query := `
		SELECT stock_id, report_date, long_term_roe
		FROM fundamentals
		WHERE stock_id = ? COLLATE NOCASE
		ORDER BY report_date DESC
		LIMIT 1
	`

	var f domain.Fundamentals
	var date string
	var roe sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, stockID).Scan(&f.StockID, &date, &roe)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fundamentals for %s: %w", stockID, err)
	}

	if f.ReportDate, err = parseDate(date); err != nil {
		return nil, err
	}
	f.LongTermROE = nullable(roe)

	return &f, nil
}
