package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/internal/modules/selection"
	"github.com/rs/zerolog"
)

// ReferenceSource provides sector names and fundamentals
type ReferenceSource interface {
	GetSector(ctx context.Context, sectorTypeID string) (*domain.Sector, error)
	GetLatestFundamentals(ctx context.Context, stockID string) (*domain.Fundamentals, error)
}

// Assembler turns selected groups into portfolio records
type Assembler struct {
	companies *domain.CompanyIndex
	refs      ReferenceSource
	settings  domain.RunSettings
	now       func() time.Time
	log       zerolog.Logger
}

// NewAssembler creates a new portfolio assembler for one run
func NewAssembler(companies *domain.CompanyIndex, refs ReferenceSource, settings domain.RunSettings, log zerolog.Logger) *Assembler {
	return &Assembler{
		companies: companies,
		refs:      refs,
		settings:  settings,
		now:       time.Now,
		log:       log.With().Str("component", "portfolio_assembler").Logger(),
	}
}

// Assemble emits one record per surviving (group, stock) pair, in group
// order. Selected stocks whose company reference is gone are skipped.
func (a *Assembler) Assemble(ctx context.Context, groups *selection.Groups) (*Portfolio, error) {
	p := &Portfolio{
		Settings:    a.settings,
		HoldingDays: HoldingDays,
	}

	sectorNames := make(map[string]string)

	for _, key := range groups.Keys() {
		for _, entry := range groups.Entries(key) {
			company, ok := a.companies.Lookup(entry.Index.StockID)
			if !ok {
				a.log.Warn().Str("stock_id", entry.Index.StockID).Msg("Selected stock has no company reference, skipping")
				continue
			}

			sectorName, err := a.sectorName(ctx, company.SectorTypeID, sectorNames)
			if err != nil {
				return nil, err
			}

			roe, err := a.latestROE(ctx, company.StockID)
			if err != nil {
				return nil, err
			}

			p.Records = append(p.Records, Record{
				GroupKey:         key,
				IndustryTopLevel: company.IndustryNameA,
				Industry2ndLevel: company.IndustryNameB,
				Industry3rdLevel: company.IndustryNameC,
				IndustrySector:   sectorName,
				ShortName:        company.ShortName,
				FullName:         company.FullName,
				StockID:          company.StockID,
				Index:            entry.Index,
				Determination:    entry.Score,
				LongTermROE:      roe,
			})
		}
	}

	p.Hold = a.now()

	a.log.Info().Int("records", len(p.Records)).Int("groups", groups.Len()).Msg("Portfolio assembled")

	return p, nil
}

func (a *Assembler) sectorName(ctx context.Context, sectorTypeID string, cache map[string]string) (string, error) {
	if sectorTypeID == "" {
		return "", nil
	}
	if name, ok := cache[sectorTypeID]; ok {
		return name, nil
	}

	sector, err := a.refs.GetSector(ctx, sectorTypeID)
	if err != nil {
		return "", fmt.Errorf("failed to get sector %s: %w", sectorTypeID, err)
	}

	name := ""
	if sector != nil {
		name = sector.SectorTypeName
	}
	cache[sectorTypeID] = name
	return name, nil
}

func (a *Assembler) latestROE(ctx context.Context, stockID string) (float64, error) {
	f, err := a.refs.GetLatestFundamentals(ctx, stockID)
	if err != nil {
		return 0, fmt.Errorf("failed to get fundamentals for %s: %w", stockID, err)
	}
	if f == nil {
		return 0, nil
	}
	return domain.ValueOr(f.LongTermROE, 0), nil
}
