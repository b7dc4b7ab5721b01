// Package selection groups computed stock indices and keeps the top-N
// candidates of every group.
package selection

import (
	"context"
	"fmt"

	"github.com/aristath/capm/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StockCalculator computes the index of one stock
type StockCalculator interface {
	Compute(ctx context.Context, stockID string, marketType int) (domain.StockIndex, error)
}

// Engine runs grouping and selection over a company universe
type Engine struct {
	calculator  StockCalculator
	companies   []domain.Company
	settings    domain.RunSettings
	concurrency int
	log         zerolog.Logger
}

// NewEngine creates a selection engine. companies are iterated in the given
// order, which fixes group insertion order and ranking tie-breaks.
func NewEngine(calculator StockCalculator, companies []domain.Company, settings domain.RunSettings, concurrency int, log zerolog.Logger) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		calculator:  calculator,
		companies:   companies,
		settings:    settings,
		concurrency: concurrency,
		log:         log.With().Str("component", "selection_engine").Logger(),
	}
}

type candidate struct {
	company domain.Company
	key     string
}

// Select computes every eligible company, groups the results by the
// attribute named by level and ranks each group.
// Companies without that attribute, outside the market type's segments or
// not matching an allowed stock id prefix are skipped.
func (e *Engine) Select(ctx context.Context, level domain.IndustryLevel, marketType domain.CompositeMarketType) (*Groups, error) {
	if _, err := (domain.Company{}).GroupingKey(level); err != nil {
		return nil, err
	}
	algo, err := domain.ParsePortfolioAlgo(string(e.settings.PortfolioAlgo))
	if err != nil {
		return nil, err
	}
	if e.settings.TopN < 0 {
		return nil, fmt.Errorf("top n %d must not be negative: %w", e.settings.TopN, domain.ErrInvalidSetting)
	}

	prefixes := e.settings.AllowedPrefixes()

	var candidates []candidate
	for _, co := range e.companies {
		key, _ := co.GroupingKey(level)
		if key == "" {
			continue
		}
		if !marketType.Includes(co.MarketType) {
			continue
		}
		if !domain.MatchesPrefix(co.StockID, prefixes) {
			continue
		}
		candidates = append(candidates, candidate{company: co, key: key})
	}

	e.log.Info().
		Str("level", string(level)).
		Int("market_type", int(marketType)).
		Int("companies", len(e.companies)).
		Int("candidates", len(candidates)).
		Int("workers", e.concurrency).
		Msg("Computing candidate indices")

	results := make([]domain.StockIndex, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			idx, err := e.calculator.Compute(gctx, c.company.StockID, c.company.MarketType)
			if err != nil {
				return fmt.Errorf("failed to compute %s: %w", c.company.StockID, err)
			}
			results[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := NewGroups()
	for i, c := range candidates {
		score, err := algo.Score(results[i])
		if err != nil {
			return nil, err
		}
		groups.Add(c.key, Entry{Index: results[i], Score: score})
	}

	groups.rank(e.settings.TopN)

	e.log.Info().
		Int("groups", groups.Len()).
		Int("selected", groups.Total()).
		Str("algorithm", string(algo)).
		Msg("Selection complete")

	return groups, nil
}
