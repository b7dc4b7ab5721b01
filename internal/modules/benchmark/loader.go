// Package benchmark materializes the benchmark return series of a run window.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// ErrInvalidDateRange is returned when the window starts after it ends
var ErrInvalidDateRange = errors.New("invalid date range")

// Source provides the raw benchmark series
type Source interface {
	GetConsolidatedReturns(ctx context.Context, window domain.DateWindow, marketType domain.CompositeMarketType) ([]marketdata.BenchmarkReturn, error)
	GetIndexReturns(ctx context.Context, window domain.DateWindow) ([]marketdata.BenchmarkReturn, error)
	GetSectorReturns(ctx context.Context, window domain.DateWindow) ([]marketdata.BenchmarkReturn, error)
}

// Loader builds immutable benchmark lookups for a window
type Loader struct {
	source Source
	log    zerolog.Logger
}

// NewLoader creates a new benchmark loader
func NewLoader(source Source, log zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		log:    log.With().Str("component", "benchmark_loader").Logger(),
	}
}

// Load reads the consolidated series of marketType and the full index and
// sector series for the window. Dates without data simply have no key.
func (l *Loader) Load(ctx context.Context, window domain.DateWindow, marketType domain.CompositeMarketType) (*Series, error) {
	if window.Start.After(window.End) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			marketdata.FormatDate(window.Start), marketdata.FormatDate(window.End))
	}

	consolidated, err := l.source.GetConsolidatedReturns(ctx, window, marketType)
	if err != nil {
		return nil, fmt.Errorf("failed to load consolidated returns: %w", err)
	}

	index, err := l.source.GetIndexReturns(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load index returns: %w", err)
	}

	sector, err := l.source.GetSectorReturns(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load sector returns: %w", err)
	}

	s := &Series{
		consolidated: make(map[time.Time]*float64, len(consolidated)),
		index:        make(map[keyedDate]*float64, len(index)),
		sector:       make(map[keyedDate]*float64, len(sector)),
	}

	// Later rows overwrite earlier ones for duplicate keys
	for _, r := range consolidated {
		s.consolidated[domain.TruncateDay(r.Date)] = r.Return
	}
	for _, r := range index {
		s.index[keyedDate{date: domain.TruncateDay(r.Date), key: r.Key}] = r.Return
	}
	for _, r := range sector {
		s.sector[keyedDate{date: domain.TruncateDay(r.Date), key: r.Key}] = r.Return
	}

	l.log.Info().
		Int("consolidated", len(s.consolidated)).
		Int("index", len(s.index)).
		Int("sector", len(s.sector)).
		Int("market_type", int(marketType)).
		Msg("Loaded benchmark series")

	return s, nil
}
