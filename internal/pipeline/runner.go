// Package pipeline runs one complete selection: benchmarks, per-stock
// metrics, grouping, report, snapshot and publication.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/internal/modules/benchmark"
	"github.com/aristath/capm/internal/modules/capm"
	"github.com/aristath/capm/internal/modules/portfolio"
	"github.com/aristath/capm/internal/modules/selection"
	"github.com/aristath/capm/internal/reporting"
	"github.com/rs/zerolog"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing
var ErrRunInProgress = errors.New("a run is already in progress")

// ReferenceSource provides the company universe and per-company reference data
type ReferenceSource interface {
	portfolio.ReferenceSource
	GetCompanies(ctx context.Context) ([]domain.Company, error)
}

// SnapshotStore persists finished runs
type SnapshotStore interface {
	SaveRun(ctx context.Context, run *portfolio.Run) error
}

// Dependencies are the long-lived collaborators of a runner
type Dependencies struct {
	References ReferenceSource
	Series     capm.SeriesSource
	Benchmarks benchmark.Source
	Reports    *portfolio.ReportWriter
	Snapshots  SnapshotStore
	Publisher  reporting.Publisher
}

// RunContext is the immutable state shared by every stage of one run
type RunContext struct {
	Settings   domain.RunSettings
	Benchmarks *benchmark.Series
	Companies  []domain.Company
	Index      *domain.CompanyIndex
}

// Result summarises a finished run
type Result struct {
	RunID      string        `json:"run_id"`
	ReportPath string        `json:"report_path"`
	Location   string        `json:"location,omitempty"` // Published object, empty when not published
	Groups     int           `json:"groups"`
	Records    int           `json:"records"`
	Duration   time.Duration `json:"duration_ns"`
}

// Runner executes selection runs, one at a time
type Runner struct {
	mu          sync.Mutex
	deps        Dependencies
	settings    domain.RunSettings
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// NewRunner creates a new pipeline runner
func NewRunner(deps Dependencies, settings domain.RunSettings, concurrency int, log zerolog.Logger) *Runner {
	if deps.Publisher == nil {
		deps.Publisher = reporting.NoopPublisher{}
	}
	return &Runner{
		deps:        deps,
		settings:    settings,
		concurrency: concurrency,
		now:         time.Now,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes a full selection run. It fails fast with ErrRunInProgress
// when another run holds the runner.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	startTime := r.now()
	settings := r.settings
	settings.Window = settings.Window.EndingOn(startTime)

	r.log.Info().
		Str("algorithm", string(settings.PortfolioAlgo)).
		Str("level", string(settings.IndustryLevel)).
		Time("start", settings.Window.Start).
		Time("end", settings.Window.End).
		Msg("Starting selection run")

	rc, err := r.prepare(ctx, settings)
	if err != nil {
		return nil, err
	}

	calculator := capm.NewCalculator(r.deps.Series, rc.Benchmarks, rc.Index, rc.Settings, r.log)
	engine := selection.NewEngine(calculator, rc.Companies, rc.Settings, r.concurrency, r.log)

	groups, err := engine.Select(ctx, rc.Settings.IndustryLevel, rc.Settings.MarketType)
	if err != nil {
		return nil, fmt.Errorf("failed to select stocks: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assembler := portfolio.NewAssembler(rc.Index, r.deps.References, rc.Settings, r.log)
	p, err := assembler.Assemble(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble portfolio: %w", err)
	}

	reportPath, err := r.deps.Reports.Write(p, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	run := portfolio.NewRun(p, reportPath, r.now())
	if err := r.deps.Snapshots.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	location, err := r.deps.Publisher.Publish(ctx, reportPath)
	if err != nil {
		r.log.Warn().Err(err).Str("report", reportPath).Msg("Failed to publish report")
	}

	result := &Result{
		RunID:      run.ID,
		ReportPath: reportPath,
		Location:   location,
		Groups:     groups.Len(),
		Records:    len(p.Records),
		Duration:   r.now().Sub(startTime),
	}

	r.log.Info().
		Str("run_id", result.RunID).
		Int("groups", result.Groups).
		Int("records", result.Records).
		Dur("duration_ms", result.Duration).
		Msg("Selection run completed")

	return result, nil
}

// prepare loads everything a run reads more than once. settings carry a
// window already closed for this run.
func (r *Runner) prepare(ctx context.Context, settings domain.RunSettings) (*RunContext, error) {
	companies, err := r.deps.References.GetCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}

	loader := benchmark.NewLoader(r.deps.Benchmarks, r.log)
	series, err := loader.Load(ctx, settings.Window, settings.MarketType)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmarks: %w", err)
	}

	return &RunContext{
		Settings:   settings,
		Benchmarks: series,
		Companies:  companies,
		Index:      domain.NewCompanyIndex(companies),
	}, nil
}
