/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all long-lived instances.
 */
package di

import (
	"github.com/aristath/capm/internal/database"
	"github.com/aristath/capm/internal/modules/marketdata"
	"github.com/aristath/capm/internal/modules/portfolio"
	"github.com/aristath/capm/internal/pipeline"
	"github.com/aristath/capm/internal/reporting"
	"github.com/aristath/capm/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	MarketDB    *database.DB // Market inputs (trades, risk factors, benchmarks, references)
	PortfolioDB *database.DB // Persisted selection runs

	// Repositories
	SeriesRepo    *marketdata.SeriesRepository
	BenchmarkRepo *marketdata.BenchmarkRepository
	ReferenceRepo *marketdata.ReferenceRepository
	SnapshotRepo  *portfolio.SnapshotRepository

	// Services
	ReportWriter *portfolio.ReportWriter
	Publisher    reporting.Publisher
	Runner       *pipeline.Runner

	// Scheduler
	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.MarketDB != nil {
		dbs["market"] = c.MarketDB
	}
	if c.PortfolioDB != nil {
		dbs["portfolio"] = c.PortfolioDB
	}
	return dbs
}

// Close closes every open database
func (c *Container) Close() {
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
