package di

import (
	"context"
	"fmt"

	"github.com/aristath/capm/internal/config"
	"github.com/aristath/capm/internal/modules/marketdata"
	"github.com/aristath/capm/internal/modules/portfolio"
	"github.com/aristath/capm/internal/pipeline"
	"github.com/aristath/capm/internal/reporting"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories and services on top of the databases
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.SeriesRepo = marketdata.NewSeriesRepository(container.MarketDB.Conn(), log)
	container.BenchmarkRepo = marketdata.NewBenchmarkRepository(container.MarketDB.Conn(), log)
	container.ReferenceRepo = marketdata.NewReferenceRepository(container.MarketDB.Conn(), log)
	container.SnapshotRepo = portfolio.NewSnapshotRepository(container.PortfolioDB.Conn(), cfg.PersistRetryDelay, log)

	container.ReportWriter = portfolio.NewReportWriter(cfg.OutputFileFolderPath, cfg.ReportEncoding, log)

	if cfg.S3Bucket != "" {
		publisher, err := reporting.NewS3Publisher(ctx, reporting.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.S3Region,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create s3 publisher: %w", err)
		}
		container.Publisher = publisher
	} else {
		container.Publisher = reporting.NoopPublisher{}
	}

	container.Runner = pipeline.NewRunner(pipeline.Dependencies{
		References: container.ReferenceRepo,
		Series:     container.SeriesRepo,
		Benchmarks: container.BenchmarkRepo,
		Reports:    container.ReportWriter,
		Snapshots:  container.SnapshotRepo,
		Publisher:  container.Publisher,
	}, cfg.Settings, cfg.Concurrency, log)

	log.Info().
		Bool("publish", cfg.S3Bucket != "").
		Int("concurrency", cfg.Concurrency).
		Msg("Services initialized")

	return nil
}
