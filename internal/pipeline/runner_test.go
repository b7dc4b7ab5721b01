package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/internal/modules/benchmark"
	"github.com/aristath/capm/internal/modules/marketdata"
	"github.com/aristath/capm/internal/modules/portfolio"
	testingpkg "github.com/aristath/capm/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, reportPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, reportPath)
	return "s3://bucket/" + filepath.Base(reportPath), nil
}

type failingStore struct{}

func (failingStore) SaveRun(context.Context, *portfolio.Run) error {
	return errors.New("disk I/O error")
}

func testSettings() domain.RunSettings {
	return domain.RunSettings{
		Window: domain.DateWindow{
			Start: testingpkg.Day(2024, time.January, 1),
			End:   testingpkg.Day(2024, time.January, 31),
		},
		IndustryLevel:    domain.IndustryTopLevel,
		AverageAlgorithm: domain.AverageArithmetic,
		PortfolioAlgo:    domain.ExcessiveSharpeOptimal,
		BoardType:        domain.BoardSZMBA,
		RiskType:         domain.RiskBothside,
		ReturnSource:     domain.SourceConsolidated,
		MarketType:       5,
		TopN:             2,
	}
}

func seedMarket(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, c := range testingpkg.NewCompanyFixtures() {
		testingpkg.InsertCompany(t, db, c)
	}
	testingpkg.InsertSector(t, db, domain.Sector{SectorTypeID: "S01", SectorTypeName: "Banks"})

	returns := map[string][]float64{
		"000001": {0.02, 0.01, 0.03},
		"600000": {-0.01, -0.02, -0.03},
	}
	for stockID, rs := range returns {
		for i, r := range rs {
			day := testingpkg.Day(2024, time.January, 10+i)
			testingpkg.InsertTrade(t, db, domain.TradeRecord{
				StockID: stockID, Date: day, ReturnRate: domain.Float(r),
				ClosePrice: domain.Float(10 + float64(i)), HighPrice: domain.Float(11), LowPrice: domain.Float(9),
				TradeStatus: domain.TradeStatusNormal,
			})
			testingpkg.InsertRiskFactor(t, db, domain.RiskFactor{
				StockID: stockID, Date: day, Beta: domain.Float(1), Volatility: domain.Float(2),
			})
		}
	}
	for i := 0; i < 3; i++ {
		testingpkg.InsertConsolidatedReturn(t, db, 5, testingpkg.Day(2024, time.January, 10+i), domain.Float(0.005))
	}
}

type fixture struct {
	runner    *Runner
	publisher *fakePublisher
	snapshots *portfolio.SnapshotRepository
	reportDir string
}

func newFixture(t *testing.T, settings domain.RunSettings) *fixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	marketDB, cleanupMarket := testingpkg.NewTestDB(t, "market")
	t.Cleanup(cleanupMarket)
	portfolioDB, cleanupPortfolio := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanupPortfolio)

	seedMarket(t, marketDB.Conn())

	reportDir := filepath.Join(t.TempDir(), "reports")
	snapshots := portfolio.NewSnapshotRepository(portfolioDB.Conn(), 0, log)
	publisher := &fakePublisher{}

	runner := NewRunner(Dependencies{
		References: marketdata.NewReferenceRepository(marketDB.Conn(), log),
		Series:     marketdata.NewSeriesRepository(marketDB.Conn(), log),
		Benchmarks: marketdata.NewBenchmarkRepository(marketDB.Conn(), log),
		Reports:    portfolio.NewReportWriter(reportDir, portfolio.EncodingUTF8, log),
		Snapshots:  snapshots,
		Publisher:  publisher,
	}, settings, 2, log)
	runner.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{runner: runner, publisher: publisher, snapshots: snapshots, reportDir: reportDir}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testSettings())

	result, err := f.runner.Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, filepath.Join(f.reportDir, "output-2024-2-1.txt"), result.ReportPath)
	assert.Equal(t, "s3://bucket/output-2024-2-1.txt", result.Location)
	// 600519 keeps its group although nothing in it scored
	assert.Equal(t, 2, result.Groups)
	assert.Equal(t, 1, result.Records)
	assert.Equal(t, []string{result.ReportPath}, f.publisher.published)

	data, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Finance,Commercial banks,Banks,000001,PAB,")

	run, err := f.snapshots.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, run.Entries, 1)
	assert.Equal(t, "000001", run.Entries[0].StockID)
	assert.Equal(t, "J", run.Entries[0].GroupKey)
	assert.Greater(t, run.Entries[0].Determination, 0.0)
	assert.Equal(t, 3, run.Entries[0].Index.Samples)
}

func TestRunner_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, testSettings())
	f.publisher.err = errors.New("no credentials")

	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Location)
}

func TestRunner_PersistFailure(t *testing.T) {
	f := newFixture(t, testSettings())
	f.runner.deps.Snapshots = failingStore{}

	_, err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Empty(t, f.publisher.published)
}

func TestRunner_InvalidDateRange(t *testing.T) {
	settings := testSettings()
	settings.Window.Start, settings.Window.End = settings.Window.End, settings.Window.Start
	f := newFixture(t, settings)

	_, err := f.runner.Run(context.Background())
	assert.ErrorIs(t, err, benchmark.ErrInvalidDateRange)
}

func TestRunner_RejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, testSettings())

	f.runner.mu.Lock()
	_, err := f.runner.Run(context.Background())
	f.runner.mu.Unlock()
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = f.runner.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunner_CancelledContext(t *testing.T) {
	f := newFixture(t, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner.Run(ctx)
	assert.Error(t, err)
}

func TestRunner_OpenEndedWindowFollowsRunDay(t *testing.T) {
	ctx := context.Background()
	settings := testSettings()
	settings.Window.End = time.Time{}
	f := newFixture(t, settings)

	f.runner.now = func() time.Time { return time.Date(2024, 1, 11, 18, 30, 0, 0, time.UTC) }
	first, err := f.runner.Run(ctx)
	require.NoError(t, err)

	f.runner.now = func() time.Time { return time.Date(2024, 1, 13, 18, 30, 0, 0, time.UTC) }
	second, err := f.runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.reportDir, "output-2024-1-11.txt"), first.ReportPath)
	assert.Equal(t, filepath.Join(f.reportDir, "output-2024-1-13.txt"), second.ReportPath)

	firstRun, err := f.snapshots.GetRun(ctx, first.RunID)
	require.NoError(t, err)
	secondRun, err := f.snapshots.GetRun(ctx, second.RunID)
	require.NoError(t, err)

	assert.True(t, testingpkg.Day(2024, time.January, 11).Equal(firstRun.Settings.Window.End))
	assert.True(t, testingpkg.Day(2024, time.January, 13).Equal(secondRun.Settings.Window.End))

	// The Jan 12 row only counts once the window reaches it
	require.Len(t, firstRun.Entries, 1)
	require.Len(t, secondRun.Entries, 1)
	assert.Equal(t, 2, firstRun.Entries[0].Index.Samples)
	assert.Equal(t, 3, secondRun.Entries[0].Index.Samples)

	assert.True(t, f.runner.settings.Window.IsOpenEnded())
}
