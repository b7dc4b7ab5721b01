package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/capm/internal/database"
	"github.com/aristath/capm/internal/domain"
	testingpkg "github.com/aristath/capm/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshotRepository(t *testing.T) (*SnapshotRepository, *database.DB) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	repo := NewSnapshotRepository(db.Conn(), time.Second, zerolog.New(nil).Level(zerolog.Disabled))
	repo.sleep = func(context.Context, time.Duration) error { return nil }
	return repo, db
}

func samplePortfolio() *Portfolio {
	return &Portfolio{
		Hold:        time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC),
		HoldingDays: HoldingDays,
		Settings: domain.RunSettings{
			Window: domain.DateWindow{
				Start: time.Date(2023, 3, 8, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			},
			IndustryLevel:     domain.IndustryTopLevel,
			AverageAlgorithm:  domain.AverageGeometric,
			PortfolioAlgo:     domain.ResidentialSharpeOptimal,
			BoardType:         domain.BoardSZMBA,
			RiskType:          domain.RiskDownside,
			ReturnSource:      domain.SourceIndex,
			InterestedSymbols: []string{"000", "600"},
			MarketType:        21,
			TopN:              2,
			FilterBySymbol:    true,
		},
		Records: []Record{
			{GroupKey: "J", StockID: "000001", Determination: 2.5, Index: domain.StockIndex{
				StockID: "000001", ResidualSharpe: 2.5, ExcessRisk: 1.2, AvgPriceWeek: 10.5,
				PE: 6.8, Turnover: 0.42, Liquidity: 0.031, CirculatedMarketValue: 2.1e11, LatestClose: 10.62, Samples: 240,
			}},
			{GroupKey: "C", StockID: "600519", Determination: 1.25, Index: domain.StockIndex{StockID: "600519", ResidualSharpe: 1.25, Volatility: 3}},
		},
	}
}

func TestNewRun(t *testing.T) {
	now := time.Date(2024, 3, 8, 15, 0, 1, 0, time.UTC)
	run := NewRun(samplePortfolio(), "/tmp/output-2024-3-8.txt", now)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, now, run.CreatedAt)
	assert.Equal(t, "/tmp/output-2024-3-8.txt", run.ReportPath)
	require.Len(t, run.Entries, 2)

	seen := map[string]bool{run.ID: true}
	for _, e := range run.Entries {
		assert.False(t, seen[e.ID], "identifiers must be unique")
		seen[e.ID] = true
		assert.Equal(t, domain.ResidentialSharpeOptimal, e.DeterminationAlgorithm)
		assert.Equal(t, domain.AverageGeometric, e.AverageAlgorithm)
		assert.Equal(t, now, e.CreatedAt)
	}
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestSnapshotRepository(t)

	run := NewRun(samplePortfolio(), "report.txt", time.Date(2024, 3, 8, 15, 0, 1, 0, time.UTC))
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, run.Hold.Equal(got.Hold))
	assert.Equal(t, HoldingDays, got.HoldingDays)
	assert.Equal(t, "report.txt", got.ReportPath)

	assert.Equal(t, domain.ResidentialSharpeOptimal, got.Settings.PortfolioAlgo)
	assert.Equal(t, []string{"000", "600"}, got.Settings.InterestedSymbols)
	assert.Equal(t, domain.CompositeMarketType(21), got.Settings.MarketType)
	assert.True(t, run.Settings.Window.Start.Equal(got.Settings.Window.Start))

	require.Len(t, got.Entries, 2)
	assert.Equal(t, "000001", got.Entries[0].StockID)
	assert.Equal(t, "J", got.Entries[0].GroupKey)
	assert.Equal(t, 2.5, got.Entries[0].Determination)
	assert.Equal(t, 1.2, got.Entries[0].Index.ExcessRisk)
	assert.Equal(t, 10.5, got.Entries[0].Index.AvgPriceWeek)
	assert.Equal(t, "000001", got.Entries[0].Index.StockID)
	assert.Equal(t, "600519", got.Entries[1].StockID)
	assert.Equal(t, 3.0, got.Entries[1].Index.Volatility)

	// Every metric of the index survives the round trip
	for i := range run.Entries {
		assert.Equal(t, run.Entries[i].Index, got.Entries[i].Index)
	}
}

func TestSnapshotRepository_GetRunNotFound(t *testing.T) {
	repo, _ := newTestSnapshotRepository(t)

	_, err := repo.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = repo.GetLatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSnapshotRepository_ListRuns(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestSnapshotRepository(t)

	base := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := NewRun(samplePortfolio(), "report.txt", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.SaveRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, 2, runs[0].EntryCount)
	assert.Equal(t, domain.ResidentialSharpeOptimal, runs[0].DeterminationAlgorithm)

	latest, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
	assert.Len(t, latest.Entries, 2)
}

func TestSnapshotRepository_RetriesOnce(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestSnapshotRepository(t)

	_, err := db.Conn().Exec(`DROP TABLE portfolio_entries`)
	require.NoError(t, err)

	sleeps := 0
	repo.sleep = func(_ context.Context, d time.Duration) error {
		sleeps++
		assert.Equal(t, time.Second, d)
		return db.Migrate()
	}

	run := NewRun(samplePortfolio(), "report.txt", time.Now())
	require.NoError(t, repo.SaveRun(ctx, run))
	assert.Equal(t, 1, sleeps)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 2)
}

func TestSnapshotRepository_RetryFails(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestSnapshotRepository(t)

	_, err := db.Conn().Exec(`DROP TABLE portfolio_entries`)
	require.NoError(t, err)

	sleeps := 0
	repo.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	run := NewRun(samplePortfolio(), "report.txt", time.Now())
	err = repo.SaveRun(ctx, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after retry")
	assert.Equal(t, 1, sleeps)

	// The failed transaction left no header behind
	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSnapshotRepository_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo, db := newTestSnapshotRepository(t)
	repo.sleep = sleepContext

	_, err := db.Conn().Exec(`DROP TABLE portfolio_entries`)
	require.NoError(t, err)

	cancel()
	err = repo.SaveRun(ctx, NewRun(samplePortfolio(), "report.txt", time.Now()))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "after retry")
}
