package marketdata

import (
	"context"
	"testing"

	"github.com/aristath/capm/internal/domain"
	testingpkg "github.com/aristath/capm/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLog = zerolog.New(nil).Level(zerolog.Disabled)
	f       = domain.Float
	day     = testingpkg.Day
	window  = domain.DateWindow{Start: day(2024, 1, 1), End: day(2024, 1, 31)}
)

func TestSeriesRepository_GetTradeRecords(t *testing.T) {
	db := testingpkg.NewMemoryDB(t, "market")
	testingpkg.InsertTrade(t, db, domain.TradeRecord{StockID: "600000", Date: day(2024, 1, 2), ReturnRate: f(0.01), ClosePrice: f(10), HighPrice: f(10.5), LowPrice: f(9.8), TradeStatus: 1})
	testingpkg.InsertTrade(t, db, domain.TradeRecord{StockID: "600000", Date: day(2024, 1, 3), ReturnRate: nil, ClosePrice: f(10.1), HighPrice: f(10.2), LowPrice: f(9.9), TradeStatus: 1})
	// Suspended day is not eligible
	testingpkg.InsertTrade(t, db, domain.TradeRecord{StockID: "600000", Date: day(2024, 1, 4), ReturnRate: f(0), TradeStatus: 3})
	// Outside the window
	testingpkg.InsertTrade(t, db, domain.TradeRecord{StockID: "600000", Date: day(2024, 2, 1), ReturnRate: f(0.02), TradeStatus: 1})
	// Other stock
	testingpkg.InsertTrade(t, db, domain.TradeRecord{StockID: "600519", Date: day(2024, 1, 2), ReturnRate: f(0.03), TradeStatus: 1})

	repo := NewSeriesRepository(db, testLog)
	records, err := repo.GetTradeRecords(context.Background(), "600000", window)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, day(2024, 1, 3), records[0].Date, "ordered by date descending")
	assert.Nil(t, records[0].ReturnRate)
	assert.Equal(t, day(2024, 1, 2), records[1].Date)
	assert.InDelta(t, 0.01, *records[1].ReturnRate, 1e-12)
	assert.InDelta(t, 9.8, *records[1].LowPrice, 1e-12)
}

func TestSeriesRepository_GetRiskFactorsAndDerivatives(t *testing.T) {
	db := testingpkg.NewMemoryDB(t, "market")
	testingpkg.InsertRiskFactor(t, db, domain.RiskFactor{StockID: "600000", Date: day(2024, 1, 2), Beta: f(1.1), SectorBeta: nil, Volatility: f(0.2)})
	testingpkg.InsertRiskFactor(t, db, domain.RiskFactor{StockID: "600000", Date: day(2024, 1, 5), Beta: f(0.9), SectorBeta: f(1.3), NonSystematicRisk: f(0.4)})
	testingpkg.InsertDerivative(t, db, domain.Derivative{StockID: "600000", Date: day(2024, 1, 5), PE: f(5.2), Turnover: f(0.3)})

	repo := NewSeriesRepository(db, testLog)

	factors, err := repo.GetRiskFactors(context.Background(), "600000", window)
	require.NoError(t, err)
	require.Len(t, factors, 2)
	assert.Equal(t, day(2024, 1, 5), factors[0].Date)
	assert.InDelta(t, 1.3, *factors[0].SectorBeta, 1e-12)
	assert.Nil(t, factors[0].Volatility)
	assert.Nil(t, factors[1].SectorBeta)

	derivatives, err := repo.GetDerivatives(context.Background(), "600000", window)
	require.NoError(t, err)
	require.Len(t, derivatives, 1)
	assert.InDelta(t, 5.2, *derivatives[0].PE, 1e-12)
	assert.Nil(t, derivatives[0].Liquidity)

	none, err := repo.GetDerivatives(context.Background(), "999999", window)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBenchmarkRepository(t *testing.T) {
	db := testingpkg.NewMemoryDB(t, "market")
	testingpkg.InsertConsolidatedReturn(t, db, 5, day(2024, 1, 2), f(0.01))
	testingpkg.InsertConsolidatedReturn(t, db, 31, day(2024, 1, 2), f(0.02))
	testingpkg.InsertIndexReturn(t, db, "000002", day(2024, 1, 2), f(1.5))
	testingpkg.InsertIndexReturn(t, db, "399107", day(2024, 1, 2), nil)
	testingpkg.InsertSectorReturn(t, db, "S01", day(2024, 1, 3), f(-0.004))
	testingpkg.InsertSectorReturn(t, db, "S01", day(2023, 12, 29), f(0.1))

	repo := NewBenchmarkRepository(db, testLog)
	ctx := context.Background()

	consolidated, err := repo.GetConsolidatedReturns(ctx, window, 5)
	require.NoError(t, err)
	require.Len(t, consolidated, 1)
	assert.InDelta(t, 0.01, *consolidated[0].Return, 1e-12)
	assert.Empty(t, consolidated[0].Key)

	index, err := repo.GetIndexReturns(ctx, window)
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, "000002", index[0].Key)
	assert.InDelta(t, 1.5, *index[0].Return, 1e-12)
	assert.Nil(t, index[1].Return)

	sector, err := repo.GetSectorReturns(ctx, window)
	require.NoError(t, err)
	require.Len(t, sector, 1)
	assert.Equal(t, "S01", sector[0].Key)
	assert.Equal(t, day(2024, 1, 3), sector[0].Date)
}

func TestReferenceRepository(t *testing.T) {
	db := testingpkg.NewMemoryDB(t, "market")
	for _, c := range testingpkg.NewCompanyFixtures() {
		testingpkg.InsertCompany(t, db, c)
	}
	testingpkg.InsertSector(t, db, domain.Sector{SectorTypeID: "S01", SectorTypeName: "Banks"})
	testingpkg.InsertFundamentals(t, db, domain.Fundamentals{StockID: "600000", ReportDate: day(2023, 9, 30), LongTermROE: f(0.08)})
	testingpkg.InsertFundamentals(t, db, domain.Fundamentals{StockID: "600000", ReportDate: day(2023, 12, 31), LongTermROE: f(0.09)})

	repo := NewReferenceRepository(db, testLog)
	ctx := context.Background()

	companies, err := repo.GetCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 4)
	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.StockID
	}
	assert.Equal(t, []string{"000001", "300750", "600000", "600519"}, ids)

	company, err := repo.GetCompany(ctx, "600000")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Commercial banks", company.IndustryNameC)
	assert.Equal(t, domain.MarketSHA, company.MarketType)

	missing, err := repo.GetCompany(ctx, "688981")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sector, err := repo.GetSector(ctx, "s01")
	require.NoError(t, err)
	require.NotNil(t, sector)
	assert.Equal(t, "Banks", sector.SectorTypeName)

	noSector, err := repo.GetSector(ctx, "S99")
	require.NoError(t, err)
	assert.Nil(t, noSector)

	fund, err := repo.GetLatestFundamentals(ctx, "600000")
	require.NoError(t, err)
	require.NotNil(t, fund)
	assert.Equal(t, day(2023, 12, 31), fund.ReportDate)
	assert.InDelta(t, 0.09, *fund.LongTermROE, 1e-12)

	noFund, err := repo.GetLatestFundamentals(ctx, "600519")
	require.NoError(t, err)
	assert.Nil(t, noFund)
}
