package portfolio

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/aristath/capm/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func sampleRecord() Record {
	return Record{
		GroupKey:         "J",
		IndustryTopLevel: "Finance",
		Industry3rdLevel: "Commercial banks",
		IndustrySector:   "Banks",
		StockID:          "000001",
		ShortName:        "PAB",
		FullName:         "Ping An Bank",
		Determination:    1.234,
		LongTermROE:      0.1,
		Index: domain.StockIndex{
			StockID:               "000001",
			CirculatedMarketValue: 12_500_000,
			Turnover:              0.5,
			Liquidity:             0.0123,
			PE:                    7.891,
			LatestClose:           10.5,
			Volatility:            2,
			NonSystematicRisk:     1.5,
			AvgPriceWeek:          10,
			AvgPriceMonth:         10.25,
			AvgPriceTwoMonths:     10.5,
			AvgPriceThreeMonths:   11,
			AvgPriceSixMonths:     11.126,
			AvgPriceYear:          12,
		},
	}
}

func TestReportFileName(t *testing.T) {
	assert.Equal(t, "output-2024-3-8.txt", ReportFileName(time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "output-2023-12-31.txt", ReportFileName(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestReportLine(t *testing.T) {
	line := reportLine(sampleRecord())

	assert.Equal(t, []string{
		"Finance", "Commercial banks", "Banks", "000001", "PAB", "Ping An Bank",
		"1.23%", "12.50", "0.5%", "1.23", "7.89", "10.00%", "10.5",
		"2.00%", "1.50%", "10.00", "10.25", "10.50", "11.00", "11.13", "12.00",
	}, line)

	unbounded := sampleRecord()
	unbounded.Determination = formulas.SharpeUnbounded
	assert.Equal(t, "inf%", reportLine(unbounded)[6])

	negative := sampleRecord()
	negative.Determination = -0.5
	assert.Equal(t, "-0.50%", reportLine(negative)[6])
}

func TestSortForReport(t *testing.T) {
	records := []Record{
		{StockID: "a", IndustryTopLevel: "Manufacturing", Determination: 1},
		{StockID: "b", IndustryTopLevel: "Finance", Determination: 1},
		{StockID: "c", IndustryTopLevel: "Finance", Determination: 3},
		{StockID: "d", IndustryTopLevel: "Manufacturing", Determination: 2},
		{StockID: "e", IndustryTopLevel: "Finance", Determination: 1},
	}

	sorted := SortForReport(records)

	var ids []string
	for _, r := range sorted {
		ids = append(ids, r.StockID)
	}
	assert.Equal(t, []string{"c", "b", "e", "d", "a"}, ids)
	assert.Equal(t, "a", records[0].StockID, "input must not be reordered")
}

func TestReportWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewReportWriter(dir, EncodingUTF8, zerolog.New(nil).Level(zerolog.Disabled))
	now := time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)

	second := sampleRecord()
	second.StockID = "600000"
	second.FullName = "Shanghai Pudong, Development Bank"
	second.Determination = 5

	path, err := w.Write(&Portfolio{Records: []Record{sampleRecord(), second}}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "output-2024-3-8.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Shanghai Pudong, Development Bank"`)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "600000", rows[0][3])
	assert.Equal(t, "Shanghai Pudong, Development Bank", rows[0][5])
	assert.Len(t, rows[1], 21)

	// A rerun on the same day replaces the file
	_, err = w.Write(&Portfolio{Records: []Record{sampleRecord()}}, now)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestReportWriter_EmptyPortfolio(t *testing.T) {
	w := NewReportWriter(t.TempDir(), "", zerolog.New(nil).Level(zerolog.Disabled))

	path, err := w.Write(&Portfolio{}, time.Now())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestReportWriter_GBK(t *testing.T) {
	w := NewReportWriter(t.TempDir(), EncodingGBK, zerolog.New(nil).Level(zerolog.Disabled))

	r := sampleRecord()
	r.IndustryTopLevel = "金融业"
	r.ShortName = "平安银行"

	path, err := w.Write(&Portfolio{Records: []Record{r}}, time.Now())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "平安银行")

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(decoded), "金融业,"))
	assert.Contains(t, string(decoded), ",平安银行,")
}

func TestReportWriter_Errors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	_, err := NewReportWriter("", EncodingUTF8, log).Write(&Portfolio{}, time.Now())
	assert.Error(t, err)

	_, err = NewReportWriter(t.TempDir(), "latin-1", log).Write(&Portfolio{Records: []Record{sampleRecord()}}, time.Now())
	assert.Error(t, err)
}
