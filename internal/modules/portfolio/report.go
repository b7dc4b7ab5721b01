package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/capm/pkg/formulas"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Report encodings
const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

// ReportWriter writes the portfolio as a comma-delimited text report
type ReportWriter struct {
	dir      string
	encoding string
	log      zerolog.Logger
}

// NewReportWriter creates a report writer targeting dir
func NewReportWriter(dir, encoding string, log zerolog.Logger) *ReportWriter {
	if encoding == "" {
		encoding = EncodingUTF8
	}
	return &ReportWriter{
		dir:      dir,
		encoding: encoding,
		log:      log.With().Str("component", "report_writer").Logger(),
	}
}

// ReportFileName returns the report file name of a run day
func ReportFileName(now time.Time) string {
	return fmt.Sprintf("output-%d-%d-%d.txt", now.Year(), int(now.Month()), now.Day())
}

// Write writes p to <dir>/output-YYYY-M-D.txt, replacing a report of the
// same day, and returns the file path
func (w *ReportWriter) Write(p *Portfolio, now time.Time) (string, error) {
	if w.dir == "" {
		return "", fmt.Errorf("report directory is not configured")
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(w.dir, ReportFileName(now))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report %s: %w", path, err)
	}

	if err := w.encode(file, p.Records); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close report %s: %w", path, err)
	}

	w.log.Info().Str("path", path).Int("records", len(p.Records)).Str("encoding", w.encoding).Msg("Report written")

	return path, nil
}

func (w *ReportWriter) encode(out io.Writer, records []Record) error {
	var closer io.Closer
	switch w.encoding {
	case EncodingUTF8:
	case EncodingGBK:
		tw := transform.NewWriter(out, simplifiedchinese.GBK.NewEncoder())
		out, closer = tw, tw
	default:
		return fmt.Errorf("unsupported report encoding %q", w.encoding)
	}

	cw := csv.NewWriter(out)
	for _, r := range SortForReport(records) {
		if err := cw.Write(reportLine(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if closer != nil {
		return closer.Close()
	}
	return nil
}

// SortForReport orders records by top-level industry ascending, then by
// determination descending. Equal records keep their relative order.
func SortForReport(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IndustryTopLevel != sorted[j].IndustryTopLevel {
			return sorted[i].IndustryTopLevel < sorted[j].IndustryTopLevel
		}
		return sorted[i].Determination > sorted[j].Determination
	})
	return sorted
}

func fixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// score renders a determination in percent; an unbounded Sharpe is "inf%"
func score(v float64) string {
	if v == formulas.SharpeUnbounded {
		return "inf%"
	}
	return fixed(v) + "%"
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func reportLine(r Record) []string {
	idx := r.Index
	return []string{
		r.IndustryTopLevel,
		r.Industry3rdLevel,
		r.IndustrySector,
		r.StockID,
		r.ShortName,
		r.FullName,
		score(r.Determination),
		fixed(idx.CirculatedMarketValue / 1e6),
		plain(idx.Turnover) + "%",
		fixed(idx.Liquidity * 100),
		fixed(idx.PE),
		fixed(r.LongTermROE*100) + "%",
		plain(idx.LatestClose),
		fixed(idx.Volatility) + "%",
		fixed(idx.NonSystematicRisk) + "%",
		fixed(idx.AvgPriceWeek),
		fixed(idx.AvgPriceMonth),
		fixed(idx.AvgPriceTwoMonths),
		fixed(idx.AvgPriceThreeMonths),
		fixed(idx.AvgPriceSixMonths),
		fixed(idx.AvgPriceYear),
	}
}
