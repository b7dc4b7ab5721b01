package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/capm/internal/database"
	"github.com/aristath/capm/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultPersistRetryDelay is the wait before the single persistence retry
const DefaultPersistRetryDelay = 20 * time.Second

// ErrRunNotFound is returned when a run id does not exist
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted snapshot of one selection run
type Run struct {
	CreatedAt   time.Time          `json:"created_at"`
	Hold        time.Time          `json:"hold"`
	Settings    domain.RunSettings `json:"settings"`
	ID          string             `json:"id"`
	ReportPath  string             `json:"report_path"`
	Entries     []SnapshotEntry    `json:"entries"`
	HoldingDays int                `json:"holding_days"`
}

// SnapshotEntry is the persisted metrics of one selected stock
type SnapshotEntry struct {
	CreatedAt              time.Time               `json:"created_at"`
	ID                     string                  `json:"id"`
	StockID                string                  `json:"stock_id"`
	GroupKey               string                  `json:"group_key"`
	DeterminationAlgorithm domain.PortfolioAlgo    `json:"determination_algorithm"`
	AverageAlgorithm       domain.AverageAlgorithm `json:"average_algorithm"`
	Index                  domain.StockIndex       `json:"index"`
	Determination          float64                 `json:"determination"`
}

// RunSummary is a run header without its entries
type RunSummary struct {
	CreatedAt              time.Time               `json:"created_at"`
	ID                     string                  `json:"id"`
	ReportPath             string                  `json:"report_path"`
	DeterminationAlgorithm domain.PortfolioAlgo    `json:"determination_algorithm"`
	AverageAlgorithm       domain.AverageAlgorithm `json:"average_algorithm"`
	HoldingDays            int                     `json:"holding_days"`
	EntryCount             int                     `json:"entry_count"`
}

// NewRun builds the snapshot of p with fresh unique identifiers
func NewRun(p *Portfolio, reportPath string, now time.Time) *Run {
	run := &Run{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		Hold:        p.Hold,
		HoldingDays: p.HoldingDays,
		Settings:    p.Settings,
		ReportPath:  reportPath,
	}
	for _, r := range p.Records {
		run.Entries = append(run.Entries, SnapshotEntry{
			ID:                     uuid.New().String(),
			StockID:                r.StockID,
			GroupKey:               r.GroupKey,
			CreatedAt:              now,
			Index:                  r.Index,
			Determination:          r.Determination,
			DeterminationAlgorithm: p.Settings.PortfolioAlgo,
			AverageAlgorithm:       p.Settings.AverageAlgorithm,
		})
	}
	return run
}

// SnapshotRepository persists selection runs in the portfolio database
type SnapshotRepository struct {
	db         *sql.DB
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, retryDelay time.Duration, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:         db,
		retryDelay: retryDelay,
		sleep:      sleepContext,
		log:        log.With().Str("component", "snapshot_repository").Logger(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SaveRun writes the run and its entries in one transaction. A failed write
// is logged with its cause chain and retried once after the retry delay.
func (r *SnapshotRepository) SaveRun(ctx context.Context, run *Run) error {
	err := r.insert(ctx, run)
	if err == nil {
		return nil
	}

	r.logFailure(err, run)

	if sleepErr := r.sleep(ctx, r.retryDelay); sleepErr != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	if err := r.insert(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s after retry: %w", run.ID, err)
	}

	r.log.Info().Str("run_id", run.ID).Msg("Run saved on retry")
	return nil
}

func (r *SnapshotRepository) logFailure(err error, run *Run) {
	r.log.Error().Err(err).Str("run_id", run.ID).Dur("retry_in", r.retryDelay).Msg("Failed to write run snapshot")
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		r.log.Error().Str("run_id", run.ID).Str("cause", cause.Error()).Msg("Inner error")
	}
}

func (r *SnapshotRepository) insert(ctx context.Context, run *Run) error {
	settings, err := msgpack.Marshal(run.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode run settings: %w", err)
	}

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, created_at, hold_at, holding_days, determination_algorithm,
				average_algorithm, report_path, entry_count, settings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.CreatedAt.Unix(), run.Hold.Unix(), run.HoldingDays,
			string(run.Settings.PortfolioAlgo), string(run.Settings.AverageAlgorithm),
			run.ReportPath, len(run.Entries), settings,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO portfolio_entries (entry_id, run_id, position, stock_id, group_key, created_at,
				excess_return_arithmetic, excess_return_geometric, residual_return_arithmetic,
				residual_return_geometric, excess_risk, residual_risk, excess_sharpe, residual_sharpe,
				volatility, non_systematic_risk, avg_price_week, avg_price_month, avg_price_two_months,
				avg_price_three_months, avg_price_six_months, avg_price_year,
				pe, turnover, liquidity, circulated_market_value, latest_close, samples,
				determination, determination_algorithm, average_algorithm)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare entry insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range run.Entries {
			idx := e.Index
			_, err := stmt.ExecContext(ctx,
				e.ID, run.ID, i, e.StockID, e.GroupKey, e.CreatedAt.Unix(),
				idx.ExcessReturnArithmetic, idx.ExcessReturnGeometric, idx.ResidualReturnArithmetic,
				idx.ResidualReturnGeometric, idx.ExcessRisk, idx.ResidualRisk, idx.ExcessSharpe, idx.ResidualSharpe,
				idx.Volatility, idx.NonSystematicRisk, idx.AvgPriceWeek, idx.AvgPriceMonth, idx.AvgPriceTwoMonths,
				idx.AvgPriceThreeMonths, idx.AvgPriceSixMonths, idx.AvgPriceYear,
				idx.PE, idx.Turnover, idx.Liquidity, idx.CirculatedMarketValue, idx.LatestClose, idx.Samples,
				e.Determination, string(e.DeterminationAlgorithm), string(e.AverageAlgorithm),
			)
			if err != nil {
				return fmt.Errorf("failed to insert entry %s: %w", e.StockID, err)
			}
		}

		return nil
	})
}

// ListRuns returns the most recent run headers, newest first
func (r *SnapshotRepository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, created_at, holding_days, determination_algorithm, average_algorithm, report_path, entry_count
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var createdAt int64
		var algo, avg string

		if err := rows.Scan(&s.ID, &createdAt, &s.HoldingDays, &algo, &avg, &s.ReportPath, &s.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		s.DeterminationAlgorithm = domain.PortfolioAlgo(algo)
		s.AverageAlgorithm = domain.AverageAlgorithm(avg)

		runs = append(runs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetLatestRun returns the newest run with its entries
func (r *SnapshotRepository) GetLatestRun(ctx context.Context) (*Run, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return r.GetRun(ctx, id)
}

// GetRun returns a run with its entries in selection order
func (r *SnapshotRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	run := &Run{ID: runID}
	var createdAt, holdAt int64
	var settings []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT created_at, hold_at, holding_days, report_path, settings
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&createdAt, &holdAt, &run.HoldingDays, &run.ReportPath, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Hold = time.Unix(holdAt, 0).UTC()

	if err := msgpack.Unmarshal(settings, &run.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings of run %s: %w", runID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id, stock_id, group_key, created_at,
			excess_return_arithmetic, excess_return_geometric, residual_return_arithmetic,
			residual_return_geometric, excess_risk, residual_risk, excess_sharpe, residual_sharpe,
			volatility, non_systematic_risk, avg_price_week, avg_price_month, avg_price_two_months,
			avg_price_three_months, avg_price_six_months, avg_price_year,
			pe, turnover, liquidity, circulated_market_value, latest_close, samples,
			determination, determination_algorithm, average_algorithm
		FROM portfolio_entries
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of run %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e SnapshotEntry
		var entryCreatedAt int64
		var algo, avg string
		idx := &e.Index

		err := rows.Scan(&e.ID, &e.StockID, &e.GroupKey, &entryCreatedAt,
			&idx.ExcessReturnArithmetic, &idx.ExcessReturnGeometric, &idx.ResidualReturnArithmetic,
			&idx.ResidualReturnGeometric, &idx.ExcessRisk, &idx.ResidualRisk, &idx.ExcessSharpe, &idx.ResidualSharpe,
			&idx.Volatility, &idx.NonSystematicRisk, &idx.AvgPriceWeek, &idx.AvgPriceMonth, &idx.AvgPriceTwoMonths,
			&idx.AvgPriceThreeMonths, &idx.AvgPriceSixMonths, &idx.AvgPriceYear,
			&idx.PE, &idx.Turnover, &idx.Liquidity, &idx.CirculatedMarketValue, &idx.LatestClose, &idx.Samples,
			&e.Determination, &algo, &avg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		idx.StockID = e.StockID
		e.CreatedAt = time.Unix(entryCreatedAt, 0).UTC()
		e.DeterminationAlgorithm = domain.PortfolioAlgo(algo)
		e.AverageAlgorithm = domain.AverageAlgorithm(avg)

		run.Entries = append(run.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return run, nil
}
