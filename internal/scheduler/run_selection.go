package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/capm/internal/pipeline"
	"github.com/rs/zerolog"
)

// SelectionRunner executes a selection run
type SelectionRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// RunSelectionJob runs the selection pipeline on schedule
type RunSelectionJob struct {
	runner  SelectionRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewRunSelectionJob creates a new RunSelectionJob. A zero timeout lets the
// run take as long as it needs.
func NewRunSelectionJob(runner SelectionRunner, timeout time.Duration, log zerolog.Logger) *RunSelectionJob {
	return &RunSelectionJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "run_selection").Logger(),
	}
}

// Name returns the job name
func (j *RunSelectionJob) Name() string {
	return "run_selection"
}

// Run executes one selection run. A run already in progress is not an error.
func (j *RunSelectionJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result, err := j.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		j.log.Warn().Msg("Previous run still in progress, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", result.RunID).
		Int("records", result.Records).
		Msg("Scheduled selection run finished")

	return nil
}
