package di

import (
	"fmt"

	"github.com/aristath/capm/internal/config"
	"github.com/aristath/capm/internal/scheduler"
	"github.com/rs/zerolog"
)

// Maintenance schedules
const (
	walCheckSchedule       = "0 0 * * * *" // Hourly
	integrityCheckSchedule = "0 0 3 * * *" // 03:00 daily
)

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	RunSelection        *scheduler.RunSelectionJob
	CheckWALCheckpoints *scheduler.CheckWALCheckpointsJob
	CheckCoreDatabases  *scheduler.CheckCoreDatabasesJob
}

// RegisterJobs creates the scheduler and registers background jobs. The
// selection job is only scheduled when a schedule is configured.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)

	jobs := &JobInstances{
		RunSelection:        scheduler.NewRunSelectionJob(container.Runner, 0, log),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(container.Databases(), log),
		CheckCoreDatabases:  scheduler.NewCheckCoreDatabasesJob(container.Databases(), log),
	}

	if cfg.Schedule != "" {
		if err := sched.AddJob(cfg.Schedule, jobs.RunSelection); err != nil {
			return nil, fmt.Errorf("failed to register run_selection job: %w", err)
		}
	}
	if err := sched.AddJob(walCheckSchedule, jobs.CheckWALCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to register check_wal_checkpoints job: %w", err)
	}
	if err := sched.AddJob(integrityCheckSchedule, jobs.CheckCoreDatabases); err != nil {
		return nil, fmt.Errorf("failed to register check_core_databases job: %w", err)
	}

	container.Scheduler = sched

	return jobs, nil
}
