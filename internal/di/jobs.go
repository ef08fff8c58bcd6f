package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/aristath/folio/internal/modules/snapshots"
	"github.com/aristath/folio/internal/scheduler"
)

// walCheckpointSchedule runs the WAL maintenance job hourly
const walCheckpointSchedule = "@hourly"

// RegisterJobs creates the background jobs and registers them with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		RecordSnapshots: snapshots.NewRecorderJob(container.Sessions, container.SnapshotRepo, container.EventManager, log),
		WALCheckpoint:   scheduler.NewWALCheckpointJob(container.DB, log),
	}
	if container.Quotes != nil {
		jobs.RefreshPrices = pricing.NewRefreshJob(container.Sessions, container.Quotes, log)
	}

	if jobs.RefreshPrices != nil {
		if err := container.Scheduler.AddJob(cfg.PriceSchedule, jobs.RefreshPrices); err != nil {
			return nil, fmt.Errorf("failed to register price refresh job: %w", err)
		}
	}
	if err := container.Scheduler.AddJob(cfg.SnapshotSchedule, jobs.RecordSnapshots); err != nil {
		return nil, fmt.Errorf("failed to register snapshot job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, jobs.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	return jobs, nil
}
