package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/portfolio"
)

const eventModule = "snapshots"

// DefaultRetention is how long snapshots are kept
const DefaultRetention = 2 * 365 * 24 * time.Hour

// SessionSource lists the engines to snapshot
type SessionSource interface {
	Active() []*portfolio.Engine
}

// RecorderJob stores the current summary of every active session
type RecorderJob struct {
	sessions  SessionSource
	repo      *Repository
	events    *events.Manager
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRecorderJob creates a snapshot recorder job
func NewRecorderJob(sessions SessionSource, repo *Repository, eventManager *events.Manager, log zerolog.Logger) *RecorderJob {
	return &RecorderJob{
		sessions:  sessions,
		repo:      repo,
		events:    eventManager,
		retention: DefaultRetention,
		now:       time.Now,
		log:       log.With().Str("job", "record_snapshots").Logger(),
	}
}

// Name returns the job name
func (j *RecorderJob) Name() string {
	return "record_snapshots"
}

// Run executes the recorder job
func (j *RecorderJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	takenAt := j.now()
	engines := j.sessions.Active()
	failed := 0

	for _, engine := range engines {
		summary, err := engine.Coordinator.Summary()
		if err != nil {
			j.log.Warn().Err(err).Str("user_id", engine.UserID).Msg("Failed to compute summary")
			failed++
			continue
		}

		_, pruned, err := j.repo.RecordAndPrune(ctx, engine.UserID, takenAt, summary, takenAt.Add(-j.retention))
		if err != nil {
			j.log.Error().Err(err).Str("user_id", engine.UserID).Msg("Failed to record snapshot")
			failed++
			continue
		}
		if pruned > 0 {
			j.log.Debug().Str("user_id", engine.UserID).Int64("pruned", pruned).Msg("Pruned old snapshots")
		}

		j.events.Emit(engine.UserID, eventModule, &events.SnapshotRecordedData{
			TotalValue: summary.TotalValue,
			Holdings:   summary.HoldingCount,
		})
	}

	j.log.Info().Int("sessions", len(engines)).Int("failed", failed).Msg("Snapshots recorded")

	if failed > 0 {
		return fmt.Errorf("snapshot failed for %d of %d sessions", failed, len(engines))
	}
	return nil
}
