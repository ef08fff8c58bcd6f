package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
)

// walFrameThreshold is the WAL size, in frames, above which the job forces a
// truncating checkpoint
const walFrameThreshold = 1000

// WALCheckpointJob monitors WAL growth and truncates the log when it grows large
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return err
	}

	if frames <= walFrameThreshold {
		j.log.Debug().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Msg("WAL checkpoint status OK")
		return nil
	}

	j.log.Warn().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Int("checkpointed", checkpointed).
		Msg("WAL file is large, truncating")
	return j.db.WALCheckpoint("TRUNCATE")
}
