package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/folio/internal/testing"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("*/15 * * * *", &countingJob{}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))

	assert.Equal(t, 2, s.Entries())
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@daily", &countingJob{}))

	s.Start()
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, job.runs)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := New(zerolog.Nop())

	require.True(t, s.begin("counting"))
	assert.False(t, s.begin("counting"))
	s.end("counting")
	assert.True(t, s.begin("counting"))
}

func TestWALCheckpointJob(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "folio")
	defer cleanup()

	job := NewWALCheckpointJob(db, zerolog.Nop())

	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}
