package scheduler

import (
	"testing"

	"github.com/aristath/capm/internal/database"
	testingpkg "github.com/aristath/capm/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(map[string]*database.DB{"market": nil}, log)

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO runs (run_id, created_at, hold_at, holding_days, determination_algorithm, average_algorithm, settings)
		VALUES ('r1', 1, 1, 7, 'ExcessiveSharpeOptimal', 'Arithmetic', x'80')`)
	require.NoError(t, err)

	job := NewCheckWALCheckpointsJob(map[string]*database.DB{"portfolio": db}, zerolog.New(nil).Level(zerolog.Disabled))
	assert.NoError(t, job.Run())
}
