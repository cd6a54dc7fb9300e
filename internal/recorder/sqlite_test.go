package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorderRuns(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "journal.db"))
	require.NoError(t, err)
	defer rec.Close()

	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	first := &RunRecord{
		RunID: uuid.NewString(), Symbol: "Gold", Mode: "gaps",
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Ranges: 2, Fetched: 2, Succeeded: 1, Failed: 1, At: base,
	}
	second := &RunRecord{
		RunID: uuid.NewString(), Symbol: "USDTWD", Mode: "force", Aborted: true,
		Note: "rate limited", At: base.Add(time.Minute),
	}
	require.NoError(t, rec.RecordRun(first))
	require.NoError(t, rec.RecordRun(second))

	runs, err := rec.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.True(t, runs[0].Aborted)
	assert.Equal(t, "rate limited", runs[0].Note)
	assert.Equal(t, first.Start, runs[1].Start)
	assert.Equal(t, 1, runs[1].Failed)

	runs, err = rec.RecentRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRecorderAlerts(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.RecordAlert(&AlertRecord{
		Symbol: "BTC", AlertType: "fluctuation", Price: 65000, Change: -3.2,
		Message: "BTC down", Delivered: true,
	}))

	var n int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE delivered = 1`).Scan(&n))
	assert.Equal(t, 1, n)
}
