package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceStation/internal/reconciler"
)

type fakeStation struct {
	updates  []bool
	blocking []bool
	patrols  int
	cleanups int
	commands []string
	failAll  bool
}

func (f *fakeStation) UpdateAll(_ context.Context, onlyOpen, blocking bool) ([]reconciler.Outcome, error) {
	f.updates = append(f.updates, onlyOpen)
	f.blocking = append(f.blocking, blocking)
	if f.failAll && !onlyOpen {
		return nil, errors.New("upstream down")
	}
	return nil, nil
}

func (f *fakeStation) Patrol(_ context.Context, _, _ bool) (string, error) {
	f.patrols++
	return "", nil
}

func (f *fakeStation) Cleanup() (int, error) {
	f.cleanups++
	return 0, nil
}

func (f *fakeStation) HandleCommand(_ context.Context, command string) string {
	f.commands = append(f.commands, command)
	return "ok " + command
}

func TestDailyMarker(t *testing.T) {
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	m := NewDailyMarker(filepath.Join(t.TempDir(), "last_daily_update.txt"))
	m.Now = func() time.Time { return day }

	assert.False(t, m.Done())
	require.NoError(t, m.Mark())
	assert.True(t, m.Done())

	m.Now = func() time.Time { return day.AddDate(0, 0, 1) }
	assert.False(t, m.Done())
}

func TestPollTask(t *testing.T) {
	st := &fakeStation{}
	s := NewScheduler(context.Background(), st, nil)
	s.RunPollNow()
	assert.Equal(t, []bool{true}, st.updates)
	assert.Equal(t, []bool{true}, st.blocking)
	assert.Equal(t, 1, st.patrols)
}

func TestDailyTaskOncePerDay(t *testing.T) {
	st := &fakeStation{}
	m := NewDailyMarker(filepath.Join(t.TempDir(), "marker"))
	s := NewScheduler(context.Background(), st, m)

	s.dailyTask()
	s.dailyTask()
	assert.Equal(t, []bool{false}, st.updates)
	assert.Equal(t, 1, st.cleanups)

	failing := &fakeStation{failAll: true}
	m2 := NewDailyMarker(filepath.Join(t.TempDir(), "marker"))
	s2 := NewScheduler(context.Background(), failing, m2)
	s2.dailyTask()
	assert.False(t, m2.Done(), "failed update is retried")
	assert.Zero(t, failing.cleanups)
}

func TestRegisterAllRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeStation{}, nil)
	assert.Error(t, s.RegisterAll("not a cron", "0 0 1 * * *"))
	s = NewScheduler(context.Background(), &fakeStation{}, nil)
	assert.NoError(t, s.RegisterAll("0 */15 * * * *", "0 30 0 * * *"))
}

func TestHandleCommandWaitsForRunningJob(t *testing.T) {
	st := &fakeStation{}
	s := NewScheduler(context.Background(), st, nil)

	// Hold the job lock as a running poll would.
	s.mu.Lock()
	done := make(chan string, 1)
	go func() { done <- s.HandleCommand(context.Background(), "/update Gold") }()

	select {
	case <-done:
		t.Fatal("command ran while a job held the lock")
	case <-time.After(50 * time.Millisecond):
	}
	s.mu.Unlock()

	select {
	case reply := <-done:
		assert.Equal(t, "ok /update Gold", reply)
	case <-time.After(time.Second):
		t.Fatal("command never ran")
	}
	assert.Equal(t, []string{"/update Gold"}, st.commands)
}
