package station

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceStation/internal/alert"
	"PriceStation/internal/catalog"
	"PriceStation/internal/config"
	"PriceStation/internal/model"
	"PriceStation/internal/reconciler"
)

var now = time.Date(2024, 3, 8, 3, 0, 0, 0, time.UTC)

func openMock(t *testing.T) *Station {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "station.db"))
	t.Setenv("RATE_LIMIT_INTERVAL", "")
	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.Mock = true
	cfg.RateLimit.MinInterval = time.Nanosecond
	cfg.Yahoo.MinInterval = time.Nanosecond
	cfg.Alerts.Rules = []alert.Rule{{Symbol: "USDTWD", AbnormalityThreshold: 0.0001}}

	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.Now = func() time.Time { return now }
	s.Reconciler.Now = s.Now
	return s
}

func fetch(t *testing.T, s *Station, symbol string) reconciler.Outcome {
	t.Helper()
	out, err := s.Fetch(context.Background(), reconciler.Request{
		Symbol:   symbol,
		Start:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Blocking: true,
	})
	require.NoError(t, err)
	require.True(t, out.OK(), "%+v", out)
	return out
}

func TestFetchAndDerive(t *testing.T) {
	s := openMock(t)
	fetch(t, s, "gold")
	fetch(t, s, "USDTWD")
	fetch(t, s, "USDVND")

	gold := s.Store.Load("Gold")
	assert.Equal(t, 7, gold.Len())
	assert.Equal(t, model.GoldSchema, gold.Schema)

	out := fetch(t, s, "NTDVND")
	assert.Equal(t, 7, out.Fetched)
	latest, ok := s.Store.Latest("NTDVND")
	require.True(t, ok)
	twd, _ := s.Store.Latest("USDTWD")
	vnd, _ := s.Store.Latest("USDVND")
	assert.InDelta(t, vnd.Fields[model.FieldClose]/twd.Fields[model.FieldClose], latest.Fields[model.FieldClose], 1e-9)

	runs, err := s.Recorder.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestFetchUnknownSymbol(t *testing.T) {
	s := openMock(t)
	_, err := s.Fetch(context.Background(), reconciler.Request{Symbol: "DOGE", Start: now, End: now})
	assert.Error(t, err)
}

func TestPatrol(t *testing.T) {
	s := openMock(t)
	fetch(t, s, "Gold")
	fetch(t, s, "USDTWD")

	// No channel configured: the message is built and state advances.
	msg, err := s.Patrol(context.Background(), true, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "📊 每日行情摘要"))
	assert.Contains(t, msg, "Gold (03/07)")
	assert.Contains(t, msg, "⚠️ 觸發警報")

	msg, err = s.Patrol(context.Background(), false, false)
	require.NoError(t, err)
	assert.Contains(t, msg, "📊 每日行情摘要", "morning slot is due at 03:00 UTC")
	assert.NotContains(t, msg, "觸發警報", "alert already sent for this observation")

	msg, err = s.Patrol(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, "", msg)
}

func TestPatrolDryRunKeepsState(t *testing.T) {
	s := openMock(t)
	fetch(t, s, "USDTWD")

	for i := 0; i < 2; i++ {
		msg, err := s.Patrol(context.Background(), false, true)
		require.NoError(t, err)
		assert.Contains(t, msg, "📊 每日行情摘要")
		assert.Contains(t, msg, "⚠️ 觸發警報")
	}
	assert.Empty(t, s.Alerts.State.Keys())
}

func TestHandleCommand(t *testing.T) {
	s := openMock(t)
	fetch(t, s, "Gold")

	assert.Contains(t, s.HandleCommand(context.Background(), "/price Gold"), "Gold (2024-03-07)")
	assert.Contains(t, s.HandleCommand(context.Background(), "/price BTC"), "無資料")
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "/summary")
}

func TestUpdateAllSkipsClosedMarkets(t *testing.T) {
	s := openMock(t)
	// Saturday: Taiwan stocks and BOT gold are closed.
	s.Now = func() time.Time { return time.Date(2024, 3, 9, 3, 0, 0, 0, time.UTC) }
	s.Reconciler.Now = s.Now

	outcomes, err := s.UpdateAll(context.Background(), true, true)
	require.NoError(t, err)

	var symbols []string
	for _, o := range outcomes {
		symbols = append(symbols, o.Symbol)
	}
	assert.Equal(t, []string{"USDTWD", "USDVND", "BTC", "IntlGold", "NTDVND"}, symbols)
	assert.False(t, s.Store.Load("NTDVND").Empty())
}

func TestUpdateAllWithoutWaiting(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "station.db"))
	t.Setenv("RATE_LIMIT_INTERVAL", "")
	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.Mock = true
	cfg.RateLimit.MinInterval = time.Hour
	cfg.Yahoo.MinInterval = time.Hour

	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.Now = func() time.Time { return now }
	s.Reconciler.Now = s.Now
	for _, source := range []string{catalog.SourceBOT, catalog.SourceYahoo} {
		lim := s.Limiter(source)
		require.NoError(t, lim.Record())
		lim.Sleep = func(context.Context, time.Duration) error {
			t.Error("waited on the rate limit")
			return context.Canceled
		}
	}

	outcomes, err := s.UpdateAll(context.Background(), false, false)
	assert.Error(t, err)
	require.NotEmpty(t, outcomes)
	for _, o := range outcomes {
		if o.Mode == catalog.SourceDerived {
			continue
		}
		assert.True(t, o.Aborted, o.Symbol)
		assert.NotNil(t, o.RateLimit, o.Symbol)
		assert.Zero(t, o.Fetched, o.Symbol)
	}
}

func TestCleanup(t *testing.T) {
	s := openMock(t)
	fetch(t, s, "USDTWD")

	removed, err := s.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, removed, "daily observations are already collapsed")
	assert.Equal(t, 7, s.Store.Load("USDTWD").Len())
}
