package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceStation/internal/alert"
)

func init() { backoffUnit = time.Millisecond }

func TestLineSend(t *testing.T) {
	var got linePush
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	l := NewLineNotifier("token-1", "U123", "")
	l.BaseURL = srv.URL
	require.NoError(t, l.Send(context.Background(), "哈囉"))
	assert.Equal(t, "U123", got.To)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "哈囉", got.Messages[0].Text)
}

func TestLineClipsLongText(t *testing.T) {
	long := strings.Repeat("金", lineTextLimit+10)
	assert.Equal(t, lineTextLimit, len([]rune(clip(long, lineTextLimit))))
	assert.Equal(t, "abc", clip("abc", lineTextLimit))
}

func TestTelegramSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botT0K/sendMessage", r.URL.Path)
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("T0K", "42", "")
	tg.BaseURL = srv.URL
	err := tg.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

type flaky struct {
	failures int32
	calls    int32
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Send(_ context.Context, _ string) error {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return errors.New("temporary")
	}
	return nil
}

func TestSendWithRetry(t *testing.T) {
	f := &flaky{failures: 2}
	require.NoError(t, SendWithRetry(context.Background(), f, "x", 3))
	assert.Equal(t, int32(3), f.calls)

	f = &flaky{failures: 10}
	err := SendWithRetry(context.Background(), f, "x", 1)
	require.Error(t, err)
	assert.Equal(t, int32(2), f.calls)
}

func TestBroadcastContinuesPastFailure(t *testing.T) {
	bad := &flaky{failures: 10}
	good := &flaky{}
	err := Broadcast(context.Background(), []Notifier{bad, good}, "x", 0)
	assert.Error(t, err)
	assert.Equal(t, int32(1), good.calls)
}

func TestFormatSummary(t *testing.T) {
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	msg := FormatSummary([]alert.Quote{
		{Symbol: "Gold", Price: 2085, Prev: 2065, HasPrev: true, Time: day, Gold: true},
		{Symbol: "USDTWD", Price: 31.6, Prev: 31.6, HasPrev: true, Time: day},
		{Symbol: "BTC", Price: 65000, Time: day},
	})
	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "📊 每日行情摘要", lines[0])
	assert.Equal(t, "Gold (03/08): 2,085 🔺 0.97%", lines[1])
	assert.Equal(t, "USDTWD (03/08): 31.60 ➖ 0.00%", lines[2])
	assert.Equal(t, "BTC (03/08): 65,000.00", lines[3])
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "", FormatMessage("", nil))

	alerts := []alert.Alert{
		{Kind: alert.TypeFluctuation, ChangePct: -2.5, Quote: alert.Quote{Name: "BTC", Price: 63000}},
		{Kind: alert.TypePriceTarget, Rule: alert.Rule{TargetPrice: 2500, Direction: "below"},
			Quote: alert.Quote{Name: "Gold", Price: 2490, Gold: true}},
	}
	msg := FormatMessage("summary", alerts)
	assert.Equal(t, "summary\n\n⚠️ 觸發警報:\n"+
		"🚨 異常變動 BTC: 63,000.00 📉 2.50% (相較於前次報價)\n"+
		"🎯 Gold 到價通知: 2,490 (低於 2,500)", msg)
}

func TestPollingAnswersCommands(t *testing.T) {
	var sent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if r.URL.Query().Get("offset") == "0" {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /price Gold "}}]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			sent.Store(p["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("T", "1", "")
	tg.BaseURL = srv.URL
	next, err := tg.poll(context.Background(), tg.Client, 0, func(_ context.Context, cmd string) string {
		return "got " + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, 8, next)
	assert.Equal(t, "got /price Gold", sent.Load())
}
