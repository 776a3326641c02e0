package fatigue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/inference"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForBoundaries(t *testing.T) {
	cases := []struct {
		score     float64
		level     string
		color     string
		intervene bool
	}{
		{0, "Good Focus State", "Blue", false},
		{19.9, "Good Focus State", "Blue", false},
		{20, "Mild Fatigue", "Sky Blue ~ Orange", true},
		{39.9, "Mild Fatigue", "Sky Blue ~ Orange", true},
		{40, "Moderate Fatigue", "Orange", true},
		{60, "High Fatigue", "Red", true},
		{100, "High Fatigue", "Red", true},
	}

	for _, tc := range cases {
		level, advice, color, intervene := levelFor(tc.score)
		assert.Equal(t, tc.level, level, "score %.1f", tc.score)
		assert.Equal(t, tc.color, color, "score %.1f", tc.score)
		assert.Equal(t, tc.intervene, intervene, "score %.1f", tc.score)
		assert.NotEmpty(t, advice)
	}
}

func distractedAt(hour int, reason string) models.LogRecord {
	return models.LogRecord{
		Timestamp: time.Date(2024, 1, 10, hour, 0, 0, 0, time.Local),
		Status:    models.StatusDistracted,
		Reason:    reason,
	}
}

func TestTopReasonsStripsParentheticals(t *testing.T) {
	records := []models.LogRecord{
		distractedAt(9, "social media (WeChat)"),
		distractedAt(10, "social media (Weibo)"),
		distractedAt(11, "watching videos"),
		distractedAt(12, "watching videos (Bilibili)"),
		distractedAt(13, "gaming"),
		{Timestamp: time.Date(2024, 1, 10, 14, 0, 0, 0, time.Local), Status: models.StatusFocused},
	}

	reasons := topReasons(records, 2)

	// 括号内容去掉后合并计数，只保留前两名
	assert.Equal(t, []string{"social media", "watching videos"}, reasons)
}

func TestTopReasonsFirstSeenTiebreak(t *testing.T) {
	records := []models.LogRecord{
		distractedAt(9, "chatting"),
		distractedAt(10, "gaming"),
		distractedAt(11, "chatting"),
		distractedAt(12, "gaming"),
	}

	assert.Equal(t, []string{"chatting", "gaming"}, topReasons(records, 2))
}

func TestTopReasonsSkipsEmptyAfterStrip(t *testing.T) {
	records := []models.LogRecord{
		distractedAt(9, "(WeChat)"),
		distractedAt(10, "  "),
	}

	assert.Empty(t, topReasons(records, 2))
}

// newTestCalculator 装配一个指向测试推理服务的计算器
func newTestCalculator(t *testing.T, handler http.Handler) (*Calculator, *logstore.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgMgr, err := config.NewManager(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.NoError(t, cfgMgr.Update(func(cfg *models.AppConfig) {
		cfg.AI.Endpoint = srv.URL
	}))

	store := logstore.NewStore(filepath.Join(dir, "focus_log.txt"))
	ai := inference.NewClient(srv.URL, 5*time.Second)
	return NewCalculator(store, ai, cfgMgr), store
}

func appendRecord(t *testing.T, store *logstore.Store, ts time.Time, status, reason string) {
	t.Helper()
	payload := fmt.Sprintf(`{"status": "%s"}`, status)
	if reason != "" {
		payload = fmt.Sprintf(`{"status": "%s", "reason": "%s"}`, status, reason)
	}
	require.NoError(t, store.Append(ts, payload))
}

func TestCurrentFromLog(t *testing.T) {
	calc, store := newTestCalculator(t, http.NotFoundHandler())

	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	appendRecord(t, store, day, "1. Focused", "")
	appendRecord(t, store, day.Add(5*time.Minute), "2. Distracted", "social media")
	appendRecord(t, store, day.Add(10*time.Minute), "1. Focused", "")
	appendRecord(t, store, day.Add(15*time.Minute), "1. Focused", "")

	score, err := calc.Current("2024-01-10")
	require.NoError(t, err)

	assert.InDelta(t, 25.0, score.Score, 0.01)
	assert.Equal(t, "Mild Fatigue", score.Level)
	assert.True(t, score.Intervene)
	assert.Equal(t, 4, score.TotalCount)
	assert.Equal(t, 1, score.DistractionCount)
	assert.Equal(t, []string{"social media"}, score.DistractionReasons)
}

func TestCurrentNoRecords(t *testing.T) {
	calc, _ := newTestCalculator(t, http.NotFoundHandler())

	score, err := calc.Current("2024-01-10")
	require.NoError(t, err)

	assert.Equal(t, 0.0, score.Score)
	assert.Equal(t, "Good Focus State", score.Level)
	assert.False(t, score.Intervene)
	assert.Zero(t, score.TotalCount)
}

func TestInterventionReportGoodStateSkipsModel(t *testing.T) {
	called := false
	calc, store := newTestCalculator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	for i := 0; i < 5; i++ {
		appendRecord(t, store, day.Add(time.Duration(i)*time.Minute), "1. Focused", "")
	}

	report, err := calc.InterventionReport(context.Background(), "2024-01-10")
	require.NoError(t, err)

	assert.Equal(t, "Current state is good, no intervention needed.", report.Report)
	assert.Equal(t, 0.0, report.Score)
	assert.False(t, called)
}

func TestInterventionReportCallsModel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "  Take a break.  "},
		})
	})
	calc, store := newTestCalculator(t, handler)

	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	appendRecord(t, store, day, "2. Distracted", "social media")
	appendRecord(t, store, day.Add(5*time.Minute), "1. Focused", "")

	report, err := calc.InterventionReport(context.Background(), "2024-01-10")
	require.NoError(t, err)

	assert.Equal(t, "Take a break.", report.Report)
	assert.InDelta(t, 50.0, report.Score, 0.01)
}

func TestHistoricalFillsMissingDays(t *testing.T) {
	calc, store := newTestCalculator(t, http.NotFoundHandler())

	now := time.Date(2024, 1, 10, 18, 0, 0, 0, time.Local)
	appendRecord(t, store, now.Add(-9*time.Hour), "1. Focused", "")
	appendRecord(t, store, now.AddDate(0, 0, -2), "2. Distracted", "gaming")

	snaps, err := calc.Historical(3, now)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, "2024-01-10", snaps[0].Date)
	assert.Equal(t, "Good Focus State", snaps[0].Level)
	assert.Equal(t, 1, snaps[0].TotalCount)

	assert.Equal(t, "2024-01-09", snaps[1].Date)
	assert.Equal(t, "No data", snaps[1].Level)
	assert.Equal(t, "Gray", snaps[1].Color)
	assert.Zero(t, snaps[1].TotalCount)

	assert.Equal(t, "2024-01-08", snaps[2].Date)
	assert.Equal(t, "High Fatigue", snaps[2].Level)
	assert.InDelta(t, 100.0, snaps[2].Score, 0.01)
}

func TestSnapshot(t *testing.T) {
	calc, store := newTestCalculator(t, http.NotFoundHandler())

	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	appendRecord(t, store, day, "2. Distracted", "gaming")
	appendRecord(t, store, day.Add(time.Minute), "2. Distracted", "gaming")
	appendRecord(t, store, day.Add(2*time.Minute), "1. Focused", "")

	snap, err := calc.Snapshot("2024-01-10")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-10", snap.Date)
	assert.Equal(t, "High Fatigue", snap.Level)
	assert.Equal(t, 3, snap.TotalCount)
	assert.Equal(t, 2, snap.DistractionCount)
	assert.False(t, snap.CreatedAt.IsZero())
}