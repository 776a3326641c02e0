package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/fatigue"
	"FocusTrackerAI/internal/inference"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/internal/monitor"
	"FocusTrackerAI/internal/report"
	"FocusTrackerAI/internal/storage"
	"FocusTrackerAI/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer 组装一个完整的服务器，推理请求指向给定的测试服务
func newTestServer(t *testing.T, aiHandler http.Handler) (*Server, *logstore.Store, *storage.Manager, *report.Repository) {
	t.Helper()

	aiSrv := httptest.NewServer(aiHandler)
	t.Cleanup(aiSrv.Close)

	dir := t.TempDir()
	cfgMgr, err := config.NewManager(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.NoError(t, cfgMgr.Update(func(cfg *models.AppConfig) {
		cfg.AI.Endpoint = aiSrv.URL
	}))

	storageMgr, err := storage.NewManager(filepath.Join(dir, "db"))
	require.NoError(t, err)
	t.Cleanup(func() { storageMgr.Close() })

	store := logstore.NewStore(filepath.Join(dir, "focus_log.txt"))
	repo, err := report.NewRepository(filepath.Join(dir, "reports"))
	require.NoError(t, err)

	ai := inference.NewClient(aiSrv.URL, 5*time.Second)
	reports := report.NewService(store, repo, ai, cfgMgr)
	fatigueCalc := fatigue.NewCalculator(store, ai, cfgMgr)
	monitorEng := monitor.NewEngine(cfgMgr, store, ai, storageMgr)

	srv := NewServer(cfgMgr, storageMgr, store, monitorEng, reports, fatigueCalc, "test")
	return srv, store, storageMgr, repo
}

func doRequest(t *testing.T, srv *Server, method, path string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestInterventionsEndpointIncludesTodayCount(t *testing.T) {
	srv, _, storageMgr, _ := newTestServer(t, http.NotFoundHandler())

	require.NoError(t, storageMgr.SaveIntervention(&models.Intervention{
		Timestamp: time.Now(),
		Reason:    "social media",
		Delivered: true,
	}))
	require.NoError(t, storageMgr.SaveIntervention(&models.Intervention{
		Timestamp: time.Now().AddDate(0, 0, -1),
		Reason:    "yesterday",
	}))

	code, body := doRequest(t, srv, http.MethodGet, "/api/monitor/interventions")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["today_count"])
	items, ok := body["interventions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestAvailableDatesEndpointIncludesReportDates(t *testing.T) {
	srv, store, _, repo := newTestServer(t, http.NotFoundHandler())

	ts, err := time.ParseInLocation(logstore.TimestampLayout, "2024-01-10 09:00:00", time.Local)
	require.NoError(t, err)
	require.NoError(t, store.Append(ts, `{"status": "1. Focused"}`))

	_, err = repo.WriteDaily("2024-01-09", "earlier report")
	require.NoError(t, err)

	code, body := doRequest(t, srv, http.MethodGet, "/api/analysis/available_dates")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"2024-01-10"}, body["available_dates"])
	assert.Equal(t, []interface{}{"2024-01-09"}, body["report_dates"])
}

func TestWeeklyReportEndpointGeneratesOnDemand(t *testing.T) {
	var calls int32
	aiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprintln(w, `{"response": "Weekly body.", "done": false}`)
		fmt.Fprintln(w, `{"response": "", "done": true}`)
	})

	srv, store, _, repo := newTestServer(t, aiHandler)

	wr := report.WeekFor(time.Now(), 0)
	ts, err := time.ParseInLocation(logstore.TimestampLayout, wr.StartDate()+" 09:00:00", time.Local)
	require.NoError(t, err)
	require.NoError(t, store.Append(ts, `{"status": "1. Focused"}`))
	require.NoError(t, store.Append(ts.Add(5*time.Minute), `{"status": "2. Distracted", "reason": "social media"}`))

	code, body := doRequest(t, srv, http.MethodGet, "/api/analysis/weekly_report?weeks_ago=0")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wr.StartDate(), body["start_date"])
	assert.Equal(t, wr.EndDate(), body["end_date"])
	content, _ := body["report"].(string)
	assert.Contains(t, content, "Weekly body.")
	assert.True(t, repo.WeeklyExists(wr.StartDate(), wr.EndDate()))

	// 第二次请求读缓存文件，不再调用推理服务
	code, body = doRequest(t, srv, http.MethodGet, "/api/analysis/weekly_report?weeks_ago=0")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, content, body["report"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWeeklyReportEndpointRejectsBadWeeksAgo(t *testing.T) {
	srv, _, _, _ := newTestServer(t, http.NotFoundHandler())

	code, _ := doRequest(t, srv, http.MethodGet, "/api/analysis/weekly_report?weeks_ago=-1")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, srv, http.MethodGet, "/api/analysis/weekly_report?weeks_ago=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}
