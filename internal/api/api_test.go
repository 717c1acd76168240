package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/afasulo/htdashboard/internal/analytics"
	"github.com/afasulo/htdashboard/internal/cache"
	"github.com/afasulo/htdashboard/internal/config"
	"github.com/afasulo/htdashboard/internal/metrics"
	"github.com/afasulo/htdashboard/internal/query"
	"github.com/afasulo/htdashboard/internal/store"
	"github.com/afasulo/htdashboard/internal/sync"
	"github.com/afasulo/htdashboard/internal/testinfra"
)

type fakeSync struct {
	mu      stdsync.Mutex
	status  string
	err     error
	since   []*time.Time
	last    *sync.Report
	lastErr error
}

func (f *fakeSync) Trigger(since *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.since = append(f.since, since)
	return nil
}

func (f *fakeSync) GetStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSync) LastRun() (*sync.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.lastErr
}

func (f *fakeSync) set(fn func(*fakeSync)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSync) triggered() []*time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*time.Time(nil), f.since...)
}

type fixture struct {
	server *httptest.Server
	sync   *fakeSync
	redis  *miniredis.Miniredis
	reg    *prometheus.Registry
	store  *store.DuckDBStore
}

var sessionDay = time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	t.Helper()

	db := testinfra.OpenStore(t)
	testinfra.AddPlayer(t, db, testinfra.Player{ID: 1, FirstName: "Jane", LastName: "Doe", School: "North High", GraduationYear: testinfra.IntPtr(2027)})
	testinfra.AddPlayer(t, db, testinfra.Player{ID: 2, FirstName: "Alex", LastName: "Ames", School: "South High", GraduationYear: testinfra.IntPtr(2028)})
	testinfra.AddVisit(t, db, testinfra.Visit{ID: 10, UserID: 1, TimeStamp: sessionDay, SkillLevel: 3, AB: 60, HitCount: 20, MaxExitMph: 91.2, AvgExitMph: 80, MaxDistFt: 320, AvgDistFt: 200, AVG: 0.333})
	testinfra.AddVisit(t, db, testinfra.Visit{ID: 11, UserID: 2, TimeStamp: sessionDay.AddDate(0, 0, 1), SkillLevel: 2, AB: 12, HitCount: 3, MaxExitMph: 70})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewManager(metrics.WithRegistry(reg))
	ranking := config.LeaderboardConfig{MinAtBats: 50, PlayerMinAtBats: 10, TopN: 5, MinGradYear: 2025, MaxGradYear: 2034}

	fs := &fakeSync{status: sync.StatusIdle}
	st := store.NewDuckDBStore(db)
	h := NewHandler(Deps{
		Sync:        fs,
		Store:       st,
		Query:       query.New(db, zap.NewNop()),
		Leaderboard: analytics.NewEngine(db, ranking, nil, zap.NewNop(), m),
		Cache:       cache.NewWithClient(client, time.Minute, zap.NewNop(), m),
		Metrics:     m,
		Server:      config.ServerConfig{CorsOrigins: []string{"https://dash.example.com"}},
		Ranking:     ranking,
		Log:         zap.NewNop(),
	})

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, sync: fs, redis: mr, reg: reg, store: st}
}

func (f *fixture) do(t *testing.T, method, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealthCheck(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestTriggerSync(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/sync/trigger")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "started"}, decode[map[string]string](t, body))

	resp, _ = f.do(t, http.MethodPost, "/api/v1/sync/trigger?since=2026-01-02")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/sync/trigger?days_back=7")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	since := f.sync.triggered()
	require.Len(t, since, 3)
	assert.Nil(t, since[0])
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *since[1])
	require.NotNil(t, since[2])
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), *since[2], time.Minute)
}

func TestTriggerSync_Errors(t *testing.T) {
	f := setup(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/sync/trigger?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.sync.set(func(s *fakeSync) { s.err = sync.ErrSyncInProgress })
	resp, body := f.do(t, http.MethodPost, "/api/v1/sync/trigger")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "sync_in_progress", decode[errorResponse](t, body).Code)

	f.sync.set(func(s *fakeSync) { s.err = errors.New("boom") })
	resp, _ = f.do(t, http.MethodPost, "/api/v1/sync/trigger")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGetSyncStatus(t *testing.T) {
	f := setup(t)
	f.sync.set(func(s *fakeSync) {
		s.status = sync.StatusRunning
		s.last = &sync.Report{RunID: "run-1", Tables: []sync.TableResult{{Table: "Users", Rows: 2}}}
		s.lastErr = sync.ErrPartialSync
	})

	resp, body := f.do(t, http.MethodGet, "/api/v1/sync/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[syncStatusResponse](t, body)
	assert.Equal(t, sync.StatusRunning, got.Status)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, "run-1", got.LastRun.RunID)
	assert.Equal(t, sync.ErrPartialSync.Error(), got.LastError)
}

func TestListSyncLogs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, table := range []string{"Users", "Session", "Plays"} {
		require.NoError(t, f.store.AppendSyncLog(ctx, &store.SyncLogEntry{RunID: "r", TableName: table, Status: store.StatusSuccess}))
	}

	resp, body := f.do(t, http.MethodGet, "/api/v1/sync/logs?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]store.SyncLogEntry](t, body), 2)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/sync/logs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionsAndLookups(t *testing.T) {
	f := setup(t)

	_, body := f.do(t, http.MethodGet, "/api/v1/sessions")
	assert.Len(t, decode[[]analytics.SessionRecord](t, body), 2)

	_, body = f.do(t, http.MethodGet, "/api/v1/sessions?skill_level=3&player=Jane+Doe")
	sessions := decode[[]analytics.SessionRecord](t, body)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Jane Doe", sessions[0].Name)

	_, body = f.do(t, http.MethodGet, "/api/v1/sessions?end=2026-03-01")
	assert.Len(t, decode[[]analytics.SessionRecord](t, body), 1)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/sessions?skill_level=high")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/api/v1/skill-levels")
	assert.Equal(t, []int64{2, 3}, decode[[]int64](t, body))

	_, body = f.do(t, http.MethodGet, "/api/v1/players")
	assert.Equal(t, []string{"Alex Ames", "Jane Doe"}, decode[[]string](t, body))

	_, body = f.do(t, http.MethodGet, "/api/v1/players/Jane%20Doe/sessions")
	assert.Len(t, decode[[]analytics.SessionRecord](t, body), 1)
}

func TestStatsAndSummary(t *testing.T) {
	f := setup(t)

	_, body := f.do(t, http.MethodGet, "/api/v1/stats")
	assert.Len(t, decode[[]analytics.PlayerStats](t, body), 2)

	_, body = f.do(t, http.MethodGet, "/api/v1/stats?min_at_bats=50")
	stats := decode[[]analytics.PlayerStats](t, body)
	require.Len(t, stats, 1)
	assert.Equal(t, "Jane Doe", stats[0].Name)

	_, body = f.do(t, http.MethodGet, "/api/v1/summary?player=Alex+Ames")
	summary := decode[[]analytics.PlayerSummary](t, body)
	require.Len(t, summary, 1)
	assert.Equal(t, int64(12), summary[0].AB)
}

func TestLeaderboard_CachesResult(t *testing.T) {
	f := setup(t)
	path := "/api/v1/leaderboard?start=2026-01-01&end=2026-06-30"

	resp, body := f.do(t, http.MethodGet, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lb := decode[analytics.Leaderboard](t, body)

	entries := lb[analytics.MaxExitVelocity][2027]
	require.Len(t, entries, 1)
	assert.Equal(t, "Jane Doe", entries[0].Name)
	assert.Equal(t, 91.2, entries[0].Value)
	assert.Empty(t, lb[analytics.MaxExitVelocity][2028])
	assert.Len(t, lb[analytics.MaxDistance], 10)

	key := cache.Key(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 50)
	assert.True(t, f.redis.Exists(key))

	_, again := f.do(t, http.MethodGet, path)
	assert.JSONEq(t, string(body), string(again))

	assert.Equal(t, 1.0, counterValue(t, f.reg, "htdashboard_cache_requests_total", "hit"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{result=%q} not found", name, result)
	return 0
}

func TestLeaderboard_MinAtBats(t *testing.T) {
	f := setup(t)

	_, body := f.do(t, http.MethodGet, "/api/v1/leaderboard?start=2026-01-01&end=2026-06-30&min_at_bats=10")
	lb := decode[analytics.Leaderboard](t, body)
	assert.Len(t, lb[analytics.MaxExitVelocity][2028], 1)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/leaderboard?start=01/01/2026")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/leaderboard?min_at_bats=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboard_ZeroMinAtBatsKeepsEveryPlayer(t *testing.T) {
	f := setup(t)

	_, body := f.do(t, http.MethodGet, "/api/v1/leaderboard?start=2026-01-01&end=2026-06-30&min_at_bats=0")
	lb := decode[analytics.Leaderboard](t, body)
	require.Len(t, lb[analytics.MaxExitVelocity][2028], 1)
	assert.Equal(t, "Alex Ames", lb[analytics.MaxExitVelocity][2028][0].Name)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, f.redis.Exists(cache.Key(from, to, 0)))

	_, body = f.do(t, http.MethodGet, "/api/v1/leaderboard?start=2026-01-01&end=2026-06-30")
	assert.Empty(t, decode[analytics.Leaderboard](t, body)[analytics.MaxExitVelocity][2028])
	assert.True(t, f.redis.Exists(cache.Key(from, to, 50)))
}

func TestExports(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/leaderboard/export.xlsx?start=2026-01-01&end=2026-06-30")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "leaderboard_20260101_20260630.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, analytics.MetricKeys(), wb.GetSheetList())

	resp, body = f.do(t, http.MethodGet, "/api/v1/players/Jane%20Doe/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Jane_Doe.xlsx")
	pw, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer pw.Close()
	assert.Contains(t, pw.GetSheetList(), "Sessions")

	resp, _ = f.do(t, http.MethodGet, "/api/v1/players/Nobody/export.xlsx")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerify(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/verify")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[query.Verification](t, body)
	assert.Equal(t, int64(2), v.Counts["Users"])
	assert.Equal(t, int64(2), v.Counts["SessionConverted"])
}

func TestCORS(t *testing.T) {
	f := setup(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/v1/players", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dash.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	f.do(t, http.MethodGet, "/api/v1/players")

	resp, body := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `htdashboard_http_requests_total{method="GET",route="/api/v1/players",status_code="200"} 1`), string(body))
}
