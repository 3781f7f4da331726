package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-engine/internal/achievements"
	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/scheduler"
	"github.com/jonathan/portfolio-engine/internal/server/ratelimit"
	"github.com/jonathan/portfolio-engine/internal/store"
	"github.com/jonathan/portfolio-engine/internal/types"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testProjects() []types.Project {
	return []types.Project{
		{
			Name:     "Interceptor Model",
			Client:   "ALCOSAN",
			Company:  "KLH Engineers",
			Category: "Modeling",
			Year:     "2014",
			Tags:     types.Tags{"SWMM", "Flow Monitoring"},
			Coords:   types.NewCoords(-80.0, 40.4),
		},
		{
			Name:      "Chatbot for Engineering",
			Client:    "Internal",
			Company:   "Wade Trim",
			Category:  "Innovation",
			StartDate: "2023-02-01",
			EndDate:   "present",
			Tags:      types.Tags{"AI", "Python"},
		},
		{
			Name:      "Hydraulic Model Expansion",
			Client:    "PWSA",
			Company:   "Wade Trim",
			Category:  "Modeling",
			StartDate: "2021-03-01",
			EndDate:   "2024-10-31",
			Tags:      types.Tags{"SWMM", "GIS"},
			Coords:    types.NewCoords(-79.9, 40.45),
		},
	}
}

func testHierarchy() types.TagHierarchy {
	return types.TagHierarchy{
		{Label: "Modeling", Children: []types.TagNode{{Label: "SWMM"}}},
		{Label: "Software", Children: []types.TagNode{{Label: "Python"}, {Label: "AI"}}},
	}
}

func testCatalog() *filter.Catalog {
	return filter.NewCatalog(testProjects(), testHierarchy(), filter.WithClock(func() time.Time { return testNow }))
}

type testServer struct {
	*Server
	sched *scheduler.Manual
	store *store.MemoryStore

	mu  sync.Mutex
	now time.Time
}

func (ts *testServer) advanceClock(d time.Duration) {
	ts.mu.Lock()
	ts.now = ts.now.Add(d)
	ts.mu.Unlock()
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	ts := &testServer{
		sched: scheduler.NewManual(testNow),
		store: store.NewMemoryStore(),
		now:   testNow,
	}
	cfg := Config{
		RateLimit: &ratelimit.Config{Enabled: false},
		Sessions: SessionConfig{
			Store:     ts.store,
			Scheduler: ts.sched,
			TTL:       time.Hour,
			Now: func() time.Time {
				ts.mu.Lock()
				defer ts.mu.Unlock()
				return ts.now
			},
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	ts.Server = New(testCatalog(), cfg)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](t, w).ID
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(3), resp["projects"])
}

func TestProjectsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[ProjectsResponse](t, w)
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, "Interceptor Model", all.Projects[0].Name, "no criteria keeps dataset order")

	w = ts.do(t, http.MethodGet, "/projects?company=Wade+Trim&q=model", nil)
	require.Equal(t, http.StatusOK, w.Code)
	some := decode[ProjectsResponse](t, w)
	require.Equal(t, 1, some.Count)
	assert.Equal(t, "Hydraulic Model Expansion", some.Projects[0].Name)
	assert.Equal(t, 3, some.Total)
}

func TestProjectsEndpoint_TagSelectsSubtree(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/projects?tag=Software", nil)
	resp := decode[ProjectsResponse](t, w)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Chatbot for Engineering", resp.Projects[0].Name)
}

func TestFacetsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	full := decode[types.Facets](t, ts.do(t, http.MethodGet, "/facets?company=Wade+Trim", nil))
	assert.Equal(t, []string{"KLH Engineers", "Wade Trim"}, full.Companies, "facets ignore criteria by default")

	narrow := decode[types.Facets](t, ts.do(t, http.MethodGet, "/facets?company=Wade+Trim&narrow=true", nil))
	assert.Equal(t, []string{"Wade Trim"}, narrow.Companies)
	assert.Equal(t, []string{"Internal", "PWSA"}, narrow.Clients)
}

func TestStatsAndMarkersEndpoints(t *testing.T) {
	ts := newTestServer(t)

	stats := decode[types.Stats](t, ts.do(t, http.MethodGet, "/stats", nil))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, types.Count{Name: "SWMM", Value: 2}, stats.TopTags[0])

	markers := decode[[]types.Marker](t, ts.do(t, http.MethodGet, "/markers?company=Wade+Trim", nil))
	require.Len(t, markers, 1)
	assert.Equal(t, "Hydraulic Model Expansion", markers[0].Name)
	assert.Equal(t, filter.CompanyColor("Wade Trim"), markers[0].Color)
}

func TestTagCSVEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/tags.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Uncategorized-Tags"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Top Level Tag,Sub Tag\n"))
}

func TestBadgeCatalogEndpoint(t *testing.T) {
	ts := newTestServer(t)

	badges := decode[[]types.Badge](t, ts.do(t, http.MethodGet, "/badges", nil))
	assert.Equal(t, achievements.Catalog(), badges)
}

func TestSetCatalogSwapsServedData(t *testing.T) {
	ts := newTestServer(t)

	ts.SetCatalog(filter.NewCatalog(testProjects()[:1], nil))
	resp := decode[ProjectsResponse](t, ts.do(t, http.MethodGet, "/projects", nil))
	assert.Equal(t, 1, resp.Total)
}

func TestReloadKeepsCatalogOnError(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.Reload = func() (*filter.Catalog, error) { return nil, errors.New("bad file") }
	})
	before := ts.Catalog()
	ts.reload()
	assert.Same(t, before, ts.Catalog())
}

func TestReloadSwapsCatalog(t *testing.T) {
	next := filter.NewCatalog(nil, nil)
	ts := newTestServer(t, func(cfg *Config) {
		cfg.Reload = func() (*filter.Catalog, error) { return next, nil }
	})
	ts.reload()
	assert.Same(t, next, ts.Catalog())
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimit = &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    100,
			DefaultWindow:   time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/sessions", Method: http.MethodPost, Limit: 1, Window: time.Minute}},
		}
	})

	w := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, w)["error"])

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/sessions/" + id

	w := ts.do(t, http.MethodPost, base+"/events", map[string]any{"type": "project-opened", "id": "p1", "total": 3})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	ev := decode[EventResponse](t, w)
	assert.Equal(t, []string{achievements.ProjectFirstSteps}, ev.Unlocked)
	assert.Equal(t, 1, ev.Tray.Unlocked)
	assert.Equal(t, 15, ev.Tray.Total)

	tray := decode[TrayResponse](t, ts.do(t, http.MethodGet, base+"/badges", nil))
	require.Len(t, tray.Badges, 1)
	assert.True(t, tray.Badges[0].Recent)

	w = ts.do(t, http.MethodPost, base+"/badges/"+achievements.ProjectFirstSteps+"/dismiss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[TrayResponse](t, w).Badges[0].Dismissed)

	w = ts.do(t, http.MethodPost, base+"/badges/"+achievements.SpaceNerd+"/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[TrayResponse](t, w).Unlocked)

	w = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, base+"/badges", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventValidation(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + ts.createSession(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing type", body: map[string]any{"id": "x"}},
		{name: "unknown type", body: map[string]any{"type": "teleport"}},
		{name: "server-only type", body: map[string]any{"type": "badge-unlocked", "id": achievements.SpaceNerd}},
		{name: "ratio out of range", body: map[string]any{"type": "section-visible", "id": "skills", "ratio": 2}},
		{name: "negative count", body: map[string]any{"type": "bubble-collected", "count": -1}},
		{name: "unknown field", body: `{"type":"journal-link-clicked","extra":1}`},
		{name: "malformed", body: `{"type":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, base+"/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestEventsOnUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/sessions/nope/events", map[string]any{"type": "journal-link-clicked"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBubbleThresholdsThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + ts.createSession(t)

	var unlocked []string
	for _, total := range []int{10, 60, 150, 1100} {
		w := ts.do(t, http.MethodPost, base+"/events", map[string]any{"type": "bubble-collected", "count": total})
		require.Equal(t, http.StatusAccepted, w.Code)
		unlocked = append(unlocked, decode[EventResponse](t, w).Unlocked...)
	}
	assert.Equal(t, []string{achievements.BubbleCollector100, achievements.BubbleCollector1000}, unlocked)
}

func TestSessionResumeAfterExpiry(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions/"+id+"/events", map[string]any{"type": "feature-toggle-changed", "enabled": true})
	require.Equal(t, []string{achievements.SpaceNerd}, decode[EventResponse](t, w).Unlocked)

	ts.advanceClock(2 * time.Hour)
	require.Equal(t, 1, ts.Sessions().Sweep())
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/sessions/"+id+"/badges", nil).Code)

	w = ts.do(t, http.MethodPost, "/sessions", CreateSessionRequest{ID: id})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[SessionResponse](t, w)
	assert.Equal(t, id, resp.ID)
	assert.True(t, resp.Resumed)
	require.Len(t, resp.Badges, 1)
	assert.Equal(t, achievements.SpaceNerd, resp.Badges[0].ID)
	assert.True(t, resp.Badges[0].Dismissed, "rehydrated badges come back collapsed")
}

func TestCreateSessionReturnsActiveSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions", CreateSessionRequest{ID: id})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.Sessions().Len())
}

func TestCreateSessionRejectsBadID(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/sessions", CreateSessionRequest{ID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) { cfg.Sessions.MaxSessions = 1 })
	ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDeleteSessionErasesStoredBadges(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	ts.do(t, http.MethodPost, "/sessions/"+id+"/events", map[string]any{"type": "journal-link-clicked"})

	_, err := ts.store.Load(context.Background(), SessionKey(id))
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/sessions/"+id, nil).Code)
	_, err = ts.store.Load(context.Background(), SessionKey(id))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMilestoneTimersThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + ts.createSession(t)

	ts.sched.Advance(5 * time.Minute)

	tray := decode[TrayResponse](t, ts.do(t, http.MethodGet, base+"/badges", nil))
	require.Len(t, tray.Badges, 1)
	assert.Equal(t, achievements.FiveMinuteMark, tray.Badges[0].ID)
}

func TestPointerDwellThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + ts.createSession(t)

	portrait := achievements.Rect{Left: 0, Top: 0, Width: 100, Height: 100}
	w := ts.do(t, http.MethodPost, base+"/pointer", PointerRequest{X: 50, Y: 10, Portrait: portrait})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[map[string]bool](t, w)["dwelling"])

	ts.sched.Advance(10 * time.Second)
	sess, err := ts.Sessions().Get(strings.TrimPrefix(base, "/sessions/"))
	require.NoError(t, err)
	assert.True(t, sess.Engine.IsUnlocked(achievements.BuddaBadge))

	w = ts.do(t, http.MethodPost, base+"/pointer", PointerRequest{Left: true})
	assert.False(t, decode[map[string]bool](t, w)["dwelling"])
}

func TestHoverThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + ts.createSession(t)
	ts.do(t, http.MethodPost, base+"/events", map[string]any{"type": "journal-link-clicked"})

	w := ts.do(t, http.MethodPost, base+"/badges/"+achievements.JournalReader+"/hover", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, base+"/badges/hover", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, base+"/badges/"+achievements.HourMark+"/hover", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadgeStream(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+id+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	post, err := http.Post(srv.URL+"/sessions/"+id+"/events", "application/json",
		strings.NewReader(`{"type":"feature-toggle-changed","enabled":true}`))
	require.NoError(t, err)
	post.Body.Close()

	lines := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
		close(lines)
	}()

	select {
	case line := <-lines:
		assert.Equal(t, "event: badge-unlocked", line)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	select {
	case line := <-lines:
		assert.Contains(t, line, `"id":"space-nerd"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no event data received")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) { cfg.Port = 0 })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
