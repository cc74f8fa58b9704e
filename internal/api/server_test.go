package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/pomodorox/internal/events"
	"github.com/smazurov/pomodorox/internal/phase"
	"github.com/smazurov/pomodorox/internal/settings"
)

// Mock settings service for testing
type mockSettings struct {
	mu       sync.Mutex
	current  settings.Config
	failSave bool
	sources  []string
}

func (m *mockSettings) Current() settings.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockSettings) ApplyUpdate(ctx context.Context, req settings.UpdateRequest, source string) (settings.Result, error) {
	cfg, err := req.Parse()
	if err != nil {
		return settings.Result{}, err
	}
	return m.Apply(ctx, cfg, source), nil
}

func (m *mockSettings) Apply(_ context.Context, cfg settings.Config, source string) settings.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg = cfg.Normalize()
	m.current = cfg
	m.sources = append(m.sources, source)
	if m.failSave {
		return settings.Result{Config: cfg, PersistErr: &settings.PersistenceWriteError{Err: io.ErrShortWrite}}
	}
	return settings.Result{Config: cfg, Persisted: true}
}

type fixedPhase struct{ state phase.State }

func (f fixedPhase) Current() phase.State { return f.state }

var testNow = time.Date(2025, 1, 27, 10, 0, 10, 0, time.UTC)

func newTestServer(t *testing.T, opts *Options) (*Server, *mockSettings) {
	t.Helper()
	svc := &mockSettings{current: settings.Default()}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Settings == nil {
		opts.Settings = svc
	}
	if opts.Phase == nil {
		opts.Phase = fixedPhase{phase.State{
			Phase:     phase.Work,
			EnteredAt: testNow.Add(-5 * time.Second),
			Duration:  20 * time.Second,
			Cycle:     4,
		}}
	}
	s := NewServer(opts)
	s.now = func() time.Time { return testNow }
	return s, svc
}

func do(t *testing.T, s *Server, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLegacyAlive(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "server alive" {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLegacySettings(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
		wantWork time.Duration
	}{
		{
			name:     "all params",
			query:    "?debug=false&work_delay=1000&rest_delay=5000",
			wantCode: http.StatusOK,
			wantBody: "settings saved",
			wantWork: time.Second,
		},
		{
			name:     "zero coerced",
			query:    "?debug=true&work_delay=0&rest_delay=0",
			wantCode: http.StatusOK,
			wantBody: "settings saved",
			wantWork: settings.SafeDelay,
		},
		{
			name:     "missing rest_delay",
			query:    "?debug=true&work_delay=100",
			wantCode: http.StatusBadRequest,
			wantBody: "Please make sure you include ALL the query parameters in the request",
			wantWork: settings.DefaultWorkDelay,
		},
		{
			name:     "no params",
			query:    "",
			wantCode: http.StatusBadRequest,
			wantBody: "Please make sure you include ALL the query parameters in the request",
			wantWork: settings.DefaultWorkDelay,
		},
		{
			name:     "non-numeric",
			query:    "?debug=true&work_delay=soon&rest_delay=1",
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid value for query parameter work_delay",
			wantWork: settings.DefaultWorkDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer(t, nil)

			rec := do(t, s, http.MethodGet, "/settings"+tt.query, "", nil)
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("GET /settings%s = %d %q", tt.query, rec.Code, rec.Body.String())
			}
			if got := svc.Current().WorkDelay; got != tt.wantWork {
				t.Errorf("WorkDelay = %v, want %v", got, tt.wantWork)
			}
		})
	}
}

func TestLegacySettingsPersistFailureStillSaved(t *testing.T) {
	s, svc := newTestServer(t, nil)
	svc.failSave = true

	rec := do(t, s, http.MethodGet, "/settings?debug=1&work_delay=10&rest_delay=10", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "settings saved" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, target := range []string{"/nope", "/settings/extra", "/api/unknown"} {
		rec := do(t, s, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusNotFound || rec.Body.String() != "Not found" {
			t.Errorf("GET %s = %d %q", target, rec.Code, rec.Body.String())
		}
	}
	rec := do(t, s, http.MethodPost, "/settings", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("POST /settings = %d, want 404", rec.Code)
	}
}

func TestHealthAndVersion(t *testing.T) {
	s, _ := newTestServer(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})

	rec := do(t, s, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/version", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"app":"pomodorox"`) {
		t.Errorf("version = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSettingsAPI(t *testing.T) {
	s, svc := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/settings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/settings = %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["work_delay"] != float64(20000) || got["rest_delay"] != float64(5000) || got["debug"] != true {
		t.Errorf("settings = %v", got)
	}

	header := http.Header{"Content-Type": {"application/json"}}
	rec = do(t, s, http.MethodPut, "/api/settings", `{"debug":false,"work_delay":-1,"rest_delay":3000}`, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/settings = %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["work_delay"] != float64(500) || got["persisted"] != true {
		t.Errorf("update result = %v", got)
	}
	if svc.sources[len(svc.sources)-1] != settings.SourceAPI {
		t.Errorf("source = %v", svc.sources)
	}

	rec = do(t, s, http.MethodPut, "/api/settings", `{"debug":false}`, header)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PUT with missing fields = %d, want 422", rec.Code)
	}
}

func TestPhaseAPI(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/phase", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/phase = %d", rec.Code)
	}
	var got struct {
		Phase       string  `json:"phase"`
		DurationMs  int64   `json:"duration_ms"`
		RemainingMs int64   `json:"remaining_ms"`
		Fraction    float64 `json:"fraction"`
		Cycle       uint64  `json:"cycle"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Phase != "work" || got.DurationMs != 20000 || got.RemainingMs != 15000 || got.Fraction != 0.25 || got.Cycle != 4 {
		t.Errorf("phase = %+v", got)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})
	good := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	bad := base64.StdEncoding.EncodeToString([]byte("admin:wrong"))

	tests := []struct {
		name   string
		target string
		header http.Header
		want   int
	}{
		{"no credentials", "/api/settings", nil, http.StatusUnauthorized},
		{"wrong scheme", "/api/settings", http.Header{"Authorization": {"Bearer x"}}, http.StatusUnauthorized},
		{"wrong password", "/api/settings", http.Header{"Authorization": {"Basic " + bad}}, http.StatusUnauthorized},
		{"valid header", "/api/settings", http.Header{"Authorization": {"Basic " + good}}, http.StatusOK},
		{"valid query", "/api/phase?auth=" + good, nil, http.StatusOK},
		{"legacy routes stay open", "/", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "", tt.header)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodOptions, "/api/settings", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestPrometheusHandlerMounted(t *testing.T) {
	s, _ := newTestServer(t, &Options{PrometheusHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pomodorox_up 1"))
	})})

	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "pomodorox_up 1" {
		t.Errorf("GET /metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSSEStream(t *testing.T) {
	bus := events.New()
	s, _ := newTestServer(t, &Options{EventBus: bus})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(substr string) {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", substr)
				}
				if strings.Contains(line, substr) {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timeout waiting for %q", substr)
			}
		}
	}

	waitFor("event: phase-changed")
	waitFor(`"phase":"work"`)

	// Publish until the subscription is live; delivery is asynchronous.
	go func() {
		for ctx.Err() == nil {
			bus.Publish(events.SettingsUpdatedEvent{WorkDelayMs: 4242, Source: "http"})
			time.Sleep(20 * time.Millisecond)
		}
	}()
	waitFor(`"work_delay":4242`)
}

func TestSettingsWritesAreRateLimited(t *testing.T) {
	s, _ := newTestServer(t, &Options{SettingsWritesPerMinute: 2})

	target := "/settings?debug=1&work_delay=100&rest_delay=100"
	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, target, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("write %d = %d", i, rec.Code)
		}
	}

	rec := do(t, s, http.MethodGet, target, "", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Body.String() != "Too many requests" {
		t.Errorf("third write = %d %q", rec.Code, rec.Body.String())
	}

	header := http.Header{"Content-Type": {"application/json"}}
	rec = do(t, s, http.MethodPut, "/api/settings", `{"debug":true,"work_delay":1,"rest_delay":1}`, header)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("PUT after limit = %d, want 429", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/api/settings", "", nil); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rec.Code)
	}
}

func TestRejectedWritesKeepBudget(t *testing.T) {
	s, svc := newTestServer(t, &Options{SettingsWritesPerMinute: 1})

	for _, target := range []string{
		"/settings?debug=1",
		"/settings?debug=1&work_delay=abc&rest_delay=1",
		"/settings",
	} {
		if rec := do(t, s, http.MethodGet, target, "", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("GET %s = %d, want 400", target, rec.Code)
		}
	}

	target := "/settings?debug=0&work_delay=100&rest_delay=100"
	if rec := do(t, s, http.MethodGet, target, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("first valid write = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, target, "", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second valid write = %d, want 429", rec.Code)
	}
	if len(svc.sources) != 1 {
		t.Errorf("applied %d updates, want 1", len(svc.sources))
	}
}

func TestSettingsAPILargeNegativeDelay(t *testing.T) {
	s, _ := newTestServer(t, nil)

	header := http.Header{"Content-Type": {"application/json"}}
	rec := do(t, s, http.MethodPut, "/api/settings", `{"debug":true,"work_delay":-288230376151710744,"rest_delay":-9223372036855}`, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/settings = %d %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["work_delay"] != float64(500) || got["rest_delay"] != float64(500) {
		t.Errorf("update result = %v, want both delays 500", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/", "", nil)
	if id := rec.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("minted request id = %q", id)
	}

	rec = do(t, s, http.MethodGet, "/api/health", "", http.Header{"X-Request-Id": {"abc-123"}})
	if id := rec.Header().Get("X-Request-ID"); id != "abc-123" {
		t.Errorf("request id = %q, want echoed abc-123", id)
	}
}
