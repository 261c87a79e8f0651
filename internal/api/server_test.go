package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/logging"
	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/sensortest"
	"github.com/nerrad567/depthcam-core/internal/session"
	"github.com/nerrad567/depthcam-core/internal/tick"
)

// fakeEvents is an in-memory EventStore.
type fakeEvents struct {
	lastFilter session.Filter
	lastLimit  int
	events     []session.Event
	sessions   []session.Session
	err        error
}

func (f *fakeEvents) List(_ context.Context, filter session.Filter) (*session.ListResult, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &session.ListResult{Events: f.events, Total: len(f.events), Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeEvents) Sessions(_ context.Context, _ string, limit int) ([]session.Session, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions, nil
}

type fakeConn bool

func (c fakeConn) IsConnected() bool { return bool(c) }

type fakeDB struct{}

func (fakeDB) Stats() sql.DBStats { return sql.DBStats{OpenConnections: 1, Idle: 1} }

type testEnv struct {
	srv    *Server
	router http.Handler
	loop   *tick.Loop
	sdk    *sensortest.SDK
	events *fakeEvents
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testDeps(log *logging.Logger, ctrl Controller) Deps {
	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Device:     config.DeviceConfig{ID: "cam-1", Name: "Lab"},
		Logger:     log,
		Controller: ctrl,
		Version:    "test",
	}
}

// testServer creates a Server driving a fake sensor through a real tick loop.
func testServer(t *testing.T, opts tick.Options) *testEnv {
	t.Helper()

	sdk := sensortest.NewSDK()
	loop := tick.New(device.New(sdk), opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	log := testLogger()
	events := &fakeEvents{}
	deps := testDeps(log, loop)
	deps.Events = events

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(ctx)

	return &testEnv{srv: srv, router: srv.buildRouter(), loop: loop, sdk: sdk, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func kindsOf(sources []device.SourceStatus) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Kind.String()
	}
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Controller: tick.New(device.New(sensortest.NewSDK()), tick.Options{})}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without controller should fail")
	}
}

func TestHealth(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if _, ok := resp["sensor_open"]; ok {
		t.Error("sensor_open reported before the first tick")
	}
}

func TestHealth_ContentType(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/device", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, OPTIONS" {
		t.Errorf("ACAM = %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Device Tests ──────────────────────────────────────────────────

func TestGetDevice_Closed(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodGet, "/api/v1/device", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[DeviceResponse](t, w)
	if resp.ID != "cam-1" || resp.Name != "Lab" {
		t.Errorf("id/name = %q/%q, want cam-1/Lab", resp.ID, resp.Name)
	}
	if resp.Open {
		t.Error("open = true before POST /device/open")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want none", resp.Sources)
	}
}

func TestOpenDevice(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodPost, "/api/v1/device/open", `{"sources":["depth","color"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := decodeBody[DeviceResponse](t, w)
	if !resp.Open {
		t.Error("open = false after open")
	}
	if got := kindsOf(resp.Sources); fmt.Sprint(got) != "[depth color]" {
		t.Errorf("sources = %v, want [depth color]", got)
	}

	// bare open on an open device is fine
	w = env.do(t, http.MethodPost, "/api/v1/device/open", "")
	if w.Code != http.StatusOK {
		t.Errorf("second open status = %d, want 200", w.Code)
	}
}

func TestOpenDevice_BadRequests(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"sources":`},
		{name: "unknown kind", body: `{"sources":["thermal"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/device/open", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestOpenDevice_SensorMissing(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.sdk.Err = sensor.ErrNoSensor

	w := env.do(t, http.MethodPost, "/api/v1/device/open", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if e := decodeBody[Error](t, w); e.Code != ErrCodeUnavailable {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeUnavailable)
	}
}

func TestCloseDevice(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.do(t, http.MethodPost, "/api/v1/device/open", `{"sources":["depth"]}`)

	w := env.do(t, http.MethodPost, "/api/v1/device/close", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody[DeviceResponse](t, w)
	if resp.Open || len(resp.Sources) != 0 {
		t.Errorf("after close open=%v sources=%v, want closed and empty", resp.Open, resp.Sources)
	}
	if env.sdk.Native.Opened {
		t.Error("native sensor still open")
	}
}

// ─── Source Tests ──────────────────────────────────────────────────

func TestInitSource(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.do(t, http.MethodPost, "/api/v1/device/open", "")

	w := env.do(t, http.MethodPost, "/api/v1/sources/depth", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("first init status = %d, want 201: %s", w.Code, w.Body.String())
	}
	st := decodeBody[device.SourceStatus](t, w)
	if st.Kind.String() != "depth" {
		t.Errorf("kind = %v, want depth", st.Kind)
	}

	// duplicate returns the existing source
	w = env.do(t, http.MethodPost, "/api/v1/sources/depth", "")
	if w.Code != http.StatusOK {
		t.Errorf("duplicate init status = %d, want 200", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/sources/long-exposure-infrared", "")
	if w.Code != http.StatusCreated {
		t.Errorf("hyphenated kind status = %d, want 201", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/v1/sources", "")
	resp := decodeBody[struct {
		Sources []device.SourceStatus `json:"sources"`
		Count   int                   `json:"count"`
	}](t, w)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	if got := kindsOf(resp.Sources); fmt.Sprint(got) != "[depth long_exposure_infrared]" {
		t.Errorf("sources = %v", got)
	}
}

func TestInitSource_Errors(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	w := env.do(t, http.MethodPost, "/api/v1/sources/depth", "")
	if w.Code != http.StatusConflict {
		t.Errorf("init on closed sensor status = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/sources/thermal", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", w.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/device/open", "")
	env.sdk.Native.ReaderErrs[sensor.StreamBody] = errors.New("body tracking unavailable")
	w = env.do(t, http.MethodPost, "/api/v1/sources/body", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("failed init status = %d, want 422", w.Code)
	}
}

func TestGetSource(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.do(t, http.MethodPost, "/api/v1/device/open", `{"sources":["color"]}`)

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/v1/sources/color", want: http.StatusOK},
		{path: "/api/v1/sources/COLOR", want: http.StatusOK},
		{path: "/api/v1/sources/depth", want: http.StatusNotFound},
		{path: "/api/v1/sources/thermal", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := env.do(t, http.MethodGet, tt.path, ""); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}

func TestSetTextures(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.do(t, http.MethodPost, "/api/v1/device/open", `{"sources":["depth","color"]}`)

	w := env.do(t, http.MethodPut, "/api/v1/textures", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing enabled status = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodPut, "/api/v1/textures", `nope`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/v1/textures", `{"enabled":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody[DeviceResponse](t, w)
	for _, s := range resp.Sources {
		if s.HasTexture && !s.UseTexture {
			t.Errorf("%s: use_texture = false after enabling", s.Kind)
		}
		if !s.HasTexture && s.UseTexture {
			t.Errorf("%s: use_texture set on a source without texture", s.Kind)
		}
	}
}

func TestGetScene(t *testing.T) {
	env := testServer(t, tick.Options{Interval: 2 * time.Millisecond, Render: true, GLMajor: 3})

	if w := env.do(t, http.MethodGet, "/api/v1/scene", ""); w.Code != http.StatusNotFound {
		t.Errorf("scene before depth status = %d, want 404", w.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/device/open", `{"sources":["depth"]}`)
	err := env.loop.Submit(context.Background(), func(*device.Device) error {
		env.sdk.Native.Push(sensortest.DepthFrame(8, 6, 1500))
		return nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var w *httptest.ResponseRecorder
	for time.Now().Before(deadline) {
		w = env.do(t, http.MethodGet, "/api/v1/scene", "")
		if w.Code == http.StatusOK {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("scene status = %d, want 200", w.Code)
	}

	resp := decodeBody[struct {
		Count int `json:"count"`
		Calls []struct {
			Op string `json:"op"`
		} `json:"calls"`
	}](t, w)
	if resp.Count == 0 || resp.Count != len(resp.Calls) {
		t.Errorf("count = %d, calls = %d", resp.Count, len(resp.Calls))
	}
}

// ─── Event Log Tests ───────────────────────────────────────────────

func TestListEvents(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.events.events = []session.Event{{ID: "evt-1", DeviceID: "cam-1", Type: "open"}}

	w := env.do(t, http.MethodGet, "/api/v1/events?type=source_init&kind=depth&since=2026-03-01T12:00:00Z&limit=10&offset=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	f := env.events.lastFilter
	if f.DeviceID != "cam-1" || f.Type != "source_init" || f.Kind != "depth" {
		t.Errorf("filter = %+v", f)
	}
	if f.Limit != 10 || f.Offset != 5 {
		t.Errorf("limit/offset = %d/%d, want 10/5", f.Limit, f.Offset)
	}
	if want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC); !f.Since.Equal(want) {
		t.Errorf("since = %v, want %v", f.Since, want)
	}

	resp := decodeBody[session.ListResult](t, w)
	if resp.Total != 1 || resp.Events[0].ID != "evt-1" {
		t.Errorf("result = %+v", resp)
	}
}

func TestListEvents_Errors(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})

	if w := env.do(t, http.MethodGet, "/api/v1/events?since=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", w.Code)
	}

	env.events.err = errors.New("disk full")
	if w := env.do(t, http.MethodGet, "/api/v1/events", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("store error status = %d, want 500", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/sessions", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("sessions store error status = %d, want 500", w.Code)
	}

	env.srv.events = nil
	if w := env.do(t, http.MethodGet, "/api/v1/events", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no store status = %d, want 503", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.events.sessions = []session.Session{{ID: "ses-1", DeviceID: "cam-1", Sources: []string{"depth"}}}

	w := env.do(t, http.MethodGet, "/api/v1/sessions?limit=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.events.lastLimit != 3 {
		t.Errorf("limit = %d, want 3", env.events.lastLimit)
	}
	resp := decodeBody[struct {
		Count int `json:"count"`
	}](t, w)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

// ─── System and Metrics ────────────────────────────────────────────

func TestSystem(t *testing.T) {
	env := testServer(t, tick.Options{Interval: time.Hour})
	env.srv.mqtt = fakeConn(true)
	env.srv.influx = fakeConn(false)
	env.srv.db = fakeDB{}

	w := env.do(t, http.MethodGet, "/api/v1/system", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[SystemMetrics](t, w)
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.MQTT == nil || !resp.MQTT.Connected {
		t.Errorf("mqtt = %+v, want connected", resp.MQTT)
	}
	if resp.InfluxDB == nil || resp.InfluxDB.Connected {
		t.Errorf("influxdb = %+v, want disconnected", resp.InfluxDB)
	}
	if resp.Database == nil || resp.Database.OpenConnections != 1 {
		t.Errorf("database = %+v", resp.Database)
	}
	if resp.Tick != nil {
		t.Errorf("tick = %+v before the first tick", resp.Tick)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("goroutines = 0")
	}
}

func TestMetricsHandlerMounted(t *testing.T) {
	log := testLogger()
	deps := testDeps(log, tick.New(device.New(sensortest.NewSDK()), tick.Options{}))
	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "depthcam_ticks_total 3\n")
	})
	deps.MetricsPath = "/prom"

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/prom", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "depthcam_ticks_total") {
		t.Errorf("GET /prom = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404 when mounted elsewhere", w.Code)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	port := 19180
	deps := testDeps(testLogger(), tick.New(device.New(sensortest.NewSDK()), tick.Options{}))
	deps.Config.Port = port

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if srv.Hub() == nil {
		t.Fatal("Start() did not create a hub")
	}

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v, want nil", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := http.Get("http://" + addr + "/api/v1/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_CloseNotStarted(t *testing.T) {
	srv, err := New(testDeps(testLogger(), tick.New(device.New(sensortest.NewSDK()), tick.Options{})))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() on unstarted server = %v, want nil", err)
	}
}

func TestWriteDeviceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tick.ErrSensorNotOpen, http.StatusConflict},
		{tick.ErrOpenFailed, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: depth", tick.ErrInitFailed), http.StatusUnprocessableEntity},
		{tick.ErrStopped, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeDeviceError(w, tt.err)
		if w.Code != tt.want {
			t.Errorf("writeDeviceError(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
