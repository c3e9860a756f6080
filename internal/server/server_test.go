package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"cui-prefs/internal/config"
	"cui-prefs/internal/metrics"
	"cui-prefs/internal/preferences"
)

type testEnv struct {
	srv   *Server
	prefs *preferences.Service
	m     *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}

	m := metrics.New()
	prefs, err := preferences.New(preferences.Options{BaseDir: cfg.BaseDir, Observer: m})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Metrics.Enabled {
		m = nil
	}
	return &testEnv{srv: New(cfg, prefs, nil, m), prefs: prefs, m: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON object: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestGetPreferences_Defaults(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/preferences", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := map[string]any{"colorScheme": "system", "language": "en"}
	if got := decodeObject(t, rec); !reflect.DeepEqual(got, want) {
		t.Errorf("body = %v, want %v", got, want)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestUpdatePreferences(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/preferences", `{"colorScheme":"dark","sidebarWidth":240}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	want := map[string]any{"colorScheme": "dark", "language": "en", "sidebarWidth": float64(240)}
	if got := decodeObject(t, rec); !reflect.DeepEqual(got, want) {
		t.Errorf("PUT body = %v, want %v", got, want)
	}

	rec = env.do(t, http.MethodGet, "/api/preferences", "")
	if got := decodeObject(t, rec); !reflect.DeepEqual(got, want) {
		t.Errorf("GET after PUT = %v, want %v", got, want)
	}
}

func TestUpdatePreferences_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `["dark"]`},
		{"string", `"dark"`},
		{"null", `null`},
		{"syntax", `{"colorScheme":`},
		{"invalid known key", `{"colorScheme":"neon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(t, http.MethodPut, "/api/preferences", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			if msg, _ := decodeObject(t, rec)["error"].(string); msg == "" {
				t.Errorf("body = %s, want an error message", rec.Body.String())
			}
			if _, err := os.Stat(env.prefs.Paths().DBPath); !os.IsNotExist(err) {
				t.Error("rejected request must not write the file")
			}
		})
	}
}

func TestUpdatePreferences_NoContentType(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"object", `{"colorScheme":"dark"}`, http.StatusOK},
		{"array", `["dark"]`, http.StatusBadRequest},
		{"syntax", `{"colorScheme":`, http.StatusBadRequest},
		{"empty", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			env.srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.code == http.StatusOK {
				if got := decodeObject(t, rec)["colorScheme"]; got != "dark" {
					t.Errorf("colorScheme = %v, want dark", got)
				}
			}
		})
	}
}

func TestUpdatePreferences_EmptyBody(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/preferences", nil)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCorruptFile(t *testing.T) {
	env := newTestEnv(t, nil)
	path := env.prefs.Paths().DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/api/preferences", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200 with defaults", rec.Code)
	}
	if got := decodeObject(t, rec); got["colorScheme"] != "system" {
		t.Errorf("GET body = %v, want defaults", got)
	}

	rec = env.do(t, http.MethodPut, "/api/preferences", `{"language":"fr"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("PUT status = %d, want 500", rec.Code)
	}
	if got := decodeObject(t, rec)["error"]; got != "preferences file is corrupt" {
		t.Errorf("error = %v", got)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/ready before Initialize = %d, want 503", rec.Code)
	}

	if err := env.prefs.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec = env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/health/ready after Initialize = %d, want 200", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if _, ok := decodeObject(t, rec)["error"]; !ok {
		t.Errorf("body = %s, want error field", rec.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.BodyLimit = "1K" })

	big := fmt.Sprintf(`{"blob":%q}`, strings.Repeat("x", 4096))
	rec := env.do(t, http.MethodPut, "/api/preferences", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RateLimitRequests = 1
		c.Security.RateLimitBurst = 2
	})

	codes := make([]int, 4)
	for i := range codes {
		codes[i] = env.do(t, http.MethodGet, "/api/preferences", "").Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first requests = %v, want 200 within the burst", codes[:2])
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 429 once the burst is spent", codes)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.CORSAllowedOrigins = []string{"http://localhost:5173"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Metrics.Enabled = true })

	env.do(t, http.MethodGet, "/api/preferences", "")
	env.do(t, http.MethodPut, "/api/preferences", `{"colorScheme":"neon"}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",path="/api/preferences",status="200"} 1`,
		`http_requests_total{method="PUT",path="/api/preferences",status="400"} 1`,
		`cui_store_operations_total{op="read",result="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(t, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404 when disabled", rec.Code)
	}
}

func TestRun_ShutsDownWhenContextEnds(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.ShutdownTimeout = 2 * time.Second })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	env.srv.echo.Listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
