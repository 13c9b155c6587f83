package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"hop-proxy/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	var (
		mu      sync.Mutex
		proxied []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	proxy, _ := newTestProxyHandler(t, upstream.URL)
	health := NewHealthHandler(cfg, "test")
	m := metrics.New()

	e := echo.New()
	RegisterRoutes(e, cfg, proxy, health, m)

	tests := []struct {
		name         string
		method       string
		path         string
		wantStatus   int
		wantProxied  bool
		wantSecurity bool
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK, false, true},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK, false, true},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK, false, true},
		{"GET /status", http.MethodGet, "/status?foo=1", http.StatusOK, true, false},
		{"POST /session", http.MethodPost, "/session", http.StatusOK, true, false},
		{"DELETE /session/1", http.MethodDelete, "/session/1", http.StatusOK, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			proxied = nil
			mu.Unlock()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			mu.Lock()
			seen := proxied
			mu.Unlock()
			if got := len(seen) == 1; got != tt.wantProxied {
				t.Errorf("proxied = %v, want %v (upstream saw %v)", got, tt.wantProxied, seen)
			}
			if got := rec.Header().Get("X-Content-Type-Options") == "nosniff"; got != tt.wantSecurity {
				t.Errorf("security headers present = %v, want %v", got, tt.wantSecurity)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	paths := make(chan string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = w.Write([]byte("upstream metrics"))
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	proxy, _ := newTestProxyHandler(t, upstream.URL)

	e := echo.New()
	RegisterRoutes(e, cfg, proxy, NewHealthHandler(cfg, "test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	select {
	case p := <-paths:
		if p != "/metrics" {
			t.Errorf("upstream path = %q, want /metrics", p)
		}
	default:
		t.Error("/metrics was not proxied while metrics are disabled")
	}
	if !strings.Contains(rec.Body.String(), "upstream metrics") {
		t.Errorf("body = %q, want upstream body", rec.Body.String())
	}
}
