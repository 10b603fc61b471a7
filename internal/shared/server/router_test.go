package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"coverage-backend/internal/shared/config"
)

func testConfig() config.Config {
	return config.Config{
		Port:            "8080",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		MoonshotAPIKey:  "test-key",
	}
}

func TestNewRouterRequiresPrimaryProviderKey(t *testing.T) {
	cfg := testConfig()
	cfg.MoonshotAPIKey = ""
	if _, err := NewRouter(cfg); err == nil {
		t.Fatal("expected error when primary provider key is missing")
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, err := NewRouter(testConfig())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body["ok"] {
		t.Fatalf("body = %v, want ok=true", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, err := NewRouter(testConfig())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected metrics output")
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9090":  ":9090",
		":7070": ":7070",
	}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
