package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestPolicyBypassServesLiveness(t *testing.T) {
	handler := PolicyBypass(t.TempDir())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("liveness probe must not reach the next handler")
	}))

	req := httptest.NewRequest("GET", "/ping", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"alive"}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestPolicyBypassServesStaticAssets(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	handler := PolicyBypass(dir)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("asset request must not reach the next handler")
	}))

	req := httptest.NewRequest("GET", "/assets/app.css", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "body{}" {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestPolicyBypassPassesAPIRequestsThrough(t *testing.T) {
	reached := false
	handler := PolicyBypass(t.TempDir())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/tiers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !reached {
		t.Fatal("API request should fall through to the router")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected inner handler status, got %d", rec.Code)
	}
}
