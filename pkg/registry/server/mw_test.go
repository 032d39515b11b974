package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsConfig() Config {
	cfg := testConfig()
	cfg.CORSAllowedOrigins = map[string]struct{}{"https://forms.example": {}}
	return cfg
}

func passThrough() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	t.Parallel()
	h := CORS(corsConfig(), passThrough())

	req := httptest.NewRequest(http.MethodOptions, "/v1/registrations", nil)
	req.Header.Set("Origin", "https://forms.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://forms.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	t.Parallel()
	h := CORS(corsConfig(), passThrough())

	req := httptest.NewRequest(http.MethodOptions, "/v1/registrations", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code == http.StatusNoContent {
		t.Fatalf("disallowed origin received a preflight approval")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestCORS_NonPreflightPassesThrough(t *testing.T) {
	t.Parallel()
	h := CORS(corsConfig(), passThrough())

	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", nil)
	req.Header.Set("Origin", "https://forms.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://forms.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
}
