package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSecretMatch(t *testing.T) {
	handler := RequireSecret("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/tools/verify-customer", nil)
	req.Header.Set("X-Webhook-Secret", "s3cret")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRequireSecretMismatch(t *testing.T) {
	handler := RequireSecret("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/tools/verify-customer", nil)
	req.Header.Set("X-Webhook-Secret", "wrong")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequireSecretDisabledWhenUnset(t *testing.T) {
	handler := RequireSecret("")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/tools/verify-customer", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/agent/voice-intake", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard origin must not allow credentials")
	}
}
