package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func serveWithRequestID(t *testing.T, inbound string) (string, string) {
	t.Helper()
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/generate-outfit", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get("X-Request-ID")
}

func TestRequestIDEchoesInboundHeader(t *testing.T) {
	seen, echoed := serveWithRequestID(t, "req-9")
	if seen != "req-9" {
		t.Fatalf("context id = %q, want req-9", seen)
	}
	if echoed != "req-9" {
		t.Fatalf("echoed id = %q, want req-9", echoed)
	}
}

func TestRequestIDMintsWhenMissing(t *testing.T) {
	seen, echoed := serveWithRequestID(t, "")
	if seen == "" {
		t.Fatalf("expected a minted request id")
	}
	if seen != echoed {
		t.Fatalf("context id %q != echoed id %q", seen, echoed)
	}
}

func TestRequestIDReplacesOversizedInboundValue(t *testing.T) {
	oversized := strings.Repeat("x", maxRequestIDLength+1)
	seen, _ := serveWithRequestID(t, oversized)
	if seen == oversized {
		t.Fatalf("oversized inbound id must be replaced")
	}
	if seen == "" {
		t.Fatalf("expected a minted request id")
	}
}

func TestLoggerEmbedsRequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("stage log")
	})
	handler := RequestID(Logger(base)(inner))

	req := httptest.NewRequest(http.MethodPost, "/api/generate-outfit", nil)
	req.Header.Set("X-Request-ID", "req-9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if !strings.Contains(logs, "stage log") {
		t.Fatalf("handler log missing: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"req-9"`) {
		t.Fatalf("handler log not tagged with request id: %s", logs)
	}
}
