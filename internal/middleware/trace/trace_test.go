package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"presupuesto/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(log.New(log.Config{Output: &buf}), func(*http.Request) string { return "10.0.0.1" })

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "handling")
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/purchases", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q", seenID)
	}
	if rr.Header().Get(RequestIDHeader) != seenID {
		t.Errorf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), seenID)
	}
	out := buf.String()
	if strings.Count(out, "request_id="+seenID) < 2 {
		t.Errorf("request id not on handler and completion logs: %s", out)
	}
	if !strings.Contains(out, "status_code=201") || !strings.Contains(out, "client_ip=10.0.0.1") {
		t.Errorf("completion log incomplete: %s", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddleware_RequestIDFromHeader(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		header string
		keep   bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, tt.header)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		got := rr.Header().Get(RequestIDHeader)
		if (got == tt.header) != tt.keep {
			t.Errorf("header %q: got id %q, keep=%v", tt.header, got, tt.keep)
		}
	}
}
