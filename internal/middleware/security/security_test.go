package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public peer ignores headers", "203.0.113.5:4000", "1.2.3.4", "", "203.0.113.5"},
		{"trusted proxy forwards first hop", "10.0.0.2:4000", "198.51.100.7, 10.0.0.2", "", "198.51.100.7"},
		{"trusted proxy falls back to real ip", "127.0.0.1:4000", "", "198.51.100.8", "198.51.100.8"},
		{"garbage forwarded header", "10.0.0.2:4000", "not-an-ip", "", "10.0.0.2"},
		{"no port", "192.168.1.9", "", "", "192.168.1.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Errorf("InvalidIPAttempts = %d, want 1", d.GetMetrics().InvalidIPAttempts)
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	r := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	r.RemoteAddr = "203.0.113.5:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")

	if got := d.ExtractClientIP(r); got != "203.0.113.5" {
		t.Fatalf("untrusted peer: got %q", got)
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Errorf("trusted peer: got %q, want forwarded client", got)
	}
	if err := d.AddTrustedProxy("proxy"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		method, target, agent string
		want                  bool
	}{
		{http.MethodGet, "/api/budget/2025-03", "Mozilla/5.0", false},
		{http.MethodGet, "/api/budget/2025-03", "curl/8.0", false},
		{http.MethodGet, "/.env", "", true},
		{http.MethodGet, "/api/sales?limit=1%20union%20select", "", true},
		{http.MethodGet, "/", "sqlmap/1.7", true},
		{"TRACE", "/", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.target, nil)
		r.Header.Set("User-Agent", tt.agent)
		if got := d.DetectSuspiciousRequest(r); got != tt.want {
			t.Errorf("%s %s (%s) = %v, want %v", tt.method, tt.target, tt.agent, got, tt.want)
		}
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("headers = %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", rr.Header().Get("Strict-Transport-Security"))
	}
}
