package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVisitorStore_BurstThenRefill(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newVisitorStore(60, 2, time.Minute)
	s.now = func() time.Time { return now }

	assert.True(t, s.allow("10.0.0.1"))
	assert.True(t, s.allow("10.0.0.1"))
	assert.False(t, s.allow("10.0.0.1"))
	assert.True(t, s.allow("10.0.0.2"), "other IPs have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, s.allow("10.0.0.1"))
}

func TestVisitorStore_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newVisitorStore(60, 2, time.Minute)
	s.now = func() time.Time { return now }

	s.allow("10.0.0.1")
	s.allow("10.0.0.2")
	assert.Equal(t, 2, s.len())

	now = now.Add(2 * time.Minute)
	s.allow("10.0.0.3")
	assert.Equal(t, 1, s.len())
}

func TestRateLimit_Returns429(t *testing.T) {
	var buf bytes.Buffer
	h := RateLimit(1, 1, newBufferLogger(&buf))(okHandler)

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		r.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded chain", xff: "203.0.113.7, 10.0.0.1", remote: "10.0.0.1:80", want: "203.0.113.7"},
		{name: "real ip", xri: "203.0.113.8", remote: "10.0.0.1:80", want: "203.0.113.8"},
		{name: "garbage forwarded falls back", xff: "nope", remote: "198.51.100.2:1234", want: "198.51.100.2"},
		{name: "remote without port", remote: "198.51.100.3", want: "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
