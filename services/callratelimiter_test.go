package services

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallRateLimiter(t *testing.T) {
	tests := []struct {
		name       string
		proxyCount uint
		remoteAddr string
		forwarded  string
		wantKey    string
	}{
		{
			name:       "remote address",
			remoteAddr: "10.0.0.1:1234",
			wantKey:    "10.0.0.1",
		},
		{
			name:       "forwarded behind one proxy",
			proxyCount: 1,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  "192.168.1.1, 172.16.0.1",
			wantKey:    "172.16.0.1",
		},
		{
			name:       "forwarded behind two proxies",
			proxyCount: 2,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  "192.168.1.1, 172.16.0.1",
			wantKey:    "192.168.1.1",
		},
		{
			name:       "missing forward header falls back to remote address",
			proxyCount: 1,
			remoteAddr: "10.0.0.2:1234",
			wantKey:    "10.0.0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewCallRateLimiter(tt.proxyCount, 1, 2)
			now := time.Unix(1700000000, 0)
			limiter.now = func() time.Time { return now }

			req := httptest.NewRequest("GET", "/api/v1/wallet", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			assert.NoError(t, limiter.CheckCallLimit(req, 1))
			assert.NoError(t, limiter.CheckCallLimit(req, 1))
			assert.Error(t, limiter.CheckCallLimit(req, 1), "burst exhausted")

			_, ok := limiter.visitors[tt.wantKey]
			assert.True(t, ok)

			now = now.Add(time.Second)
			assert.NoError(t, limiter.CheckCallLimit(req, 1))
		})
	}
}

func TestCallRateLimiterCost(t *testing.T) {
	limiter := NewCallRateLimiter(0, 1, 5)
	req := httptest.NewRequest("GET", "/", nil)

	assert.NoError(t, limiter.CheckCallLimit(req, 5))
	assert.Error(t, limiter.CheckCallLimit(req, 1))
	assert.Error(t, limiter.CheckCallLimit(req, 6), "cost above burst never passes")

	var nilLimiter *CallRateLimiter
	assert.NoError(t, nilLimiter.CheckCallLimit(req, 100))
}

func TestCallRateLimiterCleanup(t *testing.T) {
	limiter := NewCallRateLimiter(0, 10, 10)
	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }

	first := httptest.NewRequest("GET", "/", nil)
	first.RemoteAddr = "10.0.0.1:1"
	second := httptest.NewRequest("GET", "/", nil)
	second.RemoteAddr = "10.0.0.2:1"

	assert.NoError(t, limiter.CheckCallLimit(first, 1))
	now = now.Add(2 * time.Minute)
	assert.NoError(t, limiter.CheckCallLimit(second, 1))
	assert.Equal(t, 2, limiter.VisitorCount())

	now = now.Add(2 * time.Minute)
	limiter.cleanupVisitors()
	assert.Equal(t, 1, limiter.VisitorCount())
	_, ok := limiter.visitors["10.0.0.2"]
	assert.True(t, ok)
}
