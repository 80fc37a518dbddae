package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.7:5555", "10.0.0.7"},
		{"remote without port", nil, "10.0.0.7", "10.0.0.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:80", "1.2.3.4"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 1.2.3.4 "}, "10.0.0.1:80", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.1:80", "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	extra := []string{"https://arena.example.com", "https://*.brawl.gg"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"http://localhost.evil.com", false},
		{"https://arena.example.com", true},
		{"https://arena.example.com.evil", false},
		{"https://eu.brawl.gg", true},
		{"https://brawl.gg", false},
		{"http://eu.brawl.gg", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedOrigin(tt.origin, extra))
		})
	}
}

func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	assert.True(t, wrl.Allow("a"))
	assert.True(t, wrl.Allow("a"))
	assert.False(t, wrl.Allow("a"))
	assert.True(t, wrl.Allow("b"), "limits are per IP")
	assert.Equal(t, 2, wrl.GetConnectionCount("a"))

	wrl.Release("a")
	assert.Equal(t, 1, wrl.GetConnectionCount("a"))
	assert.True(t, wrl.Allow("a"))
	assert.Equal(t, uint64(1), wrl.GetStats()["rejected"])

	wrl.Release("unknown")
	assert.Equal(t, 0, wrl.GetConnectionCount("unknown"))
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, isLoopbackAddr("127.0.0.1:6060"))
	assert.True(t, isLoopbackAddr("localhost:6060"))
	assert.True(t, isLoopbackAddr("[::1]:6060"))
	assert.False(t, isLoopbackAddr("0.0.0.0:6060"))
	assert.False(t, isLoopbackAddr(":6060"))
	assert.False(t, isLoopbackAddr("127.0.0.1"))
}
