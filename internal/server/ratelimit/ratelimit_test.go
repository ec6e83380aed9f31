package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/runs", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
		assert.False(t, info.ResetTime.IsZero())
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/runs", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, info.RetryAfter, 6*time.Second)
}

func TestLimiter_DeniedRequestDoesNotConsume(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("127.0.0.1", "/x", "GET")
	require.True(t, allowed)

	_, first := limiter.Allow("127.0.0.1", "/x", "GET")
	_, second := limiter.Allow("127.0.0.1", "/x", "GET")
	// Retry-after stays bounded by one refill interval
	assert.LessOrEqual(t, second.RetryAfter, time.Minute)
	assert.InDelta(t, first.RetryAfter.Seconds(), second.RetryAfter.Seconds(), 1)
}

func TestLimiter_ClientLists(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		client  string
		allowed bool
	}{
		{
			name:    "whitelisted",
			config:  &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, Whitelist: map[string]bool{"127.0.0.1": true}},
			client:  "127.0.0.1",
			allowed: true,
		},
		{
			name:    "blacklisted",
			config:  &Config{Enabled: true, DefaultLimit: 1000, DefaultWindow: time.Minute, Blacklist: map[string]bool{"192.168.1.1": true}},
			client:  "192.168.1.1",
			allowed: false,
		},
		{
			name:    "disabled",
			config:  &Config{Enabled: false},
			client:  "127.0.0.1",
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(tt.config)
			defer limiter.Stop()

			for i := 0; i < 50; i++ {
				allowed, info := limiter.Allow(tt.client, "/test", "GET")
				require.Equal(t, tt.allowed, allowed, "request %d", i+1)
				assert.Zero(t, info.Limit)
			}
		})
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/tailor", Method: "POST", Limit: 5, Window: time.Hour, Burst: 5},
		},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/tailor", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/tailor", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 5, info.Limit)

	// Other clients and endpoints have their own buckets
	allowed, _ = limiter.Allow("127.0.0.2", "/api/tailor", "POST")
	assert.True(t, allowed)
	allowed, info = limiter.Allow("127.0.0.1", "/api/runs", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_PrefixSharesBucket(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/export/", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
		},
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("127.0.0.1", "/api/export/pdf", "POST")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("127.0.0.1", "/api/export/docx", "POST")
	require.True(t, allowed)

	allowed, info := limiter.Allow("127.0.0.1", "/api/export/markdown", "POST")
	assert.False(t, allowed, "every export format draws from one bucket")
	assert.Positive(t, info.RetryAfter)
}

func TestLimiter_Burst(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/export/", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/api/export/pdf", "POST")
		require.True(t, allowed, "burst request %d", i+1)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/api/export/pdf", "POST")
	assert.False(t, allowed)
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("127.0.0.1", "/test", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 4; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/test", "GET")
	}
	require.Len(t, limiter.buckets, 4)

	limiter.cleanupBuckets(time.Now().Add(-time.Hour))
	assert.Len(t, limiter.buckets, 4, "recently used buckets survive")

	limiter.cleanupBuckets(time.Now().Add(time.Second))
	assert.Empty(t, limiter.buckets)
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()
	require.NotNil(t, limiter)

	allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{"/api/tailor", "POST", 20, false},
		{"/api/tailor/stream", "POST", 20, false},
		{"/api/export/docx", "POST", 100, false},
		{"/health", "GET", 0, false},
		{"/api/health", "GET", 0, false},
		{"/api/tailor", "OPTIONS", 0, false},
		{"/api/tailor", "GET", 0, true},
		{"/api/runs/abc", "GET", 0, true},
		{"/api/exports", "POST", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")
	t.Setenv("RATE_LIMIT_BLACKLIST", "")
	t.Setenv("RATE_LIMIT_CLEANUP_INTERVAL", "soon")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval, "malformed values keep the default")
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestMatchEndpoint_LongestPrefix(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/", Method: "POST", Limit: 1000, Window: time.Minute},
		{Path: "/api/export/", Method: "POST", Limit: 100, Window: time.Minute},
		{Path: "/api/export/pdf", Method: "POST", Limit: 10, Window: time.Minute},
	}

	assert.Equal(t, 10, MatchEndpoint("/api/export/pdf", "POST", configs).Limit)
	assert.Equal(t, 100, MatchEndpoint("/api/export/docx", "POST", configs).Limit)
	assert.Equal(t, 1000, MatchEndpoint("/api/extract-cv", "POST", configs).Limit)
}
