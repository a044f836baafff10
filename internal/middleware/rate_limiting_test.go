package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type rateLimiterMock struct {
	keys    []string
	allowed int
}

func (rl *rateLimiterMock) Allow(
	_ context.Context,
	key string,
	_ redis_rate.Limit,
) (*redis_rate.Result, error) {
	rl.keys = append(rl.keys, key)
	return &redis_rate.Result{
		Allowed:    rl.allowed,
		RetryAfter: 30 * time.Second,
	}, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &rateLimiterMock{allowed: 1}
	handlerCalled := false
	handler := RateLimit(limiter, "login", 5, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		}),
	)

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("X-Real-Ip", "109.245.18.12")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rr.Code)
	// limited per client address
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "login||109.245.18.12", limiter.keys[0])
}

func TestRateLimit_Limited(t *testing.T) {
	limiter := &rateLimiterMock{allowed: 0}
	handler := RateLimit(limiter, "login", 5, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		}),
	)

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("X-Real-Ip", "109.245.18.12")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "retry after")
}

func TestRateLimit_LocalClientSharesBucket(t *testing.T) {
	limiter := &rateLimiterMock{allowed: 1}
	handler := RateLimit(limiter, "login", 5, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	// httptest requests come from 192.0.2.1, local addrs map to "localhost"
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "login||localhost", limiter.keys[0])
}
