package ratelimit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dropship-storefront/internal/gateway"
)

func newLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, limit, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newLimiter(t, 3)

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "sign-in", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", i+1)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "sign-in", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)

	allowed, _, err = limiter.Allow(ctx, "sign-in", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "other clients have their own window")

	allowed, _, err = limiter.Allow(ctx, "contact", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "scopes are independent")

	mr.FastForward(time.Minute + time.Second)

	allowed, _, err = limiter.Allow(ctx, "sign-in", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "window resets after expiry")
}

func TestLimiter_Middleware(t *testing.T) {
	limiter, mr := newLimiter(t, 1)
	handler := limiter.Middleware("contact")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = "192.0.2.7:51234"
		return req
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest())
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	t.Run("fails open without redis", func(t *testing.T) {
		mr.Close()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest())
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:4000"
	assert.Equal(t, "198.51.100.4", ClientID(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "10.0.0.1", ClientID(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientID(req))
}

func TestLimiter_BehindGateway(t *testing.T) {
	limiter, _ := newLimiter(t, 1)
	backend := httptest.NewServer(limiter.Middleware("sign-in")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	defer backend.Close()

	proxy := gateway.NewServiceProxy(backend.URL, backend.Client())

	var statuses []int
	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/admin/auth/sign-in", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))

		resp, err := proxy.ForwardRequest(context.Background(), req, "/auth/sign-in")
		require.NoError(t, err)
		_ = resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{
		http.StatusOK,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, statuses, "a client-supplied X-Forwarded-For must not open a new window")
}
