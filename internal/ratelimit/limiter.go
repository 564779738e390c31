// Package ratelimit caps how often a client may hit an endpoint using a
// fixed window counter kept in Redis.
package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:ratelimit:"

// The first hit of a window creates the counter and sets its expiry, so a
// window always ends ttl after it started.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('PTTL', KEYS[1])}
`)

type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow records a hit for client in scope. When the limit is exceeded it
// reports false and how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, scope, client string) (bool, time.Duration, error) {
	res, err := hitScript.Run(ctx, l.client, []string{keyPrefix + scope + ":" + client}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}

	return count <= int64(l.limit), ttl, nil
}

// Middleware rejects requests over the limit with 429. A limiter that cannot
// reach Redis lets requests through.
func (l *Limiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := l.Allow(r.Context(), scope, ClientID(r))
			if err != nil {
				l.logger.Warn("rate limiter unavailable", "error", err, "scope", scope)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(retryAfter.Round(time.Second) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests, try again later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies the caller by the last X-Forwarded-For address, the
// hop added by the gateway, falling back to the connection's remote host.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		last := fwd
		if i := strings.LastIndex(fwd, ","); i >= 0 {
			last = fwd[i+1:]
		}
		if last = strings.TrimSpace(last); last != "" {
			return last
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
