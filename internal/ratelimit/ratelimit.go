package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type LimiterConfig struct {
	RPS   int
	Burst int
}

// evaler is the slice of *redis.Client the limiter uses.
type evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type RateLimiter struct {
	redis  evaler
	prefix string
	config LimiterConfig
}

func New(rdb *redis.Client, prefix string, cfg LimiterConfig) *RateLimiter {
	return &RateLimiter{redis: rdb, prefix: prefix, config: cfg}
}

func (rl *RateLimiter) Middleware(keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.prefix + ":" + keyFunc(r)
			allowed, err := rl.allow(r.Context(), key)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "rate limiter error")
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":` + strconv.Itoa(status) + `}`))
}

// tokenBucket keeps one bucket per key in a Redis hash. The key lives only
// as long as a full refill takes, so idle sessions clean themselves up.
// KEYS[1] = key, ARGV[1] = burst, ARGV[2] = refill per second, ARGV[3] = now (ms).
// Returns 1 if allowed, 0 if not.
const tokenBucket = `
local burst = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
local refill = math.floor(math.max(0, now - ts) / 1000 * rate)
if refill > 0 then
  tokens = math.min(burst, tokens + refill)
  ts = now
end
local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], math.max(1, math.ceil(burst / math.max(rate, 1))))
return allowed
`

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := rl.redis.Eval(ctx, tokenBucket, []string{key}, rl.config.Burst, rl.config.RPS, now).Result()
	if err != nil {
		slog.Error("redis eval error", "key", key, "error", err)
		return false, err
	}
	var allowed int64
	switch v := res.(type) {
	case int64:
		allowed = v
	case string:
		allowed, _ = strconv.ParseInt(v, 10, 64)
	}
	slog.Debug("token bucket", "key", key, "allowed", allowed, "max", rl.config.Burst, "rps", rl.config.RPS)
	return allowed == 1, nil
}

func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyBySessionOrIP prefers the dashboard session header.
func KeyBySessionOrIP(r *http.Request) string {
	if s := r.Header.Get("X-Session-ID"); s != "" {
		return "session:" + s
	}
	return KeyByIP(r)
}
