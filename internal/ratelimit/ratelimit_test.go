package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	val  interface{}
	err  error
	keys []string
}

func (f *fakeRedis) Eval(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	f.keys = append(f.keys, keys...)
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.val)
	}
	return cmd
}

func serve(rl *RateLimiter, req *http.Request) *httptest.ResponseRecorder {
	h := rl.Middleware(KeyBySessionOrIP)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func TestMiddlewareAllows(t *testing.T) {
	fr := &fakeRedis{val: int64(1)}
	rl := &RateLimiter{redis: fr, prefix: "skycast", config: LimiterConfig{RPS: 5, Burst: 10}}
	req := httptest.NewRequest(http.MethodGet, "/api/weather", nil)
	req.Header.Set("X-Session-ID", "tab-1")

	if rw := serve(rl, req); rw.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rw.Code)
	}
	if len(fr.keys) != 1 || fr.keys[0] != "skycast:session:tab-1" {
		t.Fatalf("unexpected keys %v", fr.keys)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	rl := &RateLimiter{redis: &fakeRedis{val: int64(0)}, prefix: "skycast"}
	rw := serve(rl, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rw.Code)
	}
	if rw.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After")
	}
}

func TestMiddlewareRedisError(t *testing.T) {
	rl := &RateLimiter{redis: &fakeRedis{err: errors.New("down")}, prefix: "skycast"}
	rw := serve(rl, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestKeyByIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := KeyByIP(req); got != "10.1.2.3" {
		t.Fatalf("unexpected key %q", got)
	}
}
