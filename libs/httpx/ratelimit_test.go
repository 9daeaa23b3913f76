package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow(context.Background(), "1.2.3.4"); ok {
		t.Fatal("third hit should be rejected")
	}
	if ok, _ := rl.Allow(context.Background(), "5.6.7.8"); !ok {
		t.Fatal("other client should be allowed")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := rl.Allow(context.Background(), "1.2.3.4"); !ok {
		t.Fatal("hit after window reset should be allowed")
	}
	if _, ok := rl.visitors["5.6.7.8"]; ok {
		t.Fatal("expired visitor should have been swept")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit_FailOpenAndClosed(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	open := RateLimit(failingLimiter{}, nil, true)(next)
	rw := httptest.NewRecorder()
	open.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("fail-open expected 200, got %d", rw.Code)
	}

	closed := RateLimit(failingLimiter{}, nil, false)(next)
	rw = httptest.NewRecorder()
	closed.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed expected 503, got %d", rw.Code)
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, time.Minute), nil, false)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rw.Code)
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id echoed, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Fatalf("expected incoming id to be kept, got %q", seen)
	}
}
