package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_AllowsThenBlocks(t *testing.T) {
	lim := NewLimiter(rate.Limit(2), 2, time.Minute)
	h := lim.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		h.ServeHTTP(rec, req)
		if rec.Code != 200 {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", rec.Code)
	}
}

func TestLimiter_CleanupDropsIdle(t *testing.T) {
	lim := NewLimiter(rate.Limit(1), 1, -time.Second)
	lim.get("10.0.0.1")
	lim.get("10.0.0.2")
	if n := lim.Cleanup(); n != 2 {
		t.Fatalf("want 2 dropped, got %d", n)
	}
}

func TestLimiter_KeysByClient(t *testing.T) {
	lim := NewLimiter(rate.Limit(1), 1, time.Minute)
	h := lim.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		if rec.Code != 200 {
			t.Fatalf("%s: want 200, got %d", addr, rec.Code)
		}
	}
}
