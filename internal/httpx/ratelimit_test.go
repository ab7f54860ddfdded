package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if do("1.2.3.4:1000") != http.StatusOK || do("1.2.3.4:1000") != http.StatusOK {
		t.Fatal("requests under the limit rejected")
	}
	if do("1.2.3.4:1000") != http.StatusTooManyRequests {
		t.Fatal("request over the limit allowed")
	}
	// Other clients have their own window.
	if do("5.6.7.8:1000") != http.StatusOK {
		t.Fatal("unrelated client rejected")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("execution order %v", order)
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if got := ClientKey(req); got != "10.0.0.1" {
		t.Fatalf("got %q, want remote host", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientKey(req); got != "203.0.113.9" {
		t.Fatalf("got %q, want first forwarded hop", got)
	}
}
