package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func remoteAddr(r *http.Request) string { return r.RemoteAddr }

func TestLimiterBurstPerClient(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 0.001, Burst: 2})

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "other clients have their own bucket")
	assert.Equal(t, 2, rl.ActiveClients())
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	hits := 0
	rl := NewLimiter(Config{RequestsPerSecond: 0.5, Burst: 1, OnLimit: func() { hits++ }})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(remoteAddr, nil, http.MethodPost)(ok)

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/entries", nil)
		req.RemoteAddr = "10.0.0.9"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	limited := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code, "GET is not limited")
	assert.Equal(t, 1, hits)
}

func TestMiddlewareCustomHandler(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 0.001, Burst: 1})
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}
	h := rl.Middleware(remoteAddr, onLimit)(http.NotFoundHandler())

	for i, want := range []int{http.StatusNotFound, http.StatusTeapot} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}
