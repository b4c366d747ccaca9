package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "ledger/internal/log"
)

type observation struct {
	method, route string
	code          int
}

type recordingObserver struct{ got []observation }

func (o *recordingObserver) ObserveHTTP(method, route string, code int, _ time.Duration) {
	o.got = append(o.got, observation{method, route, code})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	})
	obs := &recordingObserver{}
	m := NewMiddleware(applog.Discard(), nil, func(*http.Request) string { return "POST /entries" }, obs)

	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/entries", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, []observation{{"POST", "POST /entries", http.StatusCreated}}, obs.got)
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	incoming := uuid.NewString()
	m := NewMiddleware(applog.Discard(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	obs := &recordingObserver{}
	m := NewMiddleware(applog.Discard(), nil, nil, obs)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Len(t, obs.got, 1)
	assert.Equal(t, http.StatusOK, obs.got[0].code)
	assert.Equal(t, "/x", obs.got[0].route)
}
