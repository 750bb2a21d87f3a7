package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }),
		mk("A"), mk("B"), mk("C"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"A", "B", "C", "h"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		WithRequestID(), WithLogging(), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "INTERNAL_SERVER_ERROR"))
}

func TestWithReadiness(t *testing.T) {
	ready := make(chan struct{})
	called := make(chan struct{}, 1)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called <- struct{}{} }),
		WithReadiness(ready, time.Second))

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		close(done)
	}()

	select {
	case <-called:
		t.Fatal("handler ran before ready")
	case <-time.After(20 * time.Millisecond):
	}
	close(ready)
	<-done
	assert.Len(t, called, 1)
}

func TestWithReadiness_WaitExpires(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		WithReadiness(make(chan struct{}), 10*time.Millisecond))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRegisterMetrics_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg})
	require.NoError(t, err)
	require.NotNil(t, h)
	_, err = RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg})
	require.NoError(t, err)

	app := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) }), WithMetrics())
	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/data/redis", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/api/data/redis",status="201"}`)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/data/redis", normalizePath("/api/data/redis"))
	assert.Equal(t, "/api/data/redis/:key", normalizePath("/api/data/redis/user:42"))
	assert.Equal(t, "/api/users/:param", normalizePath("/api/users/8f14e45f-ceea-467f-a1b6-0a1b2c3d4e5f"))
	assert.Equal(t, "/x/:param", normalizePath("/x/123?q=1"))
}
