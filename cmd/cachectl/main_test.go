package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path string
	body         map[string]string
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) last() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1]
}

func newAPI(t *testing.T) (*httptest.Server, *recorder) {
	reqs := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		reqs.mu.Lock()
		reqs.reqs = append(reqs.reqs, rec)
		reqs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/data/redis/k1":
			w.Header().Set("X-Cache-Mode", "degraded")
			_, _ = io.WriteString(w, `{"key":"k1","value":"v1","created_at":null}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/data/redis/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"code":"NOT_FOUND","message":"resource not found","detail":"key not found"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/data/redis":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"key":"k1","value":"v1","created_at":"2024-01-01T00:00:00Z"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/data/redis":
			_, _ = io.WriteString(w, `[{"key":"a","value":"1","created_at":null},{"key":"b","value":"2","created_at":null}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = io.WriteString(w, `{"status":"UP","services":{"cache":"UP","postgres":"DISABLED"},"cache_mode":"ready"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/users":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"u-1","name":"Ana","email":"a@x.io","created_at":"2024-01-01T00:00:00Z"}`)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestGet(t *testing.T) {
	srv, _ := newAPI(t)

	out, err := run(t, srv, "get", "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1\n(cache mode: degraded)\n", out)

	out, err = run(t, srv, "--out", "json", "get", "k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k1","value":"v1","created_at":null}`, out)

	_, err = run(t, srv, "get", "missing")
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestSetKeysDel(t *testing.T) {
	srv, reqs := newAPI(t)

	out, err := run(t, srv, "set", "k1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "OK k1\n", out)
	assert.Equal(t, map[string]string{"key": "k1", "value": "v1"}, reqs.last().body)

	out, err = run(t, srv, "keys")
	require.NoError(t, err)
	assert.Equal(t, "a\t1\nb\t2\n", out)

	_, err = run(t, srv, "del", "a b")
	require.NoError(t, err)
	last := reqs.last()
	assert.Equal(t, http.MethodDelete, last.method)
	assert.Equal(t, "/api/data/redis/a%20b", last.path)
}

func TestHealthAndUsers(t *testing.T) {
	srv, reqs := newAPI(t)

	out, err := run(t, srv, "health")
	require.NoError(t, err)
	assert.Equal(t, "status=UP cache=UP postgres=DISABLED mode=ready\n", out)

	_, err = run(t, srv, "users", "create", "--name", "Ana")
	assert.Error(t, err)

	out, err = run(t, srv, "users", "create", "--name", "Ana", "--email", "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "u-1\n", out)
	assert.Equal(t, "Ana", reqs.last().body["name"])
}

func TestInvalidOut(t *testing.T) {
	srv, _ := newAPI(t)
	_, err := run(t, srv, "--out", "yaml", "health")
	assert.Error(t, err)
}
