package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cachegate/internal/cache"
)

func TestParseInfo(t *testing.T) {
	raw := "# Cluster\r\ncluster_state:ok\r\ncluster_slots_ok:16384\r\n\r\ngarbage\r\n"
	m := ParseInfo(raw)
	assert.Equal(t, "ok", m["cluster_state"])
	assert.Equal(t, "16384", m["cluster_slots_ok"])
	assert.Len(t, m, 2)
}

func TestBackend_UnreachableIsClassified(t *testing.T) {
	dial := Dialer(Config{DialTimeout: 200 * time.Millisecond})
	b, err := dial(context.Background(), cache.Endpoint{Host: "127.0.0.1", Port: 1})
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = b.Ping(ctx)
	require.Error(t, err)
	kind := cache.Classify(err)
	assert.True(t, kind == cache.KindUnreachable || kind == cache.KindTimeout, "kind=%s", kind)
}

func TestDialer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Dialer(Config{})(ctx, cache.Endpoint{Host: "127.0.0.1", Port: 6379})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackend_ClosedClientIsRetryable(t *testing.T) {
	b, err := Dialer(Config{})(context.Background(), cache.Endpoint{Host: "127.0.0.1", Port: 1})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, cache.KindUnreachable, cache.Classify(err))
	assert.True(t, cache.Classify(err).Retryable())
	assert.NotErrorIs(t, err, cache.ErrNotFound)
}
