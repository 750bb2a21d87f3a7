// Package cachetest provee un nodo de cache en memoria para tests de los paquetes
// que consumen *cache.Client (services, router).
package cachetest

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/dropDatabas3/cachegate/internal/cache"
	"github.com/dropDatabas3/cachegate/internal/cache/memory"
)

// ErrRefused simula un nodo caído.
var ErrRefused = fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)

// Node es un cache.Backend en memoria. Con SetDown(true) todas las operaciones
// (incluido el dial) fallan con ErrRefused.
type Node struct {
	mu    sync.Mutex
	store *memory.Store
	down  bool
}

func NewNode() *Node {
	return &Node{store: memory.New()}
}

func (n *Node) SetDown(down bool) {
	n.mu.Lock()
	n.down = down
	n.mu.Unlock()
}

func (n *Node) check() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.down {
		return ErrRefused
	}
	return nil
}

// Value lee directo del nodo, sin pasar por el Client.
func (n *Node) Value(key string) (string, bool) { return n.store.Get(key) }

// Dial es un cache.DialFunc que siempre conecta a este nodo.
func (n *Node) Dial(ctx context.Context, _ cache.Endpoint) (cache.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := n.check(); err != nil {
		return nil, err
	}
	return &conn{n: n}, nil
}

type conn struct{ n *Node }

func (c *conn) Get(_ context.Context, key string) (string, error) {
	if err := c.n.check(); err != nil {
		return "", err
	}
	v, ok := c.n.store.Get(key)
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (c *conn) Set(_ context.Context, key, value string) error {
	if err := c.n.check(); err != nil {
		return err
	}
	c.n.store.Set(key, value)
	return nil
}

func (c *conn) Keys(_ context.Context, pattern string) ([]string, error) {
	if err := c.n.check(); err != nil {
		return nil, err
	}
	return c.n.store.Keys(pattern), nil
}

func (c *conn) Del(_ context.Context, key string) error {
	if err := c.n.check(); err != nil {
		return err
	}
	c.n.store.Delete(key)
	return nil
}

func (c *conn) Ping(context.Context) error { return c.n.check() }

func (c *conn) ClusterInfo(context.Context) (map[string]string, error) {
	if err := c.n.check(); err != nil {
		return nil, err
	}
	return map[string]string{"cluster_state": "ok"}, nil
}

func (c *conn) Asking(context.Context) error { return nil }

func (c *conn) Info(context.Context, string) (string, error) {
	return "used_memory_human:1.00K\r\n", nil
}

func (c *conn) DBSize(context.Context) (int64, error) {
	if err := c.n.check(); err != nil {
		return 0, err
	}
	return int64(c.n.store.Len()), nil
}

func (c *conn) Close() error { return nil }

// NewClient crea un Client contra n, sin esperas reales en el backoff.
// Si connect es true el Client queda Ready (o el test falla).
func NewClient(tb testing.TB, n *Node, connect bool) *cache.Client {
	tb.Helper()
	c, err := cache.New(cache.Options{
		Dial:        n.Dial,
		CallTimeout: time.Second,
		Retry:       cache.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Sleep:       func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	if err != nil {
		tb.Fatalf("cachetest: new client: %v", err)
	}
	tb.Cleanup(func() { _ = c.Close() })
	if connect {
		if err := c.Connect(context.Background()); err != nil {
			tb.Fatalf("cachetest: connect: %v", err)
		}
	}
	return c
}
