package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/cachegate/internal/cache/memory"
)

var errRefused = errors.New("dial tcp: connect: connection refused")

// errClientClosed imita lo que el adapter redis retorna tras Close.
var errClientClosed = fmt.Errorf("%w: redis: client is closed", net.ErrClosed)

// fakeNode simula un nodo del cluster.
type fakeNode struct {
	mu          sync.Mutex
	data        map[string]string
	failNext    []error // se consumen uno por operación de datos
	failAlways  error
	pingErr     error
	clusterInfo map[string]string
	clusterErr  error

	calls  int // operaciones de datos recibidas
	asking int
	dials  int
	closed int
}

func newFakeNode() *fakeNode {
	return &fakeNode{data: map[string]string{}}
}

func (n *fakeNode) dataOp() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if len(n.failNext) > 0 {
		err := n.failNext[0]
		n.failNext = n.failNext[1:]
		return err
	}
	return n.failAlways
}

func (n *fakeNode) setFailAlways(err error) {
	n.mu.Lock()
	n.failAlways = err
	n.mu.Unlock()
}

func (n *fakeNode) snapshot() (calls, dials, closed, asking int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls, n.dials, n.closed, n.asking
}

func (n *fakeNode) value(k string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.data[k]
	return v, ok
}

type fakeConn struct {
	n      *fakeNode
	closed atomic.Bool
}

// op falla como un cliente cerrado después de Close.
func (c *fakeConn) op() error {
	if c.closed.Load() {
		return errClientClosed
	}
	return c.n.dataOp()
}

func (c *fakeConn) Get(_ context.Context, key string) (string, error) {
	if err := c.op(); err != nil {
		return "", err
	}
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	v, ok := c.n.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (c *fakeConn) Set(_ context.Context, key, value string) error {
	if err := c.op(); err != nil {
		return err
	}
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	c.n.data[key] = value
	return nil
}

func (c *fakeConn) Keys(_ context.Context, pattern string) ([]string, error) {
	if err := c.op(); err != nil {
		return nil, err
	}
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	var out []string
	for k := range c.n.data {
		if memory.Match(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *fakeConn) Del(_ context.Context, key string) error {
	if err := c.op(); err != nil {
		return err
	}
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	delete(c.n.data, key)
	return nil
}

func (c *fakeConn) Ping(context.Context) error {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	return c.n.pingErr
}

func (c *fakeConn) ClusterInfo(context.Context) (map[string]string, error) {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	if c.n.clusterErr != nil {
		return nil, c.n.clusterErr
	}
	if c.n.clusterInfo == nil {
		return map[string]string{"cluster_state": "ok"}, nil
	}
	return c.n.clusterInfo, nil
}

func (c *fakeConn) Asking(context.Context) error {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	c.n.asking++
	return nil
}

func (c *fakeConn) Info(context.Context, string) (string, error) {
	return "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n", nil
}

func (c *fakeConn) DBSize(context.Context) (int64, error) {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	return int64(len(c.n.data)), nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	c.n.closed++
	return nil
}

// fakeCluster resuelve endpoints a nodos; un endpoint sin nodo rechaza la conexión.
type fakeCluster struct {
	mu    sync.Mutex
	nodes map[string]*fakeNode
}

func newFakeCluster(addrs ...string) *fakeCluster {
	fc := &fakeCluster{nodes: map[string]*fakeNode{}}
	for _, a := range addrs {
		fc.nodes[a] = newFakeNode()
	}
	return fc
}

func (fc *fakeCluster) node(addr string) *fakeNode {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.nodes[addr]
}

func (fc *fakeCluster) dial(ctx context.Context, ep Endpoint) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := fc.node(ep.String())
	if n == nil {
		return nil, fmt.Errorf("%s: %w", ep, errRefused)
	}
	n.mu.Lock()
	n.dials++
	n.mu.Unlock()
	return &fakeConn{n: n}, nil
}

// countingResolver cuenta las resoluciones.
type countingResolver struct {
	mu    sync.Mutex
	calls int
	inner TopologyResolver
	delay time.Duration
}

func (r *countingResolver) Resolve(ctx context.Context, eps []Endpoint) (Topology, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.inner.Resolve(ctx, eps)
}

func (r *countingResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// recordingSleeper registra las esperas sin dormir.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t time.Duration
	for _, d := range s.delays {
		t += d
	}
	return t
}

func mustEndpoints(addrs ...string) []Endpoint {
	out := make([]Endpoint, 0, len(addrs))
	for _, a := range addrs {
		ep, err := ParseEndpoint(a)
		if err != nil {
			panic(err)
		}
		out = append(out, ep)
	}
	return out
}
