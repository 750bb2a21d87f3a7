package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fc *fakeCluster, addrs []string, mutate func(*Options)) (*Client, *recordingSleeper) {
	t.Helper()
	rs := &recordingSleeper{}
	opts := Options{
		Endpoints:   mustEndpoints(addrs...),
		Dial:        fc.dial,
		CallTimeout: time.Second,
		Sleep:       rs.sleep,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, rs
}

func connected(t *testing.T, fc *fakeCluster, addrs ...string) (*Client, *recordingSleeper) {
	t.Helper()
	c, rs := newTestClient(t, fc, addrs, nil)
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, StateReady, c.State())
	return c, rs
}

func degradeByFailure(t *testing.T, c *Client, n *fakeNode) {
	t.Helper()
	n.setFailAlways(errRefused)
	require.NoError(t, c.Set(context.Background(), "trigger", "x"))
	require.Equal(t, StateDegraded, c.State())
	n.setFailAlways(nil)
}

func TestNew_RequiresDial(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	c, err := New(Options{Dial: newFakeCluster().dial})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.Topology().ActiveEndpoint().String())
	assert.Equal(t, StateUninitialized, c.State())
}

func TestClient_NotInitialized(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := newTestClient(t, fc, []string{"n1:6379"}, nil)

	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestClient_ConnectPicksFirstReachable(t *testing.T) {
	fc := newFakeCluster("up:2")
	c, _ := connected(t, fc, "down:1", "up:2")

	topo := c.Topology()
	assert.True(t, topo.Reachable)
	assert.Equal(t, "up:2", topo.ActiveEndpoint().String())
}

func TestClient_SetGet_Ready(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	require.NoError(t, c.Set(ctx, "k", "v"))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	stored, ok := fc.node("n1:6379").value("k")
	require.True(t, ok)
	assert.Equal(t, "v", stored)

	_, err = c.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestClient_Delete_AbsentKey(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	ctx := context.Background()

	require.NoError(t, c.Delete(ctx, "nope"))

	degradeByFailure(t, c, fc.node("n1:6379"))
	require.NoError(t, c.Delete(ctx, "nope"))
	require.NoError(t, c.Delete(ctx, "nope"))
}

func TestClient_DegradesAfterRetryBudget(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, rs := connected(t, fc, "n1:6379")
	n := fc.node("n1:6379")
	n.setFailAlways(errRefused)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	assert.Equal(t, StateDegraded, c.State())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, rs.delays)
	assert.GreaterOrEqual(t, rs.total(), 1400*time.Millisecond)

	callsBefore, _, _, _ := n.snapshot()
	assert.Equal(t, 3, callsBefore)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	callsAfter, _, _, _ := n.snapshot()
	assert.Equal(t, callsBefore, callsAfter, "degraded get must not touch the cluster")
}

func TestClient_BackoffRealTime(t *testing.T) {
	if testing.Short() {
		t.Skip("real backoff")
	}
	fc := newFakeCluster("n1:6379")
	c, _ := newTestClient(t, fc, []string{"n1:6379"}, func(o *Options) { o.Sleep = nil })
	require.NoError(t, c.Connect(context.Background()))
	fc.node("n1:6379").setFailAlways(errRefused)

	start := time.Now()
	require.NoError(t, c.Set(context.Background(), "k", "v"))
	assert.GreaterOrEqual(t, time.Since(start), 1400*time.Millisecond)
	assert.Equal(t, StateDegraded, c.State())
}

func TestClient_KeysDegraded(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	degradeByFailure(t, c, fc.node("n1:6379"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "b", "2"))
	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Delete(ctx, "trigger"))

	keys, err := c.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	entries, err := c.GetMany(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, entries)
}

func TestClient_InvalidNotRetried(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, rs := connected(t, fc, "n1:6379")
	ctx := context.Background()

	_, err := c.Get(ctx, "")
	require.Error(t, err)
	assert.Equal(t, KindInvalid, Classify(err))
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Error(t, c.Set(ctx, "  ", "v"))
	assert.Error(t, c.Delete(ctx, ""))

	calls, _, _, _ := fc.node("n1:6379").snapshot()
	assert.Zero(t, calls)
	assert.Empty(t, rs.delays)
	assert.Equal(t, StateReady, c.State())
}

func TestClient_HardFailurePropagates(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, rs := connected(t, fc, "n1:6379")
	n := fc.node("n1:6379")
	n.failNext = []error{errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")}

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindOther, opErr.Kind)
	assert.Equal(t, "get", opErr.Op)

	calls, _, _, _ := n.snapshot()
	assert.Equal(t, 1, calls)
	assert.Empty(t, rs.delays)
	assert.Equal(t, StateReady, c.State())
}

func TestClient_TransientErrorRecovers(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, rs := connected(t, fc, "n1:6379")
	n := fc.node("n1:6379")
	n.failNext = []error{errors.New("CLUSTERDOWN The cluster is down"), context.DeadlineExceeded}

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, rs.delays)
	v, _ := n.value("k")
	assert.Equal(t, "v", v)
}

func TestClient_CallerCancelDoesNotDegrade(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	fc.node("n1:6379").setFailAlways(errRefused)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Set(ctx, "k", "v")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateReady, c.State())
}

func TestClient_FollowsMoved(t *testing.T) {
	fc := newFakeCluster("node-a:7000", "node-b:7000")
	c, rs := connected(t, fc, "node-a:7000")
	fc.node("node-a:7000").failNext = []error{errors.New("MOVED 3999 node-b:7000")}

	require.NoError(t, c.Set(context.Background(), "k", "v"))

	nb := fc.node("node-b:7000")
	v, ok := nb.value("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, dials, closed, asking := nb.snapshot()
	assert.Equal(t, 1, dials)
	assert.Equal(t, 1, closed, "redirect connection must be closed")
	assert.Zero(t, asking)
	assert.Empty(t, rs.delays, "redirect does not consume retry budget")
	assert.Equal(t, StateReady, c.State())
}

func TestClient_FollowsAsk(t *testing.T) {
	fc := newFakeCluster("node-a:7000", "node-b:7000")
	c, _ := connected(t, fc, "node-a:7000")
	nb := fc.node("node-b:7000")
	nb.data["k"] = "remote"
	fc.node("node-a:7000").failNext = []error{errors.New("ASK 12 node-b:7000")}

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", v)

	_, _, closed, asking := nb.snapshot()
	assert.Equal(t, 1, asking)
	assert.Equal(t, 1, closed)
}

func TestClient_RedirectFailureFallsThroughToRetry(t *testing.T) {
	fc := newFakeCluster("node-a:7000")
	c, rs := connected(t, fc, "node-a:7000")
	fc.node("node-a:7000").failNext = []error{errors.New("MOVED 1 node-gone:7000")}

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, rs.delays)
	v, _ := fc.node("node-a:7000").value("k")
	assert.Equal(t, "v", v)
}

func TestClient_RedirectTargetReplyKeepsKind(t *testing.T) {
	fc := newFakeCluster("node-a:7000", "node-b:7000")
	c, rs := connected(t, fc, "node-a:7000")
	fc.node("node-a:7000").failNext = []error{errors.New("MOVED 3999 node-b:7000")}
	fc.node("node-b:7000").failNext = []error{errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")}

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, KindOther, Classify(err))
	assert.Empty(t, rs.delays)
	assert.Equal(t, StateReady, c.State())
}

func TestClient_ClusterStateFail(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	fc.node("n1:6379").clusterInfo = map[string]string{"cluster_state": "fail", "cluster_slots_ok": "0"}
	c, _ := newTestClient(t, fc, []string{"n1:6379"}, nil)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindClusterUnavailable, Classify(err))
	assert.Equal(t, StateDegraded, c.State())

	_, _, closed, _ := fc.node("n1:6379").snapshot()
	assert.Equal(t, 2, closed, "probe and rejected connection are closed")
}

func TestClient_ConnectNoneReachable(t *testing.T) {
	fc := newFakeCluster()
	c, _ := newTestClient(t, fc, []string{"a:1", "b:2"}, nil)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindUnreachable, Classify(err))
	assert.Equal(t, StateDegraded, c.State())
	assert.Equal(t, "a:1", c.Topology().ActiveEndpoint().String())

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestClient_ReprobePromotes(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	n := fc.node("n1:6379")

	n.setFailAlways(errRefused)
	require.NoError(t, c.Set(context.Background(), "k", "v"))
	require.Equal(t, StateDegraded, c.State())

	n.mu.Lock()
	n.pingErr = errRefused
	n.mu.Unlock()
	assert.False(t, c.Reprobe(context.Background()))
	assert.Equal(t, StateDegraded, c.State())

	n.mu.Lock()
	n.pingErr = nil
	n.failAlways = nil
	n.mu.Unlock()
	assert.True(t, c.Reprobe(context.Background()))
	assert.Equal(t, StateReady, c.State())

	// lo escrito en degraded no se reconcilia
	_, err := c.Get(context.Background(), "k")
	assert.True(t, IsNotFound(err))
}

func TestClient_ReconnectDuringRetry(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	n := fc.node("n1:6379")
	var (
		c      *Client
		delays []time.Duration
	)
	c, _ = newTestClient(t, fc, []string{"n1:6379"}, func(o *Options) {
		o.Sleep = func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			if len(delays) == 1 {
				// otro goroutine degrada y re-conecta mientras Set espera el backoff
				c.setState(StateDegraded)
				require.True(t, c.Reprobe(ctx))
			}
			return ctx.Err()
		}
	})
	require.NoError(t, c.Connect(context.Background()))
	n.failNext = []error{errRefused}

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	v, ok := n.value("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Len(t, delays, 1, "next attempt uses the new backend")
	assert.Equal(t, StateReady, c.State())

	_, _, closed, _ := n.snapshot()
	assert.GreaterOrEqual(t, closed, 1, "replaced backend is closed")
}

func TestClient_ClosedBackendIsRetried(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, rs := connected(t, fc, "n1:6379")
	old := c.activeBackend()
	require.NoError(t, old.Close())

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	assert.Equal(t, StateDegraded, c.State(), "closed client is a transport failure")
	assert.Len(t, rs.delays, 3)

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestClient_StartReprobe(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	degradeByFailure(t, c, fc.node("n1:6379"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartReprobe(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return c.State() == StateReady }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_Prefix(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := newTestClient(t, fc, []string{"n1:6379"}, func(o *Options) { o.Prefix = "app:" })
	require.NoError(t, c.Connect(context.Background()))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	_, ok := fc.node("n1:6379").value("app:k")
	assert.True(t, ok)

	keys, err := c.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestClient_Stats(t *testing.T) {
	fc := newFakeCluster("n1:6379")
	c, _ := connected(t, fc, "n1:6379")
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v"))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", st.Driver)
	assert.Equal(t, "ready", st.State)
	assert.Equal(t, int64(1), st.Keys)
	assert.Equal(t, "1.00K", st.UsedMemory)
	assert.Equal(t, "n1:6379", st.ActiveEndpoint)

	degradeByFailure(t, c, fc.node("n1:6379"))
	st, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", st.Driver)
	assert.Equal(t, int64(1), st.Keys) // "trigger"

	_, err = c.Get(ctx, "trigger")
	require.NoError(t, err)
	_, err = c.Get(ctx, "nope")
	require.True(t, IsNotFound(err))

	after, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.FallbackHits+1, after.FallbackHits)
	assert.Equal(t, st.FallbackMisses+1, after.FallbackMisses)
}
