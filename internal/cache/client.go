package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cachegate/internal/cache/memory"
	"github.com/dropDatabas3/cachegate/internal/metrics"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

const defaultCallTimeout = 3 * time.Second

// Entry es un par key/value.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Client es el cliente de cache resiliente.
//
// Uninitialized -> Connecting -> {Ready, Degraded}; luego Ready <-> Degraded según el
// resultado de las operaciones (Ready -> Degraded) y de los re-probes (Degraded -> Ready).
// Se construye una vez al arrancar el proceso y se pasa a quien lo use.
type Client struct {
	endpoints   []Endpoint
	dial        DialFunc
	resolver    TopologyResolver
	redirect    *RedirectFollower
	retry       RetryPolicy
	sleep       SleepFunc
	prefix      string
	callTimeout time.Duration
	log         *zap.Logger

	state atomic.Int32

	connectMu sync.Mutex // serializa Connect / Reprobe

	mu      sync.RWMutex
	backend Backend
	topo    Topology

	fbOnce sync.Once
	fb     *memory.Store

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New construye el Client en estado Uninitialized. No abre conexiones: eso lo hace Connect
// (normalmente vía Initializer).
func New(opts Options) (*Client, error) {
	if opts.Dial == nil {
		return nil, fmt.Errorf("%w: dial func is required", ErrInvalid)
	}
	eps := opts.Endpoints
	if len(eps) == 0 {
		var err error
		if eps, err = ParseEndpoints(""); err != nil {
			return nil, err
		}
	}

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = callTimeout
	}

	resolver := opts.Resolver
	if resolver == nil {
		prober := opts.Prober
		if prober == nil {
			prober = NewDialProber(opts.Dial)
		}
		resolver = NewResolver(prober, probeTimeout)
	}

	redirectDial := opts.RedirectDial
	if redirectDial == nil {
		redirectDial = opts.Dial
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("cache")
	}

	c := &Client{
		endpoints:   append([]Endpoint(nil), eps...),
		dial:        opts.Dial,
		resolver:    resolver,
		redirect:    NewRedirectFollower(redirectDial),
		retry:       opts.Retry.withDefaults(),
		sleep:       sleep,
		prefix:      strings.TrimSuffix(opts.Prefix, ":"),
		callTimeout: callTimeout,
		log:         log.With(logger.Component("client")),
		topo:        Topology{Endpoints: append([]Endpoint(nil), eps...)},
		stop:        make(chan struct{}),
	}
	metrics.SetState(int(StateUninitialized))
	return c, nil
}

// State retorna el estado actual.
func (c *Client) State() State { return State(c.state.Load()) }

// Topology retorna una copia de la topología vigente.
func (c *Client) Topology() Topology {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.topo
	t.Endpoints = append([]Endpoint(nil), t.Endpoints...)
	return t
}

func (c *Client) setState(s State) State {
	prev := State(c.state.Swap(int32(s)))
	metrics.SetState(int(s))
	return prev
}

func (c *Client) fallback() *memory.Store {
	c.fbOnce.Do(func() { c.fb = memory.New() })
	return c.fb
}

func (c *Client) activeBackend() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// ───────────────────── conexión ─────────────────────

// Connect resuelve la topología, abre el Backend del endpoint activo y verifica que el
// cluster pueda servir (CLUSTER INFO). Si algo falla el Client queda Degraded y se
// retorna el error; las operaciones siguen funcionando contra el FallbackStore.
func (c *Client) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.state.CompareAndSwap(int32(StateUninitialized), int32(StateConnecting)) {
		metrics.SetState(int(StateConnecting))
	}

	err := c.connect(ctx)
	if err != nil {
		c.degrade("connect", err)
		return err
	}
	if prev := c.setState(StateReady); prev != StateReady {
		c.log.Info("cache ready",
			logger.Endpoint(c.Topology().ActiveEndpoint().String()),
			logger.String("from", prev.String()),
		)
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	topo, err := c.resolver.Resolve(ctx, c.endpoints)
	if err != nil {
		return &OpError{Op: "connect", Kind: Classify(err), Err: err}
	}
	c.mu.Lock()
	c.topo = topo
	c.mu.Unlock()

	if !topo.Reachable {
		return &OpError{
			Op:   "connect",
			Kind: KindUnreachable,
			Err:  fmt.Errorf("no reachable endpoint among %s", strings.Join(topo.addrs(), ",")),
		}
	}

	ep := topo.ActiveEndpoint()
	b, err := c.dial(ctx, ep)
	if err != nil {
		return &OpError{Op: "connect", Kind: Classify(err), Err: fmt.Errorf("dial %s: %w", ep, err)}
	}
	if err := c.checkCluster(ctx, b); err != nil {
		_ = b.Close()
		return err
	}

	c.mu.Lock()
	old := c.backend
	c.backend = b
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// checkCluster consulta CLUSTER INFO. cluster_state:fail => ClusterUnavailable.
// Un nodo standalone (sin cluster) responde sin cluster_state y se acepta.
func (c *Client) checkCluster(ctx context.Context, b Backend) error {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	info, err := b.ClusterInfo(cctx)
	if err != nil {
		return &OpError{Op: "cluster-info", Kind: Classify(err), Err: err}
	}
	if st := info["cluster_state"]; st == "fail" {
		return &OpError{
			Op:   "cluster-info",
			Kind: KindClusterUnavailable,
			Err:  fmt.Errorf("cluster_state:%s (slots ok %s)", st, info["cluster_slots_ok"]),
		}
	}
	return nil
}

func (c *Client) degrade(op string, cause error) {
	prev := c.setState(StateDegraded)
	if prev == StateDegraded {
		return
	}
	c.log.Warn("cache degraded, serving from fallback store",
		logger.Op(op),
		logger.String("from", prev.String()),
		logger.Err(cause),
	)
}

// Reprobe intenta promover un Client Degraded a Ready. Retorna true si queda Ready.
// No hace nada en otros estados.
func (c *Client) Reprobe(ctx context.Context) bool {
	switch c.State() {
	case StateReady:
		return true
	case StateDegraded:
	default:
		return false
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	if c.State() != StateDegraded {
		return c.State() == StateReady
	}
	if err := c.connect(ctx); err != nil {
		c.log.Debug("reprobe failed", logger.Err(err))
		return false
	}
	c.setState(StateReady)
	c.log.Info("cache promoted back to ready", logger.Endpoint(c.Topology().ActiveEndpoint().String()))
	return true
}

// StartReprobe lanza el loop de re-probe periódico hasta que ctx se cancele o se llame Close.
func (c *Client) StartReprobe(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-t.C:
				if c.State() == StateDegraded {
					c.Reprobe(ctx)
				}
			}
		}
	}()
}

// Close detiene el re-probe y cierra la conexión activa.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()

	c.mu.Lock()
	b := c.backend
	c.backend = nil
	c.mu.Unlock()
	if b != nil {
		return b.Close()
	}
	return nil
}

// ───────────────────── operaciones ─────────────────────

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Client) unkey(k string) string {
	if c.prefix == "" {
		return k
	}
	return strings.TrimPrefix(k, c.prefix+":")
}

func invalid(op, key, msg string) error {
	return &OpError{Op: op, Key: key, Kind: KindInvalid, Err: fmt.Errorf("%w: %s", ErrInvalid, msg)}
}

// Get retorna el valor de key. ErrNotFound (vía errors.Is) si no existe.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", invalid("get", key, "key is required")
	}
	full := c.key(key)
	res, err := c.do(ctx, "get", key,
		func(ctx context.Context, b Backend) (any, error) { return b.Get(ctx, full) },
		func(fb *memory.Store) (any, error) {
			v, ok := fb.Get(key)
			if !ok {
				return nil, ErrNotFound
			}
			return v, nil
		},
	)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// Set guarda value en key. Repetirlo con los mismos argumentos es idempotente.
func (c *Client) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("set", key, "key is required")
	}
	full := c.key(key)
	_, err := c.do(ctx, "set", key,
		func(ctx context.Context, b Backend) (any, error) { return nil, b.Set(ctx, full, value) },
		func(fb *memory.Store) (any, error) { fb.Set(key, value); return nil, nil },
	)
	return err
}

// Keys retorna las keys que matchean pattern (glob estilo Redis), ordenadas.
// pattern vacío equivale a "*".
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	full := c.key(pattern)
	res, err := c.do(ctx, "keys", "",
		func(ctx context.Context, b Backend) (any, error) {
			ks, err := b.Keys(ctx, full)
			if err != nil {
				return nil, err
			}
			out := make([]string, len(ks))
			for i, k := range ks {
				out[i] = c.unkey(k)
			}
			sort.Strings(out)
			return out, nil
		},
		func(fb *memory.Store) (any, error) { return fb.Keys(pattern), nil },
	)
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// Delete borra key. Borrar una key inexistente no es error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("delete", key, "key is required")
	}
	full := c.key(key)
	_, err := c.do(ctx, "delete", key,
		func(ctx context.Context, b Backend) (any, error) { return nil, b.Del(ctx, full) },
		func(fb *memory.Store) (any, error) { fb.Delete(key); return nil, nil },
	)
	return err
}

// GetMany lista todas las keys que matchean pattern junto a su valor.
// Las keys que desaparecen o fallan individualmente se omiten.
func (c *Client) GetMany(ctx context.Context, pattern string) ([]Entry, error) {
	keys, err := c.Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, err := c.Get(ctx, k)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !IsNotFound(err) {
				c.log.Debug("skip key", logger.Key(k), logger.Err(err))
			}
			continue
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}

// Stats retorna estadísticas del store que está sirviendo.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	topo := c.Topology()
	st := Stats{
		Driver:         "redis",
		State:          c.State().String(),
		ActiveEndpoint: topo.ActiveEndpoint().String(),
		Endpoints:      topo.addrs(),
		FallbackKeys:   c.fallback().Len(),
	}
	st.FallbackHits, st.FallbackMisses = c.fallback().Stats()

	b := c.activeBackend()
	if c.State() != StateReady || b == nil {
		st.Driver = "fallback"
		st.Keys = int64(st.FallbackKeys)
		return st, nil
	}

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	n, err := b.DBSize(cctx)
	if err != nil {
		return st, &OpError{Op: "stats", Kind: Classify(err), Err: err}
	}
	st.Keys = n
	if info, err := b.Info(cctx, "memory"); err == nil {
		st.UsedMemory = parseInfoField(info, "used_memory_human")
	}
	return st, nil
}

func parseInfoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			return v
		}
	}
	return ""
}

// do ejecuta op contra el cluster aplicando la política de retry; al agotar el
// presupuesto degrada y resuelve con fb. Solo los errores no reintentables llegan al caller.
func (c *Client) do(ctx context.Context, name, key string, op operation, fb func(*memory.Store) (any, error)) (any, error) {
	switch c.State() {
	case StateUninitialized, StateConnecting:
		return nil, &OpError{Op: name, Key: key, Kind: KindOther, Err: ErrNotInitialized}
	case StateDegraded:
		return c.serveFallback(name, key, fb)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		// se relee en cada intento: un reconnect concurrente cierra el Backend anterior
		b := c.activeBackend()
		if b == nil {
			c.degrade(name, errors.New("no active backend"))
			return c.serveFallback(name, key, fb)
		}

		res, err := c.call(ctx, b, op)
		kind := Classify(err)

		if err != nil && kind == KindRedirect {
			metrics.ObserveOp(name, "redirect")
			res, err = c.followRedirect(ctx, err, op)
			kind = Classify(err)
			if err != nil && (kind.Retryable() || kind == KindRedirect || errors.Is(err, errRedirectNotFollowed)) {
				// el follower no llegó a servir: cuenta como intento fallido.
				// Una respuesta del nodo destino (WRONGTYPE, ...) conserva su clase.
				kind = KindUnreachable
			}
		}

		switch {
		case err == nil:
			metrics.ObserveOp(name, "ok")
			return res, nil
		case kind == KindNotFound:
			metrics.ObserveOp(name, "miss")
			return nil, &OpError{Op: name, Key: key, Kind: KindNotFound, Err: ErrNotFound}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !kind.Retryable():
			metrics.ObserveOp(name, "error")
			c.log.Error("cache operation failed", logger.Op(name), logger.Key(key), logger.Kind(kind.String()), logger.Err(err))
			return nil, &OpError{Op: name, Key: key, Kind: kind, Err: err}
		}

		lastErr = err
		delay := c.retry.Delay(attempt)
		metrics.ObserveRetry(name, kind.String())
		c.log.Warn("cache operation failed, backing off",
			logger.Op(name),
			logger.Attempt(attempt+1),
			logger.Kind(kind.String()),
			logger.Delay(delay),
			logger.Err(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.degrade(name, lastErr)
	return c.serveFallback(name, key, fb)
}

func (c *Client) call(ctx context.Context, b Backend, op operation) (any, error) {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return op(cctx, b)
}

func (c *Client) followRedirect(ctx context.Context, redirectErr error, op operation) (any, error) {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.redirect.Follow(cctx, redirectErr, op)
}

func (c *Client) serveFallback(name, key string, fb func(*memory.Store) (any, error)) (any, error) {
	metrics.ObserveFallback(name)
	res, err := fb(c.fallback())
	if err != nil {
		if IsNotFound(err) {
			return nil, &OpError{Op: name, Key: key, Kind: KindNotFound, Err: err}
		}
		return nil, &OpError{Op: name, Key: key, Kind: Classify(err), Err: err}
	}
	return res, nil
}
