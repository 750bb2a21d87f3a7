package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// DefaultSeed son los datos de ejemplo que se cargan si el store arranca vacío.
func DefaultSeed() []Entry {
	return []Entry{
		{Key: "redis_key_1", Value: "This is sample data 1 in Redis"},
		{Key: "redis_key_2", Value: "This is sample data 2 in Redis"},
	}
}

// InitOptions configura el Initializer.
type InitOptions struct {
	// Seed se escribe (best-effort) cuando el store está vacío tras conectar. nil => sin seed.
	Seed []Entry
	// Sleep reemplaza la espera entre reintentos (tests).
	Sleep SleepFunc
}

// Initializer orquesta el arranque del Client: resolver topología, conectar y sembrar datos.
// Es single-flight: los callers concurrentes esperan la misma ejecución.
type Initializer struct {
	client *Client
	seed   []Entry
	sleep  SleepFunc
	log    *zap.Logger

	sf        singleflight.Group
	succeeded atomic.Bool

	readyOnce sync.Once
	ready     chan struct{}
	result    atomic.Bool
}

func NewInitializer(c *Client, opts InitOptions) *Initializer {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Initializer{
		client: c,
		seed:   append([]Entry(nil), opts.Seed...),
		sleep:  sleep,
		log:    logger.Named("cache").With(logger.Component("initializer")),
		ready:  make(chan struct{}),
	}
}

// Initialize intenta llevar el Client a Ready hasta maxRetries veces, esperando retryDelay
// entre intentos. Retorna false si no lo logra; el Client queda usable en Degraded.
// Nunca entra en pánico ni termina el proceso.
//
// El arranque compartido no depende del ctx de ningún caller: un caller cancelado
// retorna false sin cortar la ejecución que esperan los demás. Se detiene con Client.Close.
func (i *Initializer) Initialize(ctx context.Context, maxRetries int, retryDelay time.Duration) bool {
	if i.succeeded.Load() {
		return true
	}
	ch := i.sf.DoChan("bootstrap", func() (any, error) {
		if i.succeeded.Load() {
			return true, nil
		}
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		go func() {
			select {
			case <-i.client.stop:
				cancel()
			case <-bctx.Done():
			}
		}()

		ok := i.run(bctx, maxRetries, retryDelay)
		if ok {
			i.succeeded.Store(true)
		}
		i.result.Store(ok)
		i.readyOnce.Do(func() { close(i.ready) })
		return ok, nil
	})
	select {
	case r := <-ch:
		return r.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

func (i *Initializer) run(ctx context.Context, maxRetries int, retryDelay time.Duration) bool {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	start := time.Now()

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := i.client.Connect(ctx)
		if err == nil {
			i.log.Info("cache initialized",
				logger.Attempt(attempt),
				logger.DurationMs(time.Since(start).Milliseconds()),
			)
			i.seedIfEmpty(ctx)
			return true
		}
		i.log.Warn("cache initialization attempt failed",
			logger.Attempt(attempt),
			logger.Int("max_retries", maxRetries),
			logger.Err(err),
		)
		if attempt == maxRetries {
			break
		}
		if err := i.sleep(ctx, retryDelay); err != nil {
			break
		}
	}

	i.log.Warn("cache initialization gave up, running degraded",
		logger.State(i.client.State().String()),
	)
	return false
}

// seedIfEmpty es best-effort: los errores se loguean y se ignoran.
func (i *Initializer) seedIfEmpty(ctx context.Context) {
	if len(i.seed) == 0 {
		return
	}
	keys, err := i.client.Keys(ctx, "*")
	if err != nil {
		i.log.Debug("seed skipped", logger.Err(err))
		return
	}
	if len(keys) > 0 {
		return
	}
	n := 0
	for _, e := range i.seed {
		if err := i.client.Set(ctx, e.Key, e.Value); err != nil {
			i.log.Debug("seed entry failed", logger.Key(e.Key), logger.Err(err))
			continue
		}
		n++
	}
	i.log.Info("sample data seeded", logger.Count(n))
}

// Ready se cierra cuando termina la primera ejecución de Initialize (exitosa o no).
func (i *Initializer) Ready() <-chan struct{} { return i.ready }

// Wait bloquea hasta Ready o hasta que ctx expire. Retorna el resultado de la primera
// ejecución.
func (i *Initializer) Wait(ctx context.Context) (bool, error) {
	select {
	case <-i.ready:
		return i.result.Load(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
