package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/cachegate/internal/metrics"
)

// Prober verifica la liveness de un único endpoint.
// nil => Reachable. Cualquier error (conexión, protocolo, timeout) => Unreachable.
type Prober interface {
	Probe(ctx context.Context, ep Endpoint, timeout time.Duration) error
}

// ProberFunc adapta una función a Prober.
type ProberFunc func(ctx context.Context, ep Endpoint, timeout time.Duration) error

func (f ProberFunc) Probe(ctx context.Context, ep Endpoint, timeout time.Duration) error {
	return f(ctx, ep, timeout)
}

type dialProber struct {
	dial DialFunc
}

// NewDialProber crea un Prober que abre una conexión con dial, envía PING y la cierra
// siempre, en cualquier camino de salida.
func NewDialProber(dial DialFunc) Prober {
	return &dialProber{dial: dial}
}

func (p *dialProber) Probe(ctx context.Context, ep Endpoint, timeout time.Duration) (err error) {
	defer func() { metrics.ObserveProbe(ep.String(), err == nil) }()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b, err := p.dial(ctx, ep)
	if err != nil {
		return fmt.Errorf("probe %s: dial: %w", ep, err)
	}
	defer b.Close()

	if err := b.Ping(ctx); err != nil {
		return fmt.Errorf("probe %s: ping: %w", ep, err)
	}
	return nil
}
