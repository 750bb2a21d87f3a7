package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// TopologyResolver descubre el endpoint activo del cluster.
type TopologyResolver interface {
	Resolve(ctx context.Context, endpoints []Endpoint) (Topology, error)
}

// Resolver prueba los endpoints en orden y elige el primero alcanzable.
// Determinista: con los mismos resultados de probe elige siempre el menor índice.
type Resolver struct {
	prober  Prober
	timeout time.Duration
	log     *zap.Logger
}

// NewResolver crea un Resolver. timeout es el límite por probe.
func NewResolver(p Prober, timeout time.Duration) *Resolver {
	return &Resolver{
		prober:  p,
		timeout: timeout,
		log:     logger.Named("cache").With(logger.Component("resolver")),
	}
}

// Resolve retorna la topología con el primer endpoint alcanzable como activo.
// Si ninguno responde, el activo es el primero y Reachable=false; no es un error,
// el caller decide (el Client pasa a Degraded). Solo falla si no hay endpoints
// o si ctx se cancela.
func (r *Resolver) Resolve(ctx context.Context, endpoints []Endpoint) (Topology, error) {
	if len(endpoints) == 0 {
		return Topology{}, ErrNoEndpoints
	}
	topo := Topology{Endpoints: append([]Endpoint(nil), endpoints...)}

	for i, ep := range topo.Endpoints {
		if err := ctx.Err(); err != nil {
			return topo, err
		}
		err := r.prober.Probe(ctx, ep, r.timeout)
		if err == nil {
			topo.Active = i
			topo.Reachable = true
			r.log.Info("active endpoint selected", logger.Endpoint(ep.String()), logger.Int("index", i))
			return topo, nil
		}
		r.log.Debug("endpoint unreachable", logger.Endpoint(ep.String()), logger.Err(err))
	}

	r.log.Warn("no reachable endpoint, keeping first as active",
		logger.Endpoint(topo.Endpoints[0].String()),
		logger.Count(len(topo.Endpoints)),
	)
	return topo, nil
}
