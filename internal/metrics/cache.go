package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del cliente de cache. Viven en un paquete aparte para que internal/cache
// y la capa HTTP las compartan sin ciclos de import.

var (
	CacheOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_operations_total",
		Help: "Operaciones contra el cluster por op y resultado (ok|miss|redirect|error)",
	}, []string{"op", "result"})

	CacheRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_retries_total",
		Help: "Intentos fallidos reintentados por op y clase de error",
	}, []string{"op", "kind"})

	CacheFallbackServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_fallback_served_total",
		Help: "Operaciones servidas desde el fallback store en memoria",
	}, []string{"op"})

	CacheRedirects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_redirects_total",
		Help: "Redirects MOVED/ASK seguidos por resultado",
	}, []string{"result"})

	CacheProbes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_probes_total",
		Help: "Probes de nodos por endpoint y resultado (reachable|unreachable)",
	}, []string{"endpoint", "result"})

	CacheState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_client_state",
		Help: "Estado del cliente: 0=uninitialized 1=connecting 2=ready 3=degraded",
	})
)

func ObserveOp(op, result string) { CacheOps.WithLabelValues(op, result).Inc() }

func ObserveRetry(op, kind string) { CacheRetries.WithLabelValues(op, kind).Inc() }

func ObserveFallback(op string) { CacheFallbackServed.WithLabelValues(op).Inc() }

func ObserveRedirect(ok bool) {
	CacheRedirects.WithLabelValues(result(ok, "ok", "error")).Inc()
}

func ObserveProbe(endpoint string, reachable bool) {
	CacheProbes.WithLabelValues(endpoint, result(reachable, "reachable", "unreachable")).Inc()
}

func SetState(v int) { CacheState.Set(float64(v)) }

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// RegisterCache registra las métricas de cache en reg (o en el default si es nil).
// Registrar dos veces no es error.
func RegisterCache(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		CacheOps, CacheRetries, CacheFallbackServed, CacheRedirects, CacheProbes, CacheState,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
