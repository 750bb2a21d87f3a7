// Package cache implementa el cliente de cache resiliente del servicio.
//
// El cliente opera contra un cluster Redis que puede estar parcialmente caído:
//
//   - Resolver: parsea los endpoints configurados y elige el nodo activo (primer nodo que responde PING).
//   - Client: Get/Set/Keys/Delete con retry + backoff exponencial; al agotar el presupuesto pasa a
//     Degraded y sirve desde un FallbackStore en memoria (nunca se reconcilia con el cluster).
//   - RedirectFollower: ante MOVED/ASK reejecuta la operación una vez en el nodo indicado.
//   - Initializer: bootstrap single-flight con future de readiness y seed opcional de datos.
//
// El backend concreto (go-redis) vive en internal/cache/redis y se inyecta vía DialFunc,
// así este paquete se testea con fakes en memoria.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backend es una conexión a UN nodo del cluster.
// Los errores se devuelven crudos (MOVED, CLUSTERDOWN, errores de red); el Client los clasifica.
type Backend interface {
	// Get retorna ErrNotFound si la key no existe.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Del no falla si la key no existe.
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error

	// ClusterInfo retorna los pares de CLUSTER INFO (cluster_state, cluster_slots_ok, ...).
	ClusterInfo(ctx context.Context) (map[string]string, error)
	// Asking envía ASKING antes de reejecutar una operación tras un redirect ASK.
	Asking(ctx context.Context) error
	// Info retorna la sección INFO cruda ("memory", "stats", ...).
	Info(ctx context.Context, section string) (string, error)
	DBSize(ctx context.Context) (int64, error)

	Close() error
}

// DialFunc crea un Backend para el endpoint indicado. No debe bloquear esperando al nodo.
type DialFunc func(ctx context.Context, ep Endpoint) (Backend, error)

// State es el estado del cliente resiliente.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Stats contiene estadísticas del cache.
type Stats struct {
	Driver         string   `json:"driver"` // "redis" | "fallback"
	State          string   `json:"state"`
	ActiveEndpoint string   `json:"active_endpoint"`
	Endpoints      []string `json:"endpoints"`
	Keys           int64    `json:"keys"`
	FallbackKeys   int      `json:"fallback_keys"`
	FallbackHits   int64    `json:"fallback_hits"`
	FallbackMisses int64    `json:"fallback_misses"`
	UsedMemory     string   `json:"used_memory,omitempty"`
}

// Options configura el Client. Solo Endpoints y Dial son requeridos en la práctica;
// el resto tiene defaults (ver withDefaults).
type Options struct {
	Endpoints []Endpoint
	Dial      DialFunc
	// RedirectDial abre las conexiones cortas del RedirectFollower; nil => Dial.
	RedirectDial DialFunc

	// Prober para el Resolver; nil => NewDialProber(Dial).
	Prober Prober
	// Resolver reemplaza la resolución de topología (tests); nil => NewResolver(Prober, ProbeTimeout).
	Resolver TopologyResolver

	// Prefix se antepone a todas las keys ("<prefix>:<key>").
	Prefix string

	CallTimeout  time.Duration // 0 => 3s
	ProbeTimeout time.Duration // 0 => CallTimeout
	Retry        RetryPolicy   // zero => DefaultRetryPolicy()

	// Sleep reemplaza la espera del backoff (tests).
	Sleep SleepFunc

	// Logger; nil => logger.Named("cache").
	Logger *zap.Logger
}
