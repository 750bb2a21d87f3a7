package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - CACHE / CLUSTER
// =================================================================================

// Endpoint identifica un nodo del cluster ("host:port").
func Endpoint(v string) zap.Field { return zap.String("endpoint", v) }

// Attempt es el número de intento (1-based) dentro de una política de retry.
func Attempt(v int) zap.Field { return zap.Int("attempt", v) }

// State es el estado del cliente de cache (ready, degraded, ...).
func State(v string) zap.Field { return zap.String("state", v) }

// Delay es la espera aplicada antes del siguiente intento.
func Delay(v time.Duration) zap.Field { return zap.Duration("delay", v) }

// Kind es la clase de error según la taxonomía del cliente.
func Kind(v string) zap.Field { return zap.String("kind", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func Key(v string) zap.Field { return zap.String("key", v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
