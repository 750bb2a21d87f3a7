package dto

import "time"

// Estados de componentes en /health.
const (
	StatusUp       = "UP"
	StatusDown     = "DOWN"
	StatusDegraded = "DEGRADED"
	StatusDisabled = "DISABLED"
)

// HealthResponse es el contrato de /health: {status, services:{cache: UP|DOWN, ...}}.
type HealthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	CacheMode string            `json:"cache_mode"`
	Timestamp time.Time         `json:"timestamp"`
}

// ReadyResponse es la respuesta de /readyz.
type ReadyResponse struct {
	Ready      bool   `json:"ready"`
	CacheState string `json:"cache_state"`
}
