// Package health contiene el controller para health checks.
package health

import (
	"net/http"

	"github.com/dropDatabas3/cachegate/internal/http/helpers"
	svc "github.com/dropDatabas3/cachegate/internal/http/services/health"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	service *svc.Service
}

func NewHealthController(s *svc.Service) *HealthController {
	return &HealthController{service: s}
}

// Health maneja GET /health. Siempre 200: el proceso está vivo aunque el cache no.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Health"))

	resp := c.service.Check(ctx)
	log.Debug("health check completed",
		logger.String("status", resp.Status),
		logger.String("cache_mode", resp.CacheMode),
	)

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Readyz maneja GET /readyz: 503 hasta que termine la primera inicialización.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := c.service.Ready()
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, resp)
}
