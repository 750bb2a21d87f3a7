// Package health contiene el service para health checks.
package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/cachegate/internal/cache"
	"github.com/dropDatabas3/cachegate/internal/http/dto"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	CacheState func() cache.State
	DBCheck    func(ctx context.Context) error // nil => postgres DISABLED
	Ready      <-chan struct{}                 // se cierra al terminar el primer bootstrap
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Check arma el estado de los componentes. cache es UP sii el cliente está Ready.
func (s *Service) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	state := cache.StateUninitialized
	if s.deps.CacheState != nil {
		state = s.deps.CacheState()
	}

	resp := dto.HealthResponse{
		Status:    dto.StatusUp,
		Services:  map[string]string{"cache": dto.StatusDown},
		CacheMode: state.String(),
		Timestamp: time.Now().UTC(),
	}
	if state == cache.StateReady {
		resp.Services["cache"] = dto.StatusUp
	} else {
		resp.Status = dto.StatusDegraded
	}

	switch {
	case s.deps.DBCheck == nil:
		resp.Services["postgres"] = dto.StatusDisabled
	default:
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.deps.DBCheck(cctx)
		cancel()
		if err != nil {
			resp.Services["postgres"] = dto.StatusDown
			log.Warn("postgres health check failed", logger.Err(err))
		} else {
			resp.Services["postgres"] = dto.StatusUp
		}
	}
	return resp
}

// Ready indica si terminó la primera corrida de inicialización.
func (s *Service) Ready() dto.ReadyResponse {
	resp := dto.ReadyResponse{Ready: true}
	if s.deps.Ready != nil {
		select {
		case <-s.deps.Ready:
		default:
			resp.Ready = false
		}
	}
	if s.deps.CacheState != nil {
		resp.CacheState = s.deps.CacheState().String()
	}
	return resp
}
