// Package router arma el handler HTTP de la API sobre chi.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	datactrl "github.com/dropDatabas3/cachegate/internal/http/controllers/data"
	healthctrl "github.com/dropDatabas3/cachegate/internal/http/controllers/health"
	usersctrl "github.com/dropDatabas3/cachegate/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	mw "github.com/dropDatabas3/cachegate/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Redis    *datactrl.RedisController
	Postgres *datactrl.PostgresController
	Users    *usersctrl.Controller
	Health   *healthctrl.HealthController

	// Metrics es el handler de /metrics. nil => ruta no registrada.
	Metrics http.Handler

	// Ready se cierra cuando termina la primera inicialización del cache.
	// Las rutas de cache esperan hasta ReadinessWait.
	Ready         <-chan struct{}
	ReadinessWait time.Duration
}

// New construye el handler con el chain base: recover, request id, logging y métricas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if deps.Health != nil {
		r.Get("/health", deps.Health.Health)
		r.Get("/readyz", deps.Health.Readyz)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Rutas que dependen del cache.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithReadiness(deps.Ready, deps.ReadinessWait))

		if c := deps.Redis; c != nil {
			r.Route("/api/data/redis", func(r chi.Router) {
				r.Post("/", c.Create)
				r.Get("/", c.List)
				r.Get("/{key}", c.Get)
				r.Delete("/{key}", c.Delete)
			})
			r.Get("/api/cache/stats", c.Stats)
		}
		if c := deps.Users; c != nil {
			r.Route("/api/users", func(r chi.Router) {
				r.Post("/", c.Create)
				r.Get("/", c.List)
				r.Get("/{id}", c.Get)
				r.Delete("/{id}", c.Delete)
			})
		}
	})

	if c := deps.Postgres; c != nil {
		r.Route("/api/data/postgres", func(r chi.Router) {
			r.Post("/", c.Create)
			r.Get("/", c.List)
		})
	}

	return r
}
