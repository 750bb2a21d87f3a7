package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// WithReadiness hace que la request espere (hasta wait) a que ready se cierre.
// Si vence, la request sigue igual y el handler responde según el estado del cache.
func WithReadiness(ready <-chan struct{}, wait time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if ready == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-ready:
			default:
				t := time.NewTimer(wait)
				select {
				case <-ready:
				case <-t.C:
					logger.From(r.Context()).Warn("cache not ready after wait", logger.Int("wait_ms", int(wait.Milliseconds())))
				case <-r.Context().Done():
				}
				t.Stop()
			}
			next.ServeHTTP(w, r)
		})
	}
}
