package helpers

import (
	"net/http"

	"github.com/dropDatabas3/cachegate/internal/cache"
)

// HeaderCacheMode marca las respuestas servidas desde el fallback store.
const HeaderCacheMode = "X-Cache-Mode"

// MarkCacheMode setea X-Cache-Mode: degraded si el cliente está Degraded.
// Llamar antes de escribir el status.
func MarkCacheMode(w http.ResponseWriter, st cache.State) {
	if st == cache.StateDegraded {
		w.Header().Set(HeaderCacheMode, "degraded")
	}
}
