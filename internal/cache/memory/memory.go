// Package memory implementa el FallbackStore: el almacén in-process que sirve las
// operaciones mientras el cluster está caído. Vive lo que vive el proceso y nunca
// se reconcilia con el cluster.
package memory

import (
	"sort"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// Store es un mapa key -> value concurrente, sin expiración.
type Store struct {
	c      *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New crea un Store vacío. Sin janitor: las entradas no expiran.
func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *Store) Get(key string) (string, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		s.misses.Add(1)
		return "", false
	}
	str, ok := v.(string)
	if !ok {
		// forma inesperada: se descarta
		s.c.Delete(key)
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return str, true
}

func (s *Store) Set(key, value string) { s.c.Set(key, value, gocache.NoExpiration) }

// Delete es no-op si la key no existe.
func (s *Store) Delete(key string) { s.c.Delete(key) }

// Keys retorna, ordenadas, las keys que matchean el patrón glob estilo Redis.
func (s *Store) Keys(pattern string) []string {
	items := s.c.Items()
	out := make([]string, 0, len(items))
	for k := range items {
		if Match(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int { return s.c.ItemCount() }

// Stats retorna hits y misses acumulados.
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
