// Package common contiene las dependencias compartidas por los services HTTP.
package common

import (
	"context"

	"github.com/dropDatabas3/cachegate/internal/cache"
)

// Cache es la parte de *cache.Client que usan los services.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Delete(ctx context.Context, key string) error
	GetMany(ctx context.Context, pattern string) ([]cache.Entry, error)
	Stats(ctx context.Context) (cache.Stats, error)
	State() cache.State
}

var _ Cache = (*cache.Client)(nil)
