// Package redis implementa cache.Backend sobre go-redis.
//
// Cada Backend habla con UN nodo (redis.NewClient, no ClusterClient): así los errores
// MOVED/ASK llegan crudos al cache.Client, que decide cómo seguirlos.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/cachegate/internal/cache"
)

// Config de conexión compartida por todos los nodos.
type Config struct {
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Backend es una conexión a un nodo.
type Backend struct {
	c *rdb.Client
}

var _ cache.Backend = (*Backend)(nil)

// New crea el Backend para ep. No bloquea esperando al nodo: go-redis conecta lazy.
func New(ep cache.Endpoint, cfg Config) *Backend {
	return &Backend{c: rdb.NewClient(&rdb.Options{
		Addr:         ep.String(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		// el retry lo maneja cache.Client
		MaxRetries: -1,
	})}
}

// Dialer retorna una cache.DialFunc con cfg.
func Dialer(cfg Config) cache.DialFunc {
	return func(ctx context.Context, ep cache.Endpoint) (cache.Backend, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return New(ep, cfg), nil
	}
}

// RedirectDialer es como Dialer pero con una única conexión en el pool, para que
// ASKING y el comando reejecutado viajen por la misma conexión.
func RedirectDialer(cfg Config) cache.DialFunc {
	cfg.PoolSize = 1
	return Dialer(cfg)
}

// mapErr traduce los errores de go-redis que cache.Classify no reconoce.
// Un cliente cerrado (reconnect concurrente) es Unreachable, no un error duro.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rdb.Nil):
		return cache.ErrNotFound
	case errors.Is(err, rdb.ErrClosed):
		return fmt.Errorf("%w: %w", net.ErrClosed, err)
	}
	return err
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.c.Get(ctx, key).Result()
	return v, mapErr(err)
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	return mapErr(b.c.Set(ctx, key, value, 0).Err())
}

func (b *Backend) Keys(ctx context.Context, pattern string) ([]string, error) {
	ks, err := b.c.Keys(ctx, pattern).Result()
	return ks, mapErr(err)
}

func (b *Backend) Del(ctx context.Context, key string) error {
	return mapErr(b.c.Del(ctx, key).Err())
}

func (b *Backend) Ping(ctx context.Context) error {
	return mapErr(b.c.Ping(ctx).Err())
}

// ClusterInfo parsea CLUSTER INFO. Un nodo sin cluster habilitado retorna un mapa vacío.
func (b *Backend) ClusterInfo(ctx context.Context) (map[string]string, error) {
	raw, err := b.c.ClusterInfo(ctx).Result()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "cluster support disabled") {
			return map[string]string{}, nil
		}
		return nil, mapErr(err)
	}
	return ParseInfo(raw), nil
}

func (b *Backend) Asking(ctx context.Context) error {
	return mapErr(b.c.Do(ctx, "ASKING").Err())
}

func (b *Backend) Info(ctx context.Context, section string) (string, error) {
	v, err := b.c.Info(ctx, section).Result()
	return v, mapErr(err)
}

func (b *Backend) DBSize(ctx context.Context) (int64, error) {
	n, err := b.c.DBSize(ctx).Result()
	return n, mapErr(err)
}

func (b *Backend) Close() error { return b.c.Close() }

// ParseInfo parsea la salida "k:v" de INFO / CLUSTER INFO. Ignora comentarios ('#').
func ParseInfo(raw string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
