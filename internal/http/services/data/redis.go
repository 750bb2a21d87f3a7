// Package data contiene los services de /api/data (cache y postgres).
package data

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/cachegate/internal/cache"
	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/http/services/common"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// RedisService expone el cache como un store key/value.
type RedisService struct {
	cache common.Cache
	now   func() time.Time
}

func NewRedisService(c common.Cache) *RedisService {
	return &RedisService{cache: c, now: time.Now}
}

// State es el estado actual del cliente de cache (para X-Cache-Mode).
func (s *RedisService) State() cache.State { return s.cache.State() }

func (s *RedisService) Save(ctx context.Context, req dto.SetItemRequest) (dto.RedisItem, error) {
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" || req.Value == "" {
		return dto.RedisItem{}, httperrors.ErrMissingFields.WithDetail("key and value are required")
	}
	if err := s.cache.Set(ctx, req.Key, req.Value); err != nil {
		return dto.RedisItem{}, err
	}
	now := s.now().UTC()
	logger.From(ctx).Debug("cache item saved", logger.Key(req.Key), logger.State(s.cache.State().String()))
	return dto.RedisItem{Key: req.Key, Value: req.Value, CreatedAt: &now}, nil
}

func (s *RedisService) List(ctx context.Context) ([]dto.RedisItem, error) {
	entries, err := s.cache.GetMany(ctx, "*")
	if err != nil {
		return nil, err
	}
	out := make([]dto.RedisItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.RedisItem{Key: e.Key, Value: e.Value})
	}
	return out, nil
}

func (s *RedisService) Get(ctx context.Context, key string) (dto.RedisItem, error) {
	v, err := s.cache.Get(ctx, key)
	if err != nil {
		return dto.RedisItem{}, err
	}
	return dto.RedisItem{Key: key, Value: v}, nil
}

// Delete es idempotente: borrar una key inexistente no es error.
func (s *RedisService) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

func (s *RedisService) Stats(ctx context.Context) (cache.Stats, error) {
	return s.cache.Stats(ctx)
}
