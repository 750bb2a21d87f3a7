package data

import (
	"context"
	"strings"

	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
	"github.com/dropDatabas3/cachegate/internal/store/pg"
)

// ItemStore es el repositorio de data_items.
type ItemStore interface {
	SaveItem(ctx context.Context, key, value string) (pg.Item, error)
	ListItems(ctx context.Context) ([]pg.Item, error)
}

// PostgresService guarda/lista items en postgres. Con store nil responde DATABASE_DISABLED.
type PostgresService struct {
	store ItemStore
}

func NewPostgresService(store ItemStore) *PostgresService {
	return &PostgresService{store: store}
}

func (s *PostgresService) Save(ctx context.Context, req dto.SetItemRequest) (pg.Item, error) {
	if s.store == nil {
		return pg.Item{}, httperrors.ErrDatabaseDisabled
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" || req.Value == "" {
		return pg.Item{}, httperrors.ErrMissingFields.WithDetail("key and value are required")
	}
	it, err := s.store.SaveItem(ctx, req.Key, req.Value)
	if err != nil {
		logger.From(ctx).Error("postgres save failed", logger.Key(req.Key), logger.Err(err))
		return pg.Item{}, err
	}
	return it, nil
}

func (s *PostgresService) List(ctx context.Context) ([]pg.Item, error) {
	if s.store == nil {
		return nil, httperrors.ErrDatabaseDisabled
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		logger.From(ctx).Error("postgres list failed", logger.Err(err))
		return nil, err
	}
	return items, nil
}
