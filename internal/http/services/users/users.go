// Package users guarda registros de usuario como JSON en el cache.
package users

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cachegate/internal/cache"
	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/http/services/common"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

const keyPrefix = "user:"

type Service struct {
	cache common.Cache
	now   func() time.Time
	newID func() string
}

func NewService(c common.Cache) *Service {
	return &Service{cache: c, now: time.Now, newID: uuid.NewString}
}

func (s *Service) State() cache.State { return s.cache.State() }

func (s *Service) Create(ctx context.Context, req dto.CreateUserRequest) (dto.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return dto.User{}, httperrors.ErrMissingFields.WithDetail("name and email are required")
	}

	u := dto.User{
		ID:        s.newID(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: s.now().UTC(),
	}
	b, err := json.Marshal(u)
	if err != nil {
		return dto.User{}, httperrors.ErrInternalServerError.WithCause(err)
	}
	if err := s.cache.Set(ctx, keyPrefix+u.ID, string(b)); err != nil {
		return dto.User{}, err
	}
	return u, nil
}

// List retorna todos los usuarios. Entradas corruptas se omiten.
func (s *Service) List(ctx context.Context) ([]dto.User, error) {
	entries, err := s.cache.GetMany(ctx, keyPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]dto.User, 0, len(entries))
	for _, e := range entries {
		var u dto.User
		if err := json.Unmarshal([]byte(e.Value), &u); err != nil {
			logger.From(ctx).Warn("skip malformed user record", logger.Key(e.Key), logger.Err(err))
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (dto.User, error) {
	key, err := userKey(id)
	if err != nil {
		return dto.User{}, err
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if cache.IsNotFound(err) {
			return dto.User{}, httperrors.ErrNotFound.WithDetail("user not found")
		}
		return dto.User{}, err
	}
	var u dto.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return dto.User{}, httperrors.ErrInternalServerError.WithDetail("malformed user record").WithCause(err)
	}
	return u, nil
}

// Delete retorna NOT_FOUND si el usuario no existe.
func (s *Service) Delete(ctx context.Context, id string) error {
	key, err := userKey(id)
	if err != nil {
		return err
	}
	if _, err := s.cache.Get(ctx, key); err != nil {
		if cache.IsNotFound(err) {
			return httperrors.ErrNotFound.WithDetail("user not found")
		}
		return err
	}
	return s.cache.Delete(ctx, key)
}

func userKey(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", httperrors.ErrInvalidParameter.WithDetail("id must be a UUID")
	}
	return keyPrefix + u.String(), nil
}
