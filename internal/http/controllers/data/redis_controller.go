// Package data contiene los controllers de /api/data y /api/cache.
package data

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/http/helpers"
	svc "github.com/dropDatabas3/cachegate/internal/http/services/data"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// RedisController maneja /api/data/redis y /api/cache/stats.
type RedisController struct {
	service *svc.RedisService
}

func NewRedisController(s *svc.RedisService) *RedisController {
	return &RedisController{service: s}
}

// Create maneja POST /api/data/redis
func (c *RedisController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RedisController.Create"))

	var req dto.SetItemRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	item, err := c.service.Save(ctx, req)
	if err != nil {
		log.Debug("save failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusCreated, item)
}

// List maneja GET /api/data/redis
func (c *RedisController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RedisController.List"))

	items, err := c.service.List(ctx)
	if err != nil {
		log.Warn("list failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, items)
}

// Get maneja GET /api/data/redis/{key}
func (c *RedisController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	item, err := c.service.Get(ctx, chi.URLParam(r, "key"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, item)
}

// Delete maneja DELETE /api/data/redis/{key}
func (c *RedisController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	if err := c.service.Delete(ctx, key); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "key deleted: " + key})
}

// Stats maneja GET /api/cache/stats
func (c *RedisController) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RedisController.Stats"))

	st, err := c.service.Stats(ctx)
	if err != nil {
		log.Warn("stats failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, st)
}
