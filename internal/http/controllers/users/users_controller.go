// Package users contiene el controller de /api/users.
package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/http/helpers"
	svc "github.com/dropDatabas3/cachegate/internal/http/services/users"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

type Controller struct {
	service *svc.Service
}

func NewController(s *svc.Service) *Controller {
	return &Controller{service: s}
}

// Create maneja POST /api/users
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Create"))

	var req dto.CreateUserRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	u, err := c.service.Create(ctx, req)
	if err != nil {
		log.Debug("create user failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	log.Info("user created", logger.String("user_id", u.ID))
	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusCreated, u)
}

// List maneja GET /api/users
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.service.List(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, users)
}

// Get maneja GET /api/users/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, u)
}

// Delete maneja DELETE /api/users/{id}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.service.Delete(r.Context(), id); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.MarkCacheMode(w, c.service.State())
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "user deleted: " + id})
}
