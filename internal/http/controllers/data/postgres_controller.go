package data

import (
	"net/http"

	"github.com/dropDatabas3/cachegate/internal/http/dto"
	httperrors "github.com/dropDatabas3/cachegate/internal/http/errors"
	"github.com/dropDatabas3/cachegate/internal/http/helpers"
	svc "github.com/dropDatabas3/cachegate/internal/http/services/data"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// PostgresController maneja /api/data/postgres.
type PostgresController struct {
	service *svc.PostgresService
}

func NewPostgresController(s *svc.PostgresService) *PostgresController {
	return &PostgresController{service: s}
}

// Create maneja POST /api/data/postgres
func (c *PostgresController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PostgresController.Create"))

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
	helpers.WriteJSON(w, http.StatusCreated, item)
}

// List maneja GET /api/data/postgres
func (c *PostgresController) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.service.List(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, items)
}
