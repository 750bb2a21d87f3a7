// Package errors define el formato de error HTTP y el mapeo desde errores de dominio.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/cachegate/internal/cache"
	"github.com/dropDatabas3/cachegate/internal/store/pg"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta JSON para err. Errores que no son *AppError pasan por FromError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// FromError convierte errores de cache/postgres a su AppError. El resto es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case err == nil:
		return ErrInternalServerError
	case stderrors.Is(err, cache.ErrNotInitialized):
		return ErrCacheNotReady.WithCause(err)
	}

	var opErr *cache.OpError
	if stderrors.As(err, &opErr) {
		switch opErr.Kind {
		case cache.KindInvalid:
			return ErrBadRequest.WithDetail(opErr.Err.Error()).WithCause(err)
		case cache.KindNotFound:
			return ErrNotFound.WithDetail("key not found").WithCause(err)
		default:
			return ErrCacheUnavailable.WithDetail(opErr.Kind.String()).WithCause(err)
		}
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout.WithCause(err)
	}
	if pg.IsConnError(err) {
		return ErrDatabaseUnavailable.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
