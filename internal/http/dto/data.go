// Package dto contiene los cuerpos de request/response de la API.
package dto

import "time"

// SetItemRequest es el body de POST /api/data/{redis,postgres}.
type SetItemRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RedisItem es un par key/value del cache. CreatedAt es nil en los listados
// (el cache no guarda fecha de creación).
type RedisItem struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	CreatedAt *time.Time `json:"created_at"`
}

// MessageResponse es la respuesta de operaciones sin cuerpo (DELETE).
type MessageResponse struct {
	Message string `json:"message"`
}
