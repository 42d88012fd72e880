// Package models lists the selectable chat models.
package models

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skylinehq/skyline/backend/internal/model/catalog"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Handler serves the model catalog.
type Handler struct {
	catalog catalog.Store
}

// New creates the models handler.
func New(models catalog.Store) *Handler {
	return &Handler{catalog: models}
}

// RegisterRoutes registers the catalog route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.List())
}
