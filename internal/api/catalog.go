package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

type CatalogHandler struct {
	store store.Store
}

func NewCatalogHandler(s store.Store) *CatalogHandler {
	return &CatalogHandler{store: s}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	indicators, err := h.store.ListIndicators(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if indicators == nil {
		indicators = []*store.Indicator{}
	}
	writeJSON(w, http.StatusOK, indicators)
}

type UpsertIndicatorRequest struct {
	Name          string `json:"name"`
	Dimension2Key string `json:"dimension2_key,omitempty"`
	Direction     string `json:"direction"`
	Unit          string `json:"unit,omitempty"`
}

func (h *CatalogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "indicator key required"})
		return
	}

	var req UpsertIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	direction := engine.Direction(req.Direction)
	if direction == "" {
		direction = engine.DirectionPositive
	}
	if direction != engine.DirectionPositive && direction != engine.DirectionNegative {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "direction must be positive or negative"})
		return
	}

	ind := &store.Indicator{
		Key:           key,
		Name:          req.Name,
		Dimension2Key: req.Dimension2Key,
		Direction:     direction,
		Unit:          req.Unit,
	}
	if err := h.store.UpsertIndicator(r.Context(), ind); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ind)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.store.DeleteIndicator(r.Context(), key); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
