package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

type MappingsHandler struct {
	store  store.Store
	events beacon.Client
}

func NewMappingsHandler(s store.Store, events beacon.Client) *MappingsHandler {
	return &MappingsHandler{store: s, events: events}
}

func (h *MappingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset id"})
		return
	}
	m, err := h.store.GetMapping(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type PutMappingRequest struct {
	Map map[string]string `json:"map"`
}

// Put stores an indicator-to-column mapping for a dataset. Every mapped
// column must exist in the dataset, and every indicator key must be in the
// catalog.
func (h *MappingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset id"})
		return
	}

	d, err := h.store.GetDataset(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if d == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
		return
	}

	var req PutMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Map == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "map required"})
		return
	}

	catalog, err := h.store.ListIndicators(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	known := make(map[string]bool, len(catalog))
	for _, ind := range catalog {
		known[ind.Key] = true
	}
	columns := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		columns[c] = true
	}
	for key, col := range req.Map {
		if !known[key] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown indicator key: " + key})
			return
		}
		if !columns[col] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "column not in dataset: " + col})
			return
		}
	}

	m, err := h.store.PutMapping(r.Context(), id, req.Map)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.MappingSaved(beacon.MappingSavedEvent{
			DatasetID: id.String(),
			Mapped:    len(req.Map),
		})
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *MappingsHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListMappingTemplates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if templates == nil {
		templates = []*store.MappingTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *MappingsHandler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "template name required"})
		return
	}

	var req PutMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Map == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "map required"})
		return
	}

	t := &store.MappingTemplate{Name: name, Map: req.Map}
	if err := h.store.UpsertMappingTemplate(r.Context(), t); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *MappingsHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.store.DeleteMappingTemplate(r.Context(), name); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
