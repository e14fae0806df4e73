package api

import (
	"context"
	"net/http"

	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

type OnboardingHandler struct {
	store      store.Store
	loadSample func(context.Context) error
}

func NewOnboardingHandler(s store.Store, loadSample func(context.Context) error) *OnboardingHandler {
	return &OnboardingHandler{store: s, loadSample: loadSample}
}

// Status reports how far a fresh install has come through the
// import -> map -> train -> compute flow.
func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.ListDatasets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	indicators, err := h.store.ListIndicators(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	models, err := h.store.ListWeightModels(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	results, err := h.store.ListResultSets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets":      len(datasets),
		"indicators":    len(indicators),
		"weight_models": len(models),
		"result_sets":   len(results),
		"has_data":      len(datasets) > 0,
		"has_model":     len(models) > 0,
		"has_results":   len(results) > 0,
	})
}

// LoadSample seeds the bundled demonstration dataset, catalog, models and
// results so a new install has something to explore.
func (h *OnboardingHandler) LoadSample(w http.ResponseWriter, r *http.Request) {
	if h.loadSample == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sample data not available"})
		return
	}
	if err := h.loadSample(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}
