package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

type ModelsHandler struct {
	store   store.Store
	engine  *engine.Engine
	events  beacon.Client
	metrics *Metrics

	// default cumulative-variance threshold for PCA requests that omit one
	pcaThreshold float64
}

func NewModelsHandler(s store.Store, eng *engine.Engine, events beacon.Client, m *Metrics, pcaThreshold float64) *ModelsHandler {
	return &ModelsHandler{store: s, engine: eng, events: events, metrics: m, pcaThreshold: pcaThreshold}
}

type TrainModelRequest struct {
	Name          string   `json:"name"`
	Method        string   `json:"method"`
	IndicatorKeys []string `json:"indicator_keys"`
	DatasetIDs    []string `json:"dataset_ids"`

	// PCA only.
	CumVarThreshold float64 `json:"cum_var_threshold,omitempty"`

	// AHP only.
	Comparisons []PairwiseComparisonRequest `json:"comparisons,omitempty"`
}

type PairwiseComparisonRequest struct {
	I     string  `json:"i"`
	J     string  `json:"j"`
	Value float64 `json:"value"`
}

func (h *ModelsHandler) Train(w http.ResponseWriter, r *http.Request) {
	var req TrainModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || len(req.IndicatorKeys) == 0 || len(req.DatasetIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, indicator_keys and dataset_ids required"})
		return
	}

	treq := engine.TrainRequest{
		Name:          req.Name,
		IndicatorKeys: req.IndicatorKeys,
		DatasetIDs:    req.DatasetIDs,
	}

	var (
		model *engine.WeightModel
		err   error
	)
	switch engine.Method(req.Method) {
	case engine.MethodEntropy:
		model, err = h.engine.TrainEntropy(r.Context(), treq)
	case engine.MethodPCA:
		threshold := req.CumVarThreshold
		if threshold == 0 {
			threshold = h.pcaThreshold
		}
		model, err = h.engine.TrainPCA(r.Context(), treq, threshold)
	case engine.MethodAHP:
		pairs := make([]engine.PairwiseComparison, 0, len(req.Comparisons))
		for _, p := range req.Comparisons {
			pairs = append(pairs, engine.PairwiseComparison{I: p.I, J: p.J, Value: p.Value})
		}
		model, err = h.engine.TrainAHP(r.Context(), treq, pairs)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "method must be entropy, pca or ahp"})
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if err := h.store.CreateWeightModel(r.Context(), model); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.metrics.ModelTrained(string(model.Method))
	if h.events != nil {
		_ = h.events.ModelTrained(beacon.ModelTrainedEvent{
			ModelID:    model.ID.String(),
			Name:       model.Name,
			Method:     string(model.Method),
			Indicators: model.IndicatorKeys,
			DatasetIDs: model.TrainedOnDatasetIDs,
		})
	}

	writeJSON(w, http.StatusCreated, model)
}

func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.ListWeightModels(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if models == nil {
		models = []*engine.WeightModel{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *ModelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid model id"})
		return
	}
	model, err := h.store.GetWeightModel(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if model == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "model not found"})
		return
	}
	writeJSON(w, http.StatusOK, model)
}
