package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/dataset"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

type ResultsHandler struct {
	store   store.Store
	engine  *engine.Engine
	events  beacon.Client
	metrics *Metrics
}

func NewResultsHandler(s store.Store, eng *engine.Engine, events beacon.Client, m *Metrics) *ResultsHandler {
	return &ResultsHandler{store: s, engine: eng, events: events, metrics: m}
}

type ComputeRequest struct {
	Name          string   `json:"name"`
	WeightModelID string   `json:"weight_model_id"`
	DatasetIDs    []string `json:"dataset_ids"`
}

func (h *ResultsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || len(req.DatasetIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and dataset_ids required"})
		return
	}
	modelID, err := uuid.Parse(req.WeightModelID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid weight_model_id"})
		return
	}

	model, err := h.store.GetWeightModel(r.Context(), modelID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if model == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "model not found"})
		return
	}

	rs, err := h.engine.ComputeIndex(r.Context(), model, req.Name, req.DatasetIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if err := h.store.CreateResultSet(r.Context(), rs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.metrics.IndexComputed(len(rs.Rows), len(rs.Failures))
	if h.events != nil {
		_ = h.events.ResultComputed(beacon.ResultComputedEvent{
			ResultID:      rs.ID.String(),
			Name:          rs.Name,
			WeightModelID: rs.WeightModelID.String(),
			DatasetIDs:    rs.DatasetIDs,
			RowCount:      len(rs.Rows),
			FailureCount:  len(rs.Failures),
		})
	}

	writeJSON(w, http.StatusCreated, rs)
}

func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResultSets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if results == nil {
		results = []*store.ResultSummary{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.loadResultSet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// Rows returns result rows sorted by index descending, the shape ranking
// tables want.
func (h *ResultsHandler) Rows(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.loadResultSet(w, r)
	if !ok {
		return
	}
	rows := append([]engine.ResultRow(nil), rs.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index0100 > rows[j].Index0100 })
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":     rows,
		"failures": rs.Failures,
	})
}

// Download renders a result set as CSV: entity, year, index, then one
// sub-index column per dimension in sorted order.
func (h *ResultsHandler) Download(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.loadResultSet(w, r)
	if !ok {
		return
	}

	dims := map[string]bool{}
	for _, row := range rs.Rows {
		for d := range row.SubIndex {
			dims[d] = true
		}
	}
	sorted := make([]string, 0, len(dims))
	for d := range dims {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	columns := []string{"entity", "year", "index_0_100"}
	for _, d := range sorted {
		columns = append(columns, "subindex_"+d)
	}

	rows := make([]map[string]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		out := map[string]string{
			"entity":      row.Entity,
			"year":        strconv.Itoa(row.Year),
			"index_0_100": strconv.FormatFloat(row.Index0100, 'f', 4, 64),
		}
		for _, d := range sorted {
			out["subindex_"+d] = strconv.FormatFloat(row.SubIndex[d], 'f', 4, 64)
		}
		rows = append(rows, out)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rs.Name+".csv"))
	_, _ = w.Write([]byte(dataset.ToCSV(columns, rows)))
}

func (h *ResultsHandler) loadResultSet(w http.ResponseWriter, r *http.Request) (*engine.ResultSet, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid result id"})
		return nil, false
	}
	rs, err := h.store.GetResultSet(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if rs == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "result set not found"})
		return nil, false
	}
	return rs, true
}
