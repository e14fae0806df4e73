package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/dataset"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

const maxImportBytes = 20 << 20 // 20 MiB

type DatasetsHandler struct {
	store  store.Store
	events beacon.Client
}

func NewDatasetsHandler(s store.Store, events beacon.Client) *DatasetsHandler {
	return &DatasetsHandler{store: s, events: events}
}

// Import accepts a multipart CSV upload. An optional "year" field supplies
// the year when the file has no year column.
func (h *DatasetsHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field required"})
		return
	}
	defer file.Close()

	text, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	var yearOverride *int
	if y := r.FormValue("year"); y != "" {
		yi, err := strconv.Atoi(y)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		yearOverride = &yi
	}

	h.importCSV(w, r, name, string(text), store.SourceFile, yearOverride)
}

type ImportTextRequest struct {
	Name    string `json:"name"`
	CSVText string `json:"csv_text"`
	Year    *int   `json:"year,omitempty"`
}

// ImportText accepts pasted CSV text.
func (h *DatasetsHandler) ImportText(w http.ResponseWriter, r *http.Request) {
	var req ImportTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.CSVText == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and csv_text required"})
		return
	}
	h.importCSV(w, r, req.Name, req.CSVText, store.SourcePaste, req.Year)
}

func (h *DatasetsHandler) importCSV(w http.ResponseWriter, r *http.Request, name, text string, sourceType store.SourceType, yearOverride *int) {
	parsed, err := dataset.Parse(text)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	norm, schema, err := dataset.Normalize(parsed, yearOverride)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	d := &store.Dataset{
		ID:         uuid.New(),
		Name:       name,
		SourceType: sourceType,
		Columns:    norm.Columns,
		Rows:       norm.Rows,
		RowCount:   len(norm.Rows),
	}
	if err := h.store.CreateDataset(r.Context(), d); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.DatasetImported(beacon.DatasetImportedEvent{
			DatasetID:  d.ID.String(),
			Name:       d.Name,
			SourceType: string(d.SourceType),
			RowCount:   d.RowCount,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"dataset": d,
		"schema":  schema,
	})
}

func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.ListDatasets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if datasets == nil {
		datasets = []*store.Dataset{}
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDataset(w, r)
	if !ok {
		return
	}
	d.Rows = nil
	writeJSON(w, http.StatusOK, d)
}

func (h *DatasetsHandler) Data(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns": d.Columns,
		"rows":    d.Rows,
	})
}

type ReplaceRowsRequest struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// ReplaceData swaps a dataset's table for an edited one, re-running the
// same normalization as import.
func (h *DatasetsHandler) ReplaceData(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDataset(w, r)
	if !ok {
		return
	}

	var req ReplaceRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	norm, _, err := dataset.Normalize(&dataset.Parsed{Columns: req.Columns, Rows: req.Rows}, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.ReplaceDatasetRows(r.Context(), d.ID, norm.Columns, norm.Rows); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.DatasetUpdated(beacon.DatasetImportedEvent{
			DatasetID: d.ID.String(),
			Name:      d.Name,
			RowCount:  len(norm.Rows),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns":   norm.Columns,
		"row_count": len(norm.Rows),
	})
}

func (h *DatasetsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDataset(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	if err := h.store.UpdateDatasetName(r.Context(), d.ID, req.Name); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	d.Name = req.Name
	d.Rows = nil
	writeJSON(w, http.StatusOK, d)
}

func (h *DatasetsHandler) loadDataset(w http.ResponseWriter, r *http.Request) (*store.Dataset, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset id"})
		return nil, false
	}
	d, err := h.store.GetDataset(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if d == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
		return nil, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
