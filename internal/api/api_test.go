package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/dataset"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

const panelCSV = "entity,year,gdp,exports,debt\n" +
	"A,2020,90,60,20\n" +
	"A,2021,95,65,18\n" +
	"B,2020,40,30,55\n" +
	"B,2021,42,28,60\n"

func newTestServer(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := dataset.NewSource(st)
	eng := engine.New(src, src, src, logger)
	return NewRouter(st, eng, nil, nil, nil, engine.DefaultCumVarThreshold, "", logger), st
}

// newTestServerWithPCA builds a server with a non-standard default
// cumulative-variance threshold for PCA training.
func newTestServerWithPCA(t *testing.T, threshold float64) (http.Handler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := dataset.NewSource(st)
	eng := engine.New(src, src, src, logger)
	return NewRouter(st, eng, nil, nil, nil, threshold, "", logger), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
}

func seedCatalog(t *testing.T, h http.Handler) {
	t.Helper()
	indicators := []struct {
		key  string
		body UpsertIndicatorRequest
	}{
		{"gdp", UpsertIndicatorRequest{Name: "GDP", Dimension2Key: "economy", Direction: "positive"}},
		{"exports", UpsertIndicatorRequest{Name: "Exports", Dimension2Key: "economy", Direction: "positive"}},
		{"debt", UpsertIndicatorRequest{Name: "Debt ratio", Dimension2Key: "fiscal", Direction: "negative"}},
	}
	for _, ind := range indicators {
		w := doJSON(t, h, "PUT", "/api/v1/indicators/"+ind.key, ind.body)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func importPanel(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doJSON(t, h, "POST", "/api/v1/datasets/import-text", ImportTextRequest{
		Name:    "panel",
		CSVText: panelCSV,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Dataset store.Dataset  `json:"dataset"`
		Schema  dataset.Schema `json:"schema"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 4, resp.Dataset.RowCount)
	assert.Equal(t, "number", resp.Schema.Types["gdp"])

	w = doJSON(t, h, "PUT", "/api/v1/datasets/"+resp.Dataset.ID.String()+"/mapping", PutMappingRequest{
		Map: map[string]string{"gdp": "gdp", "exports": "exports", "debt": "debt"},
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return resp.Dataset.ID.String()
}

func TestImportTextRejectsBadCSV(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, "POST", "/api/v1/datasets/import-text", ImportTextRequest{
		Name:    "broken",
		CSVText: "country,year\nA,2020\n",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "entity")
}

func TestMappingValidation(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)

	w := doJSON(t, h, "POST", "/api/v1/datasets/import-text", ImportTextRequest{
		Name:    "panel",
		CSVText: panelCSV,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Dataset store.Dataset `json:"dataset"`
	}
	decode(t, w, &resp)
	id := resp.Dataset.ID.String()

	w = doJSON(t, h, "PUT", "/api/v1/datasets/"+id+"/mapping", PutMappingRequest{
		Map: map[string]string{"gdp": "no_such_column"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "column not in dataset")

	w = doJSON(t, h, "PUT", "/api/v1/datasets/"+id+"/mapping", PutMappingRequest{
		Map: map[string]string{"unknown_key": "gdp"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown indicator key")
}

func TestTrainAndComputeFlow(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:          "entropy v1",
		Method:        "entropy",
		IndicatorKeys: []string{"gdp", "exports", "debt"},
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var model engine.WeightModel
	decode(t, w, &model)
	assert.Equal(t, engine.MethodEntropy, model.Method)
	assert.Len(t, model.Weights, 3)

	sum := 0.0
	for _, wt := range model.Weights {
		sum += wt
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	w = doJSON(t, h, "POST", "/api/v1/results", ComputeRequest{
		Name:          "run 1",
		WeightModelID: model.ID.String(),
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rs engine.ResultSet
	decode(t, w, &rs)
	assert.Len(t, rs.Rows, 4)
	assert.Empty(t, rs.Failures)
	for _, row := range rs.Rows {
		assert.GreaterOrEqual(t, row.Index0100, 0.0)
		assert.LessOrEqual(t, row.Index0100, 100.0)
		assert.Contains(t, row.SubIndex, "economy")
		assert.Contains(t, row.SubIndex, "fiscal")
	}

	// Ranked rows endpoint
	w = doJSON(t, h, "GET", "/api/v1/results/"+rs.ID.String()+"/rows", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var rowsResp struct {
		Rows []engine.ResultRow `json:"rows"`
	}
	decode(t, w, &rowsResp)
	for i := 1; i < len(rowsResp.Rows); i++ {
		assert.GreaterOrEqual(t, rowsResp.Rows[i-1].Index0100, rowsResp.Rows[i].Index0100)
	}

	// CSV download
	req := httptest.NewRequest("GET", "/api/v1/results/"+rs.ID.String()+"/download", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "entity,year,index_0_100")
	assert.Contains(t, rec.Body.String(), "subindex_economy")
}

func TestTrainPCAUsesConfiguredDefaultThreshold(t *testing.T) {
	h, _ := newTestServerWithPCA(t, 0.6)
	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:          "pca default",
		Method:        "pca",
		IndicatorKeys: []string{"gdp", "exports"},
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var model engine.WeightModel
	decode(t, w, &model)
	if assert.NotNil(t, model.PCA) {
		assert.Equal(t, 0.6, model.PCA.Threshold)
	}

	// an explicit threshold in the request still wins
	w = doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:            "pca explicit",
		Method:          "pca",
		IndicatorKeys:   []string{"gdp", "exports"},
		DatasetIDs:      []string{datasetID},
		CumVarThreshold: 0.99,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &model)
	if assert.NotNil(t, model.PCA) {
		assert.Equal(t, 0.99, model.PCA.Threshold)
	}
}

func TestTrainRejectsUnknownMethod(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:          "bad",
		Method:        "magic",
		IndicatorKeys: []string{"gdp"},
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainMapsEngineValidationErrors(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:          "bad keys",
		Method:        "entropy",
		IndicatorKeys: []string{"gdp", "nonexistent"},
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, "invalid_input", resp["code"])
}

func TestComputeUnknownModelReturns404(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "POST", "/api/v1/results", ComputeRequest{
		Name:          "run",
		WeightModelID: "00000000-0000-0000-0000-000000000001",
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnboardingStatus(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, "GET", "/api/v1/onboarding/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	decode(t, w, &status)
	assert.Equal(t, false, status["has_data"])

	seedCatalog(t, h)
	importPanel(t, h)

	w = doJSON(t, h, "GET", "/api/v1/onboarding/status", nil)
	decode(t, w, &status)
	assert.Equal(t, true, status["has_data"])
	assert.Equal(t, float64(3), status["indicators"])
}

func TestDatasetRenameAndData(t *testing.T) {
	h, _ := newTestServer(t)
	seedCatalog(t, h)
	id := importPanel(t, h)

	w := doJSON(t, h, "PATCH", "/api/v1/datasets/"+id, map[string]string{"name": "renamed"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, "GET", "/api/v1/datasets/"+id+"/data", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}
	decode(t, w, &data)
	assert.Len(t, data.Rows, 4)
	assert.Contains(t, data.Columns, "gdp")
}

// eventRecorder captures typed lifecycle events in place of a live broker.
type eventRecorder struct {
	imported []beacon.DatasetImportedEvent
	updated  []beacon.DatasetImportedEvent
	mapped   []beacon.MappingSavedEvent
	trained  []beacon.ModelTrainedEvent
	computed []beacon.ResultComputedEvent
}

func (r *eventRecorder) DatasetImported(ev beacon.DatasetImportedEvent) error {
	r.imported = append(r.imported, ev)
	return nil
}

func (r *eventRecorder) DatasetUpdated(ev beacon.DatasetImportedEvent) error {
	r.updated = append(r.updated, ev)
	return nil
}

func (r *eventRecorder) MappingSaved(ev beacon.MappingSavedEvent) error {
	r.mapped = append(r.mapped, ev)
	return nil
}

func (r *eventRecorder) ModelTrained(ev beacon.ModelTrainedEvent) error {
	r.trained = append(r.trained, ev)
	return nil
}

func (r *eventRecorder) ResultComputed(ev beacon.ResultComputedEvent) error {
	r.computed = append(r.computed, ev)
	return nil
}

func (r *eventRecorder) Subscribe(string, func(string, []byte)) error { return nil }
func (r *eventRecorder) Close()                                       {}

func TestHandlersPublishTypedEvents(t *testing.T) {
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := dataset.NewSource(st)
	eng := engine.New(src, src, src, logger)
	rec := &eventRecorder{}
	h := NewRouter(st, eng, rec, nil, nil, engine.DefaultCumVarThreshold, "", logger)

	seedCatalog(t, h)
	datasetID := importPanel(t, h)

	w := doJSON(t, h, "PUT", "/api/v1/datasets/"+datasetID+"/mapping", PutMappingRequest{
		Map: map[string]string{"gdp": "gdp", "exports": "exports", "debt": "debt"},
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, "POST", "/api/v1/weight-models", TrainModelRequest{
		Name:          "entropy events",
		Method:        "entropy",
		IndicatorKeys: []string{"gdp", "exports", "debt"},
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model engine.WeightModel
	decode(t, w, &model)

	w = doJSON(t, h, "POST", "/api/v1/results", ComputeRequest{
		Name:          "events run",
		WeightModelID: model.ID.String(),
		DatasetIDs:    []string{datasetID},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	if assert.Len(t, rec.imported, 1) {
		assert.Equal(t, datasetID, rec.imported[0].DatasetID)
		assert.Equal(t, 4, rec.imported[0].RowCount)
	}
	if assert.Len(t, rec.mapped, 1) {
		assert.Equal(t, 3, rec.mapped[0].Mapped)
	}
	if assert.Len(t, rec.trained, 1) {
		assert.Equal(t, model.ID.String(), rec.trained[0].ModelID)
		assert.Equal(t, "entropy", rec.trained[0].Method)
	}
	if assert.Len(t, rec.computed, 1) {
		assert.Equal(t, 4, rec.computed[0].RowCount)
		assert.Equal(t, 0, rec.computed[0].FailureCount)
	}
}
