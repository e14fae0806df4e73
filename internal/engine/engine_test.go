package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource backs all three reader interfaces with in-memory tables.
type fakeSource struct {
	columns    map[string][]string
	rows       map[string][]Row
	mappings   map[string]map[string]string
	indicators []Indicator
}

func (f *fakeSource) ReadRows(_ context.Context, datasetID string) ([]string, []Row, error) {
	return f.columns[datasetID], f.rows[datasetID], nil
}

func (f *fakeSource) Mapping(_ context.Context, datasetID string) (map[string]string, error) {
	return f.mappings[datasetID], nil
}

func (f *fakeSource) Indicators(_ context.Context) ([]Indicator, error) {
	return f.indicators, nil
}

// twoEntityPanel builds the A/B x 2020/2021 fixture where A dominates both
// indicators in every year.
func twoEntityPanel() *fakeSource {
	return &fakeSource{
		columns: map[string][]string{
			"ds1": {"entity", "year", "output", "exports"},
		},
		rows: map[string][]Row{
			"ds1": {
				{Entity: "A", Year: 2020, Cells: map[string]string{"output": "90", "exports": "80"}},
				{Entity: "B", Year: 2020, Cells: map[string]string{"output": "40", "exports": "30"}},
				{Entity: "A", Year: 2021, Cells: map[string]string{"output": "95", "exports": "85"}},
				{Entity: "B", Year: 2021, Cells: map[string]string{"output": "45", "exports": "35"}},
			},
		},
		mappings: map[string]map[string]string{
			"ds1": {"output": "output", "exports": "exports"},
		},
		indicators: []Indicator{
			{Key: "output", Dimension2Key: "scale", Direction: DirectionPositive},
			{Key: "exports", Dimension2Key: "openness", Direction: DirectionPositive},
		},
	}
}

func newTestEngine(src *fakeSource) *Engine {
	return New(src, src, src, discardLogger())
}

func trainReq() TrainRequest {
	return TrainRequest{
		Name:          "test model",
		IndicatorKeys: []string{"output", "exports"},
		DatasetIDs:    []string{"ds1"},
	}
}

func TestTrainEntropyModelInvariants(t *testing.T) {
	e := newTestEngine(twoEntityPanel())
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.Validate(); err != nil {
		t.Errorf("trained model invalid: %v", err)
	}
	if model.Method != MethodEntropy {
		t.Errorf("method = %s, want entropy", model.Method)
	}
	if model.Standardization.Method != StandardizeMinMax {
		t.Errorf("entropy must freeze min-max params, got %s", model.Standardization.Method)
	}
	var dimSum float64
	for _, w := range model.Dimension2Weights {
		dimSum += w
	}
	if math.Abs(dimSum-1) > 1e-9 {
		t.Errorf("dimension weights sum to %.12f", dimSum)
	}
	// dimension weight equals the sum of its members' weights
	if math.Abs(model.Dimension2Weights["scale"]-model.Weights["output"]) > 1e-12 {
		t.Errorf("scale dimension weight %f != output weight %f",
			model.Dimension2Weights["scale"], model.Weights["output"])
	}
}

func TestTrainPCAModelInvariants(t *testing.T) {
	src := twoEntityPanel()
	// break the panel's collinearity so the covariance matrix is full rank
	src.rows["ds1"][2].Cells["exports"] = "70"
	src.rows["ds1"][3].Cells["exports"] = "20"
	e := newTestEngine(src)
	model, err := e.TrainPCA(context.Background(), trainReq(), 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.Validate(); err != nil {
		t.Errorf("trained model invalid: %v", err)
	}
	if model.PCA == nil {
		t.Fatal("PCA provenance missing")
	}
	if model.AHP != nil {
		t.Error("PCA model carries AHP provenance")
	}
	if model.PCA.ComponentsRetained != 2 {
		t.Errorf("threshold 1.0 should retain both components, got %d", model.PCA.ComponentsRetained)
	}
	if model.Standardization.Method != StandardizeZScore {
		t.Errorf("PCA must freeze z-score params, got %s", model.Standardization.Method)
	}
}

func TestTrainAHPModelInvariants(t *testing.T) {
	e := newTestEngine(twoEntityPanel())
	pairs := []PairwiseComparison{{I: "output", J: "exports", Value: 3}}
	model, err := e.TrainAHP(context.Background(), trainReq(), pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.Validate(); err != nil {
		t.Errorf("trained model invalid: %v", err)
	}
	if model.AHP == nil {
		t.Fatal("AHP provenance missing")
	}
	if math.Abs(model.Weights["output"]-0.75) > 1e-6 {
		t.Errorf("output weight = %f, want 0.75 for a 3:1 judgment", model.Weights["output"])
	}
	if model.AHP.CR != 0 {
		t.Errorf("2x2 matrix has trivial consistency, CR = %f", model.AHP.CR)
	}
}

func TestTrainUnknownIndicatorFails(t *testing.T) {
	e := newTestEngine(twoEntityPanel())
	req := trainReq()
	req.IndicatorKeys = append(req.IndicatorKeys, "nope")
	_, err := e.TrainEntropy(context.Background(), req)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTrainMissingValueIsFatal(t *testing.T) {
	src := twoEntityPanel()
	src.rows["ds1"][1].Cells["exports"] = ""
	e := newTestEngine(src)
	_, err := e.TrainEntropy(context.Background(), trainReq())
	if !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected missing value error, got %v", err)
	}
}

func TestTrainUnmappedIndicatorIsFatal(t *testing.T) {
	src := twoEntityPanel()
	delete(src.mappings["ds1"], "exports")
	e := newTestEngine(src)
	_, err := e.TrainEntropy(context.Background(), trainReq())
	if !errors.Is(err, ErrMissingMapping) {
		t.Errorf("expected missing mapping error, got %v", err)
	}
}

func TestComputeIndexEndToEnd(t *testing.T) {
	src := twoEntityPanel()
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	rs, err := e.ComputeIndex(context.Background(), model, "result", []string{"ds1"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(rs.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rs.Rows))
	}
	if len(rs.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", rs.Failures)
	}

	byEntityYear := map[[2]interface{}]ResultRow{}
	for _, row := range rs.Rows {
		if row.Index0100 < 0 || row.Index0100 > 100 {
			t.Errorf("row (%s,%d): index %f outside [0,100]", row.Entity, row.Year, row.Index0100)
		}
		for dim, v := range row.SubIndex {
			if v < 0 || v > 100 {
				t.Errorf("row (%s,%d) dim %s: subindex %f outside [0,100]", row.Entity, row.Year, dim, v)
			}
		}
		if row.Raw["output"] == 0 {
			t.Errorf("row (%s,%d): raw pass-through missing", row.Entity, row.Year)
		}
		byEntityYear[[2]interface{}{row.Entity, row.Year}] = row
	}

	// A dominates both indicators every year, so its index must rank higher
	for _, year := range []int{2020, 2021} {
		a := byEntityYear[[2]interface{}{"A", year}]
		b := byEntityYear[[2]interface{}{"B", year}]
		if a.Index0100 <= b.Index0100 {
			t.Errorf("year %d: A (%f) should outrank B (%f)", year, a.Index0100, b.Index0100)
		}
	}
}

func TestComputeIndexDeterministic(t *testing.T) {
	src := twoEntityPanel()
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	first, err := e.ComputeIndex(context.Background(), model, "r1", []string{"ds1"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := e.ComputeIndex(context.Background(), model, "r2", []string{"ds1"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Error("re-running compute on the same model and data must be bit-identical")
	}
}

func TestComputeIndexSkipsBadRows(t *testing.T) {
	src := twoEntityPanel()
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	src.rows["ds1"][2].Cells["output"] = "n/a"
	rs, err := e.ComputeIndex(context.Background(), model, "result", []string{"ds1"})
	if err != nil {
		t.Fatalf("compute should not abort on a bad row: %v", err)
	}
	if len(rs.Rows) != 3 {
		t.Errorf("expected 3 scored rows, got %d", len(rs.Rows))
	}
	if len(rs.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(rs.Failures))
	}
	f := rs.Failures[0]
	if f.Entity != "A" || f.Year != 2021 || f.IndicatorKey != "output" {
		t.Errorf("failure misattributed: %+v", f)
	}
	if f.Code != ErrMissingValue.Code {
		t.Errorf("failure code = %s, want %s", f.Code, ErrMissingValue.Code)
	}
}

func TestComputeIndexUnmappedDatasetFailsItsRowsOnly(t *testing.T) {
	src := twoEntityPanel()
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	// second dataset without a usable mapping
	src.columns["ds2"] = []string{"entity", "year", "output"}
	src.rows["ds2"] = []Row{{Entity: "C", Year: 2020, Cells: map[string]string{"output": "50"}}}
	src.mappings["ds2"] = map[string]string{"output": "output"}

	rs, err := e.ComputeIndex(context.Background(), model, "result", []string{"ds1", "ds2"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(rs.Rows) != 4 {
		t.Errorf("mapped dataset rows should still score, got %d", len(rs.Rows))
	}
	if len(rs.Failures) != 1 {
		t.Fatalf("expected 1 failure for the unmapped dataset row, got %d", len(rs.Failures))
	}
	if rs.Failures[0].Code != ErrMissingMapping.Code {
		t.Errorf("failure code = %s, want %s", rs.Failures[0].Code, ErrMissingMapping.Code)
	}
}

func TestComputeIndexNegativeDirection(t *testing.T) {
	src := &fakeSource{
		columns: map[string][]string{"ds1": {"entity", "year", "debt", "growth"}},
		rows: map[string][]Row{
			"ds1": {
				{Entity: "A", Year: 2020, Cells: map[string]string{"debt": "10", "growth": "9"}},
				{Entity: "B", Year: 2020, Cells: map[string]string{"debt": "90", "growth": "2"}},
				{Entity: "C", Year: 2020, Cells: map[string]string{"debt": "50", "growth": "5"}},
			},
		},
		mappings: map[string]map[string]string{"ds1": {"debt": "debt", "growth": "growth"}},
		indicators: []Indicator{
			{Key: "debt", Dimension2Key: "risk", Direction: DirectionNegative},
			{Key: "growth", Dimension2Key: "momentum", Direction: DirectionPositive},
		},
	}
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), TrainRequest{
		Name:          "m",
		IndicatorKeys: []string{"debt", "growth"},
		DatasetIDs:    []string{"ds1"},
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	rs, err := e.ComputeIndex(context.Background(), model, "r", []string{"ds1"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	scores := map[string]float64{}
	for _, row := range rs.Rows {
		scores[row.Entity] = row.Index0100
	}
	// A has the least debt and most growth, B the opposite
	if !(scores["A"] > scores["C"] && scores["C"] > scores["B"]) {
		t.Errorf("negative direction not inverted: %v", scores)
	}
}

func TestResultSetRunsGetFreshIDs(t *testing.T) {
	src := twoEntityPanel()
	e := newTestEngine(src)
	model, err := e.TrainEntropy(context.Background(), trainReq())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	r1, _ := e.ComputeIndex(context.Background(), model, "r", []string{"ds1"})
	r2, _ := e.ComputeIndex(context.Background(), model, "r", []string{"ds1"})
	if r1.ID == r2.ID {
		t.Error("each aggregation run must produce a new result set id")
	}
}
