// Package sample seeds a demonstration dataset, indicator catalog, weight
// models and result sets so a fresh install has a full pipeline to explore.
package sample

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/dataset"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

const sampleDatasetName = "Sample development panel"

const sampleCSV = `entity,year,gdp_per_capita,life_expectancy,school_years,co2_per_capita,debt_ratio
Arvenia,2020,42100,81.2,12.8,6.1,58
Arvenia,2021,43800,81.4,12.9,5.9,61
Borland,2020,28400,76.5,11.2,7.8,72
Borland,2021,29100,76.8,11.4,7.6,74
Cestria,2020,51200,83.0,13.5,4.9,44
Cestria,2021,52900,83.1,13.6,4.7,42
Dorvik,2020,18700,72.1,9.8,5.2,66
Dorvik,2021,19400,72.6,10.0,5.4,63
Elbonia,2020,9800,68.4,8.1,3.1,49
Elbonia,2021,10300,68.9,8.4,3.3,47
Fendal,2020,35600,79.3,12.1,8.9,81
Fendal,2021,36200,79.5,12.2,8.5,84
Glacia,2020,61500,84.2,14.1,9.4,39
Glacia,2021,63100,84.4,14.2,9.0,37
Hestia,2020,24900,75.0,10.9,4.4,55
Hestia,2021,25700,75.4,11.1,4.5,53
Istria,2020,14200,70.8,9.2,2.6,70
Istria,2021,14900,71.3,9.5,2.8,68
Juno,2020,46800,82.1,13.0,7.1,50
Juno,2021,48200,82.3,13.1,6.8,48
`

var sampleIndicators = []*store.Indicator{
	{Key: "gdp_per_capita", Name: "GDP per capita", Dimension2Key: "economy", Direction: engine.DirectionPositive, Unit: "USD"},
	{Key: "life_expectancy", Name: "Life expectancy", Dimension2Key: "social", Direction: engine.DirectionPositive, Unit: "years"},
	{Key: "school_years", Name: "Mean years of schooling", Dimension2Key: "social", Direction: engine.DirectionPositive, Unit: "years"},
	{Key: "co2_per_capita", Name: "CO2 emissions per capita", Dimension2Key: "environment", Direction: engine.DirectionNegative, Unit: "t"},
	{Key: "debt_ratio", Name: "Government debt to GDP", Dimension2Key: "economy", Direction: engine.DirectionNegative, Unit: "%"},
}

var samplePairs = []engine.PairwiseComparison{
	{I: "gdp_per_capita", J: "life_expectancy", Value: 2},
	{I: "gdp_per_capita", J: "school_years", Value: 3},
	{I: "gdp_per_capita", J: "co2_per_capita", Value: 4},
	{I: "gdp_per_capita", J: "debt_ratio", Value: 4},
	{I: "life_expectancy", J: "school_years", Value: 2},
	{I: "life_expectancy", J: "co2_per_capita", Value: 2},
	{I: "life_expectancy", J: "debt_ratio", Value: 3},
	{I: "school_years", J: "co2_per_capita", Value: 1},
	{I: "school_years", J: "debt_ratio", Value: 2},
	{I: "co2_per_capita", J: "debt_ratio", Value: 1},
}

// Seed loads the sample pipeline into the store. It is idempotent: if the
// sample dataset already exists, nothing happens.
func Seed(ctx context.Context, st store.Store, eng *engine.Engine, logger *slog.Logger) error {
	existing, err := st.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	for _, d := range existing {
		if d.IsSample {
			return nil
		}
	}

	parsed, err := dataset.Parse(sampleCSV)
	if err != nil {
		return fmt.Errorf("parse sample csv: %w", err)
	}
	norm, _, err := dataset.Normalize(parsed, nil)
	if err != nil {
		return fmt.Errorf("normalize sample csv: %w", err)
	}

	d := &store.Dataset{
		ID:         uuid.New(),
		Name:       sampleDatasetName,
		SourceType: store.SourceSample,
		IsSample:   true,
		Columns:    norm.Columns,
		Rows:       norm.Rows,
		RowCount:   len(norm.Rows),
	}
	if err := st.CreateDataset(ctx, d); err != nil {
		return fmt.Errorf("create sample dataset: %w", err)
	}

	keys := make([]string, 0, len(sampleIndicators))
	mapping := make(map[string]string, len(sampleIndicators))
	for _, ind := range sampleIndicators {
		if err := st.UpsertIndicator(ctx, ind); err != nil {
			return fmt.Errorf("upsert indicator %s: %w", ind.Key, err)
		}
		keys = append(keys, ind.Key)
		mapping[ind.Key] = ind.Key
	}
	if _, err := st.PutMapping(ctx, d.ID, mapping); err != nil {
		return fmt.Errorf("put sample mapping: %w", err)
	}

	datasetIDs := []string{d.ID.String()}

	entropy, err := eng.TrainEntropy(ctx, engine.TrainRequest{
		Name:          "Sample entropy weights",
		IndicatorKeys: keys,
		DatasetIDs:    datasetIDs,
	})
	if err != nil {
		return fmt.Errorf("train sample entropy model: %w", err)
	}

	pca, err := eng.TrainPCA(ctx, engine.TrainRequest{
		Name:          "Sample PCA weights",
		IndicatorKeys: keys,
		DatasetIDs:    datasetIDs,
	}, 0)
	if err != nil {
		return fmt.Errorf("train sample pca model: %w", err)
	}

	ahp, err := eng.TrainAHP(ctx, engine.TrainRequest{
		Name:          "Sample AHP weights",
		IndicatorKeys: keys,
		DatasetIDs:    datasetIDs,
	}, samplePairs)
	if err != nil {
		return fmt.Errorf("train sample ahp model: %w", err)
	}

	for _, m := range []*engine.WeightModel{entropy, pca, ahp} {
		if err := st.CreateWeightModel(ctx, m); err != nil {
			return fmt.Errorf("store sample model %s: %w", m.Name, err)
		}
		rs, err := eng.ComputeIndex(ctx, m, m.Name+" index", datasetIDs)
		if err != nil {
			return fmt.Errorf("compute sample index for %s: %w", m.Name, err)
		}
		if err := st.CreateResultSet(ctx, rs); err != nil {
			return fmt.Errorf("store sample results for %s: %w", m.Name, err)
		}
	}

	logger.Info("sample data seeded",
		"dataset", d.ID.String(),
		"rows", d.RowCount,
		"indicators", len(keys),
	)
	return nil
}
