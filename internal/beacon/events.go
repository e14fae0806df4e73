package beacon

type DatasetImportedEvent struct {
	DatasetID  string `json:"dataset_id"`
	Name       string `json:"name"`
	SourceType string `json:"source_type"`
	RowCount   int    `json:"row_count"`
}

type MappingSavedEvent struct {
	DatasetID string `json:"dataset_id"`
	Mapped    int    `json:"mapped_indicators"`
}

type ModelTrainedEvent struct {
	ModelID    string   `json:"model_id"`
	Name       string   `json:"name"`
	Method     string   `json:"method"`
	Indicators []string `json:"indicators"`
	DatasetIDs []string `json:"dataset_ids"`
}

type ResultComputedEvent struct {
	ResultID      string   `json:"result_id"`
	Name          string   `json:"name"`
	WeightModelID string   `json:"weight_model_id"`
	DatasetIDs    []string `json:"dataset_ids"`
	RowCount      int      `json:"row_count"`
	FailureCount  int      `json:"failure_count"`
}
