package beacon

const (
	StreamName   = "ATLAS_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectDatasetImported(datasetID string) string { return "atlas.dataset." + datasetID + ".imported" }
func SubjectDatasetUpdated(datasetID string) string  { return "atlas.dataset." + datasetID + ".updated" }
func SubjectMappingSaved(datasetID string) string    { return "atlas.dataset." + datasetID + ".mapped" }

func SubjectModelTrained(modelID string) string { return "atlas.model." + modelID + ".trained" }

func SubjectResultComputed(resultID string) string { return "atlas.result." + resultID + ".computed" }
