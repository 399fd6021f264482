package store

// Upload is one ingested image file.
type Upload struct {
	ID                    int64
	FileName              string // storage name, uuid-derived
	OriginalFileName      string
	FilePath              string
	FileSize              int64
	FileType              string
	UploadDate            string
	IsProcessed           bool
	ProcessingStartedAt   string
	ProcessingCompletedAt string
}

// DetectionResult is the relational record of one detection run. The full
// nested breakdown lives in the metadata document referenced by MetadataID.
type DetectionResult struct {
	ID               int64
	UploadID         int64
	IsAIGenerated    bool
	ConfidenceScore  float64
	ProcessingTime   float64
	DetectionDate    string
	AlgorithmVersion string
	ResultSummary    string
	MetadataID       string
}
