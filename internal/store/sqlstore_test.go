package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"skygate/internal/projection"
)

// TestSqlStore_UploadLifecycle tests the upload → result → metadata flow
// end to end against a real SQLite file.
func TestSqlStore_UploadLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skygate.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// --- Upload ---
	up := &Upload{
		OriginalFileName: "beach.jpg",
		FilePath:         "/tmp/uploads/beach.jpg",
		FileSize:         204800,
		FileType:         "image/jpeg",
	}
	upID, err := s.CreateUpload(up)
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if up.FileName == "" || !strings.HasSuffix(up.FileName, ".jpg") {
		t.Fatalf("CreateUpload: storage name not derived, got %q", up.FileName)
	}
	got, err := s.GetUpload(upID)
	if err != nil || got == nil {
		t.Fatalf("GetUpload: got %+v err %v", got, err)
	}
	if got.OriginalFileName != "beach.jpg" || got.IsProcessed {
		t.Fatalf("GetUpload: got %+v", got)
	}
	ups, err := s.ListUploads()
	if err != nil || len(ups) != 1 {
		t.Fatalf("ListUploads: got %d err %v", len(ups), err)
	}

	// --- Metadata document ---
	doc := projection.NewDocument()
	score := 0.82
	doc.PixelAnalysis.ELAResults.ErrorLevelScore = &score
	metaID, err := s.CreateMetadata(doc)
	if err != nil {
		t.Fatalf("CreateMetadata: %v", err)
	}
	if metaID == "" {
		t.Fatal("CreateMetadata: empty metadata id")
	}

	// --- Detection result ---
	res := &DetectionResult{
		UploadID:        upID,
		IsAIGenerated:   true,
		ConfidenceScore: 0.6775,
		ProcessingTime:  1.25,
		ResultSummary:   "This image is likely AI-generated with 67.8% confidence.",
		MetadataID:      metaID,
	}
	resID, err := s.CreateResult(res)
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}
	if res.AlgorithmVersion != "1.0" {
		t.Fatalf("CreateResult: algorithm version default, got %q", res.AlgorithmVersion)
	}
	gotRes, err := s.GetResult(resID)
	if err != nil || gotRes == nil {
		t.Fatalf("GetResult: got %+v err %v", gotRes, err)
	}
	if !gotRes.IsAIGenerated || gotRes.ConfidenceScore != 0.6775 || gotRes.MetadataID != metaID {
		t.Fatalf("GetResult: got %+v", gotRes)
	}
	list, err := s.ListResults()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListResults: got %d err %v", len(list), err)
	}

	// --- Mark processed ---
	if err := s.MarkProcessed(upID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	got, err = s.GetUpload(upID)
	if err != nil || got == nil || !got.IsProcessed {
		t.Fatalf("after MarkProcessed: got %+v err %v", got, err)
	}
	if got.ProcessingStartedAt == "" || got.ProcessingCompletedAt == "" {
		t.Fatalf("after MarkProcessed: timestamps not set: %+v", got)
	}
}

// TestSqlStore_MetadataRoundTrip verifies the document comes back exactly
// as stored, including pre-declared zero defaults.
func TestSqlStore_MetadataRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "skygate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	doc := projection.NewDocument()
	doc.ExifData.Exists = true
	doc.ExifData.AnalysisResult.Anomalies = []string{"Software metadata matches AI pattern"}
	pattern := 0.12
	doc.PixelAnalysis.PRNUResults.PatternScore = &pattern
	doc.ModelResults = []projection.ModelResult{
		{ModelName: "Vision Transformer", ModelVersion: "1.0", IsAIGenerated: true, Confidence: 0.85},
	}
	doc.AggregatedResults.IsAIGenerated = true
	doc.AggregatedResults.ConfidenceScore = 0.6775

	id, err := s.CreateMetadata(doc)
	if err != nil {
		t.Fatalf("CreateMetadata: %v", err)
	}
	got, err := s.GetMetadata(id)
	if err != nil || got == nil {
		t.Fatalf("GetMetadata: got %+v err %v", got, err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("document round-trip mismatch (-want +got):\n%s", diff)
	}

	// Update and re-read.
	doc.AggregatedResults.ConfidenceScore = 0.9
	if err := s.UpdateMetadata(id, doc); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	got, err = s.GetMetadata(id)
	if err != nil || got == nil {
		t.Fatalf("GetMetadata after update: got %+v err %v", got, err)
	}
	if got.AggregatedResults.ConfidenceScore != 0.9 {
		t.Fatalf("update not persisted: %+v", got.AggregatedResults)
	}
}

func TestSqlStore_Missing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "skygate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if up, err := s.GetUpload(42); err != nil || up != nil {
		t.Fatalf("GetUpload missing: got %+v err %v", up, err)
	}
	if r, err := s.GetResult(42); err != nil || r != nil {
		t.Fatalf("GetResult missing: got %+v err %v", r, err)
	}
	if doc, err := s.GetMetadata("nope"); err != nil || doc != nil {
		t.Fatalf("GetMetadata missing: got %+v err %v", doc, err)
	}
	if err := s.UpdateMetadata("nope", projection.NewDocument()); err == nil {
		t.Fatal("UpdateMetadata missing: expected error")
	}
}

func TestSqlStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skygate.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.CreateUpload(&Upload{OriginalFileName: "a.png", FilePath: "/tmp/a.png"}); err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen runs migrate against an existing schema_version table.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	ups, err := s2.ListUploads()
	if err != nil || len(ups) != 1 {
		t.Fatalf("ListUploads after reopen: got %d err %v", len(ups), err)
	}
}
