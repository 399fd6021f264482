package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"skygate/internal/projection"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .skygate) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	// Check if schema_version table exists to detect database state.
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database — create the schema directly.
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// schema_version exists but is empty — stamp the current version.
		v = currentSchemaVersion
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}

	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// freshInstall creates the current schema from scratch on an empty database.
func (s *SqlStore) freshInstall() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// CreateUpload records an ingested image. The storage file name is derived
// from a fresh UUID plus the original extension so uploads never collide.
// Returns the new upload id.
func (s *SqlStore) CreateUpload(u *Upload) (int64, error) {
	if u == nil {
		return 0, errors.New("upload is nil")
	}
	if u.FileName == "" {
		u.FileName = uuid.NewString() + filepath.Ext(u.OriginalFileName)
	}
	if u.UploadDate == "" {
		u.UploadDate = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO uploads(file_name, original_file_name, file_path, file_size, file_type, upload_date, is_processed)
		 VALUES(?, ?, ?, ?, ?, ?, 0)`,
		u.FileName, u.OriginalFileName, u.FilePath, u.FileSize, u.FileType, u.UploadDate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return id, nil
}

// GetUpload returns the upload by id, or nil if not found.
func (s *SqlStore) GetUpload(id int64) (*Upload, error) {
	var u Upload
	var fileType, startedAt, completedAt sql.NullString
	var processed int64
	err := s.db.QueryRow(
		`SELECT id, file_name, original_file_name, file_path, file_size, file_type,
		        upload_date, is_processed, processing_started_at, processing_completed_at
		 FROM uploads WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.FileName, &u.OriginalFileName, &u.FilePath, &u.FileSize,
		&fileType, &u.UploadDate, &processed, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	u.FileType = nullStr(fileType)
	u.IsProcessed = processed == 1
	u.ProcessingStartedAt = nullStr(startedAt)
	u.ProcessingCompletedAt = nullStr(completedAt)
	return &u, nil
}

// ListUploads returns all uploads, newest first.
func (s *SqlStore) ListUploads() ([]*Upload, error) {
	rows, err := s.db.Query(
		`SELECT id, file_name, original_file_name, file_path, file_size, file_type,
		        upload_date, is_processed, processing_started_at, processing_completed_at
		 FROM uploads ORDER BY upload_date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()
	var list []*Upload
	for rows.Next() {
		var u Upload
		var fileType, startedAt, completedAt sql.NullString
		var processed int64
		if err := rows.Scan(&u.ID, &u.FileName, &u.OriginalFileName, &u.FilePath, &u.FileSize,
			&fileType, &u.UploadDate, &processed, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		u.FileType = nullStr(fileType)
		u.IsProcessed = processed == 1
		u.ProcessingStartedAt = nullStr(startedAt)
		u.ProcessingCompletedAt = nullStr(completedAt)
		list = append(list, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return list, nil
}

// MarkProcessed flags the upload as processed and stamps the completion time.
// The started timestamp is set only if it was not already recorded.
func (s *SqlStore) MarkProcessed(id int64) error {
	now := nowUTC()
	_, err := s.db.Exec(
		`UPDATE uploads
		 SET is_processed = 1,
		     processing_started_at = COALESCE(processing_started_at, ?),
		     processing_completed_at = ?
		 WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// CreateResult records one detection run against an upload.
func (s *SqlStore) CreateResult(r *DetectionResult) (int64, error) {
	if r == nil {
		return 0, errors.New("result is nil")
	}
	if r.DetectionDate == "" {
		r.DetectionDate = nowUTC()
	}
	if r.AlgorithmVersion == "" {
		r.AlgorithmVersion = "1.0"
	}
	res, err := s.db.Exec(
		`INSERT INTO detection_results(upload_id, is_ai_generated, confidence_score, processing_time,
		                               detection_date, algorithm_version, result_summary, metadata_id)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UploadID, boolInt(r.IsAIGenerated), r.ConfidenceScore, r.ProcessingTime,
		r.DetectionDate, r.AlgorithmVersion, r.ResultSummary, r.MetadataID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// GetResult returns the detection result by id, or nil if not found.
func (s *SqlStore) GetResult(id int64) (*DetectionResult, error) {
	var r DetectionResult
	var summary, metadataID sql.NullString
	var isAI int64
	err := s.db.QueryRow(
		`SELECT id, upload_id, is_ai_generated, confidence_score, processing_time,
		        detection_date, algorithm_version, result_summary, metadata_id
		 FROM detection_results WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.UploadID, &isAI, &r.ConfidenceScore, &r.ProcessingTime,
		&r.DetectionDate, &r.AlgorithmVersion, &summary, &metadataID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	r.IsAIGenerated = isAI == 1
	r.ResultSummary = nullStr(summary)
	r.MetadataID = nullStr(metadataID)
	return &r, nil
}

// ListResults returns all detection results, newest first.
func (s *SqlStore) ListResults() ([]*DetectionResult, error) {
	rows, err := s.db.Query(
		`SELECT id, upload_id, is_ai_generated, confidence_score, processing_time,
		        detection_date, algorithm_version, result_summary, metadata_id
		 FROM detection_results ORDER BY detection_date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	var list []*DetectionResult
	for rows.Next() {
		var r DetectionResult
		var summary, metadataID sql.NullString
		var isAI int64
		if err := rows.Scan(&r.ID, &r.UploadID, &isAI, &r.ConfidenceScore, &r.ProcessingTime,
			&r.DetectionDate, &r.AlgorithmVersion, &summary, &metadataID); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.IsAIGenerated = isAI == 1
		r.ResultSummary = nullStr(summary)
		r.MetadataID = nullStr(metadataID)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return list, nil
}

// CreateMetadata stores a detection-metadata document and returns its
// generated metadata id. A nil doc is seeded with zero-valued defaults so
// every stored document carries the full shape.
func (s *SqlStore) CreateMetadata(doc *projection.Document) (string, error) {
	if doc == nil {
		doc = projection.NewDocument()
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	id := uuid.NewString()
	now := nowUTC()
	_, err = s.db.Exec(
		"INSERT INTO detection_metadata(metadata_id, document, created_at, updated_at) VALUES(?, ?, ?, ?)",
		id, payload, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert metadata: %w", err)
	}
	return id, nil
}

// UpdateMetadata replaces the stored document for id.
func (s *SqlStore) UpdateMetadata(id string, doc *projection.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	res, err := s.db.Exec(
		"UPDATE detection_metadata SET document = ?, updated_at = ? WHERE metadata_id = ?",
		payload, nowUTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("metadata %s not found", id)
	}
	return nil
}

// GetMetadata returns the document for id, or nil if not found.
func (s *SqlStore) GetMetadata(id string) (*projection.Document, error) {
	var payload []byte
	err := s.db.QueryRow(
		"SELECT document FROM detection_metadata WHERE metadata_id = ?", id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	var doc projection.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &doc, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
