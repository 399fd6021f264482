package store

// schemaVersionV1 is the initial schema.
const schemaVersionV1 = 1

// schemaV1 holds the relational records for uploads and detection results,
// plus the detection_metadata document collection (JSON documents keyed by
// a generated metadata ID).
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS uploads (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name               TEXT NOT NULL UNIQUE,
	original_file_name      TEXT NOT NULL,
	file_path               TEXT NOT NULL,
	file_size               INTEGER NOT NULL DEFAULT 0,
	file_type               TEXT,
	upload_date             TEXT NOT NULL,
	is_processed            INTEGER NOT NULL DEFAULT 0,
	processing_started_at   TEXT,
	processing_completed_at TEXT
);

CREATE TABLE IF NOT EXISTS detection_results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	upload_id         INTEGER NOT NULL REFERENCES uploads(id),
	is_ai_generated   INTEGER NOT NULL,
	confidence_score  REAL NOT NULL,
	processing_time   REAL NOT NULL,
	detection_date    TEXT NOT NULL,
	algorithm_version TEXT NOT NULL DEFAULT '1.0',
	result_summary    TEXT,
	metadata_id       TEXT
);

CREATE TABLE IF NOT EXISTS detection_metadata (
	metadata_id TEXT PRIMARY KEY,
	document    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_upload ON detection_results(upload_id);
CREATE INDEX IF NOT EXISTS idx_results_date ON detection_results(detection_date);
CREATE INDEX IF NOT EXISTS idx_uploads_date ON uploads(upload_date);
`
