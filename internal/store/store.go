// Package store persists uploads, detection results, and the nested
// detection-metadata documents in SQLite. The handle is constructed
// explicitly and injected into callers; there is no package-level client.
package store

import "skygate/internal/projection"

// Store is the persistence boundary consumed by the CLI.
type Store interface {
	// Uploads
	CreateUpload(u *Upload) (int64, error)
	GetUpload(id int64) (*Upload, error)
	ListUploads() ([]*Upload, error)
	MarkProcessed(id int64) error

	// Detection results
	CreateResult(r *DetectionResult) (int64, error)
	GetResult(id int64) (*DetectionResult, error)
	ListResults() ([]*DetectionResult, error)

	// Metadata documents
	CreateMetadata(doc *projection.Document) (string, error)
	UpdateMetadata(id string, doc *projection.Document) error
	GetMetadata(id string) (*projection.Document, error)

	Close() error
}
