// models/meta.go
package models

import "time"

// ExportVersion tracks the last verified download of an export file.
type ExportVersion struct {
	SourceKey      string     `db:"source_key" json:"source_key"` // e.g. "FY2023", "CURRENT"
	SourceName     string     `db:"source_name" json:"source_name"`
	SourceURL      string     `db:"source_url" json:"source_url"`
	LocalFile      string     `db:"local_file" json:"local_file"`
	SizeBytes      int64      `db:"size_bytes" json:"size_bytes"`
	SHA256         string     `db:"sha256" json:"sha256"`
	ETag           string     `db:"etag" json:"etag,omitempty"`
	RemoteModified *time.Time `db:"remote_modified" json:"remote_modified,omitempty"`
	Resumed        bool       `db:"resumed" json:"resumed"`
	DownloadedAt   time.Time  `db:"downloaded_at" json:"downloaded_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
