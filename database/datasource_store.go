// database/datasource_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gewnthar/samsync/models"
)

const exportVersionColumns = `source_key, source_name, source_url, local_file, size_bytes, sha256, etag,
	remote_modified, resumed, downloaded_at, updated_at`

// LogExportVersion records a verified export download, replacing the previous entry for the same key.
func (s *Store) LogExportVersion(ctx context.Context, v models.ExportVersion) error {
	query := `INSERT INTO export_versions (` + exportVersionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == MySQL {
		query += `
		ON DUPLICATE KEY UPDATE
			source_name = VALUES(source_name),
			source_url = VALUES(source_url),
			local_file = VALUES(local_file),
			size_bytes = VALUES(size_bytes),
			sha256 = VALUES(sha256),
			etag = VALUES(etag),
			remote_modified = VALUES(remote_modified),
			resumed = VALUES(resumed),
			downloaded_at = VALUES(downloaded_at),
			updated_at = VALUES(updated_at)`
	} else {
		query = s.rebind(query + `
		ON CONFLICT (source_key) DO UPDATE SET
			source_name = excluded.source_name,
			source_url = excluded.source_url,
			local_file = excluded.local_file,
			size_bytes = excluded.size_bytes,
			sha256 = excluded.sha256,
			etag = excluded.etag,
			remote_modified = excluded.remote_modified,
			resumed = excluded.resumed,
			downloaded_at = excluded.downloaded_at,
			updated_at = excluded.updated_at`)
	}

	downloaded := v.DownloadedAt
	if downloaded.IsZero() {
		downloaded = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		v.SourceKey, v.SourceName, v.SourceURL, v.LocalFile, v.SizeBytes, v.SHA256, v.ETag,
		nullTime(v.RemoteModified), v.Resumed, downloaded.UTC(), time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("failed to log export version", "source_key", v.SourceKey, "error", err)
		return fmt.Errorf("failed to log export version for %s: %w", v.SourceKey, err)
	}

	s.logger.Info("export version logged", "source_key", v.SourceKey, "source", v.SourceName, "sha256", v.SHA256, "size", v.SizeBytes)
	return nil
}

func scanExportVersion(row interface{ Scan(...any) error }) (models.ExportVersion, error) {
	var v models.ExportVersion
	var url, file, etag sql.NullString
	var remoteModified sql.NullTime
	err := row.Scan(&v.SourceKey, &v.SourceName, &url, &file, &v.SizeBytes, &v.SHA256, &etag,
		&remoteModified, &v.Resumed, &v.DownloadedAt, &v.UpdatedAt)
	if err != nil {
		return v, err
	}
	v.SourceURL = url.String
	v.LocalFile = file.String
	v.ETag = etag.String
	v.RemoteModified = timePtr(remoteModified)
	return v, nil
}

// GetExportVersion returns the last verified download for sourceKey, or ErrNotFound.
func (s *Store) GetExportVersion(ctx context.Context, sourceKey string) (*models.ExportVersion, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+exportVersionColumns+` FROM export_versions WHERE source_key = ?`), sourceKey)
	v, err := scanExportVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export version %s: %w", sourceKey, err)
	}
	return &v, nil
}

// ListExportVersions returns every recorded export ordered by key.
func (s *Store) ListExportVersions(ctx context.Context) ([]models.ExportVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+exportVersionColumns+` FROM export_versions ORDER BY source_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query export_versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ExportVersion
	for rows.Next() {
		v, err := scanExportVersion(rows)
		if err != nil {
			s.logger.Error("failed to scan export_versions row", "error", err)
			continue
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export_versions rows: %w", err)
	}
	return versions, nil
}
