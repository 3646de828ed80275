// database/checkpoint_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gewnthar/samsync/models"
)

const checkpointColumns = `scope_id, status, source_fingerprint, row_offset, byte_offset, chunks_committed,
	inserted, updated, last_run_id, last_full_merge_at, last_error, updated_at`

func scanCheckpoint(row interface{ Scan(...any) error }) (models.SyncCheckpoint, error) {
	var cp models.SyncCheckpoint
	var status string
	var lastMerge sql.NullTime
	var lastError sql.NullString
	err := row.Scan(&cp.ScopeID, &status, &cp.SourceFingerprint, &cp.RowOffset, &cp.ByteOffset, &cp.ChunksCommitted,
		&cp.Inserted, &cp.Updated, &cp.LastRunID, &lastMerge, &lastError, &cp.UpdatedAt)
	if err != nil {
		return cp, err
	}
	cp.Status = models.Phase(status)
	cp.LastFullMergeAt = timePtr(lastMerge)
	cp.LastError = lastError.String
	return cp, nil
}

func (s *Store) checkpointUpsertSQL() string {
	insert := `INSERT INTO sync_checkpoints (` + checkpointColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == MySQL {
		return insert + `
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			source_fingerprint = VALUES(source_fingerprint),
			row_offset = VALUES(row_offset),
			byte_offset = VALUES(byte_offset),
			chunks_committed = VALUES(chunks_committed),
			inserted = VALUES(inserted),
			updated = VALUES(updated),
			last_run_id = VALUES(last_run_id),
			last_full_merge_at = VALUES(last_full_merge_at),
			last_error = VALUES(last_error),
			updated_at = VALUES(updated_at)`
	}
	return s.rebind(insert + `
		ON CONFLICT (scope_id) DO UPDATE SET
			status = excluded.status,
			source_fingerprint = excluded.source_fingerprint,
			row_offset = excluded.row_offset,
			byte_offset = excluded.byte_offset,
			chunks_committed = excluded.chunks_committed,
			inserted = excluded.inserted,
			updated = excluded.updated,
			last_run_id = excluded.last_run_id,
			last_full_merge_at = excluded.last_full_merge_at,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) setCheckpointTx(ctx context.Context, ex execer, cp models.SyncCheckpoint) error {
	if cp.ScopeID == "" {
		return errors.New("checkpoint has no scope id")
	}
	_, err := ex.ExecContext(ctx, s.checkpointUpsertSQL(),
		cp.ScopeID, string(cp.Status), cp.SourceFingerprint, cp.RowOffset, cp.ByteOffset, cp.ChunksCommitted,
		cp.Inserted, cp.Updated, cp.LastRunID, nullTime(cp.LastFullMergeAt), cp.LastError, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.ScopeID, err)
	}
	return nil
}

// GetCheckpoint returns the checkpoint for scopeID. found is false when the scope never ran.
func (s *Store) GetCheckpoint(ctx context.Context, scopeID string) (cp models.SyncCheckpoint, found bool, err error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+checkpointColumns+` FROM sync_checkpoints WHERE scope_id = ?`), scopeID)
	cp, err = scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncCheckpoint{ScopeID: scopeID, Status: models.PhasePending}, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("failed to get checkpoint %s: %w", scopeID, err)
	}
	return cp, true, nil
}

// SetCheckpoint saves cp outside of a chunk transaction, e.g. to record a phase change or a failure.
func (s *Store) SetCheckpoint(ctx context.Context, cp models.SyncCheckpoint) error {
	return s.setCheckpointTx(ctx, s.db, cp)
}

// ListCheckpoints returns every checkpoint ordered by scope id.
func (s *Store) ListCheckpoints(ctx context.Context) ([]models.SyncCheckpoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+checkpointColumns+` FROM sync_checkpoints ORDER BY scope_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []models.SyncCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		cps = append(cps, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return cps, nil
}
